package bind_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajitpratap0/cellbind/pkg/bind"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	csvsource "github.com/ajitpratap0/cellbind/pkg/connector/sources/csv"
)

type Product struct {
	SKU   string  `cell:"SKU,mandatory"`
	Price float64 `cell:"Price"`
	Stock int     `cell:"In Stock"`
}

func ExampleReader_ReadAll() {
	input := "SKU;Price;In Stock\nA-1;2,50;4\nB-7;1.200,00;0\n"

	opts := config.NewOptions()
	opts.FieldDelimiter = ";"
	opts.Locale = "de-DE"

	src, err := csvsource.NewCSVSource(strings.NewReader(input), opts)
	if err != nil {
		panic(err)
	}
	r, err := bind.NewReader[Product](opts)
	if err != nil {
		panic(err)
	}
	products, err := r.ReadAll(context.Background(), core.Push(src))
	if err != nil {
		panic(err)
	}
	for _, p := range products {
		fmt.Printf("%s %.2f %d\n", p.SKU, p.Price, p.Stock)
	}
	// Output:
	// A-1 2.50 4
	// B-7 1200.00 0
}

func ExampleReader_All() {
	type point struct {
		X int `cell:"#0"`
		Y int `cell:"#1"`
	}

	opts := config.NewOptions()
	opts.HeaderCount = 0
	r, err := bind.NewReader[point](opts)
	if err != nil {
		panic(err)
	}
	src := core.Push(core.FromRecords([][]string{{"1", "2"}, {"3", "4"}}))
	for p, err := range r.All(context.Background(), src) {
		if err != nil {
			panic(err)
		}
		fmt.Println(p.X + p.Y)
	}
	// Output:
	// 3
	// 7
}
