// Command profile reads a generated CSV workload through a Reader and
// writes pprof profiles of the run.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cellbind/pkg/bind"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	csvsource "github.com/ajitpratap0/cellbind/pkg/connector/sources/csv"
)

type order struct {
	Row      int               `cell:",row"`
	ID       string            `cell:"Order ID,mandatory"`
	Customer string            `cell:"Customer"`
	Amount   decimal.Decimal   `cell:"Amount"`
	Quantity int               `cell:"Qty"`
	Shipped  bool              `cell:"Shipped"`
	Placed   time.Time         `cell:"Placed"`
	Tags     []string          `cell:"Tags"`
	Extra    map[string]string `cell:",unknown"`
}

func main() {
	var (
		rows         = flag.Int("rows", 200000, "Number of generated data rows")
		passes       = flag.Int("passes", 3, "Number of read passes over the workload")
		duration     = flag.Duration("duration", 30*time.Second, "Upper bound on profiling time")
		outputDir    = flag.String("output", "./profiles", "Output directory for profiles")
		profileTypes = flag.String("types", "cpu,memory", "Profile types (cpu,memory,block,mutex,goroutine,all)")
		cpuFile      = flag.String("cpuprofile", "", "Write CPU profile to file")
		memFile      = flag.String("memprofile", "", "Write memory profile to file")
		stream       = flag.Bool("stream", false, "Read through the streaming iterator instead of ReadAll")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -types cpu -rows 500000\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -stream -cpuprofile cpu.prof -memprofile mem.prof\n", os.Args[0])
	}
	flag.Parse()

	types := parseProfileTypes(*profileTypes)

	fmt.Printf("Profiling %d passes over %d rows\n", *passes, *rows)
	fmt.Printf("Profile types: %s\n", *profileTypes)
	fmt.Printf("Output directory: %s\n", *outputDir)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if contains(types, "block") {
		runtime.SetBlockProfileRate(1)
	}
	if contains(types, "mutex") {
		runtime.SetMutexProfileFraction(1)
	}

	workload := generate(*rows)

	if *cpuFile != "" || contains(types, "cpu") {
		cpuProfileFile := *cpuFile
		if cpuProfileFile == "" {
			cpuProfileFile = filepath.Join(*outputDir, "cpu.prof")
		}
		f, err := os.Create(cpuProfileFile)
		if err != nil {
			log.Fatalf("Failed to create CPU profile: %v", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Failed to start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		fmt.Printf("CPU profiling enabled, writing to: %s\n", cpuProfileFile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	if err := runWorkload(ctx, workload, *passes, *stream); err != nil {
		log.Printf("Workload stopped: %v", err)
	}

	if *memFile != "" || contains(types, "memory") {
		memProfileFile := *memFile
		if memProfileFile == "" {
			memProfileFile = filepath.Join(*outputDir, "mem.prof")
		}
		f, err := os.Create(memProfileFile)
		if err != nil {
			log.Fatalf("Failed to create memory profile: %v", err)
		}
		defer f.Close()

		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("Failed to write memory profile: %v", err)
		}
		fmt.Printf("Memory profile written to: %s\n", memProfileFile)
	}

	for _, profileType := range types {
		switch profileType {
		case "block", "mutex", "goroutine":
			writeProfile(profileType, filepath.Join(*outputDir, profileType+".prof"))
		}
	}

	fmt.Printf("Profiling completed successfully\n")
}

// generate builds an orders CSV with one unknown column.
func generate(rows int) []byte {
	var buf bytes.Buffer
	buf.Grow(rows * 64)
	buf.WriteString("Order ID,Customer,Amount,Qty,Shipped,Placed,Tags,Channel\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "O-%d,customer %d,%d.%02d,%d,%t,%02d/%d/2024,\"a,b\",web\n",
			i, i%977, i%5000, i%100, i%12, i%3 == 0, i%28+1, i%12+1)
	}
	return buf.Bytes()
}

func runWorkload(ctx context.Context, workload []byte, passes int, stream bool) error {
	opts := config.NewOptions()
	opts.CollectErrors = true
	reader, err := bind.NewReader[order](opts)
	if err != nil {
		return err
	}

	for pass := 0; pass < passes; pass++ {
		start := time.Now()
		src, err := csvsource.NewCSVSource(bytes.NewReader(workload), opts)
		if err != nil {
			return err
		}

		count := 0
		if stream {
			for _, err := range reader.All(ctx, core.Push(src)) {
				if err != nil {
					return err
				}
				count++
			}
		} else {
			records, err := reader.ReadAll(ctx, core.Push(src))
			if err != nil {
				return err
			}
			count = len(records)
		}

		elapsed := time.Since(start)
		fmt.Printf("Pass %d: %d records in %v (%.0f records/sec)\n",
			pass+1, count, elapsed, float64(count)/elapsed.Seconds())
	}
	return nil
}

func writeProfile(profileName, filename string) {
	profile := pprof.Lookup(profileName)
	if profile == nil {
		fmt.Printf("Profile %s not found\n", profileName)
		return
	}

	f, err := os.Create(filename)
	if err != nil {
		log.Printf("Failed to create %s profile: %v", profileName, err)
		return
	}
	defer f.Close()

	if err := profile.WriteTo(f, 0); err != nil {
		log.Printf("Failed to write %s profile: %v", profileName, err)
		return
	}
	fmt.Printf("%s profile written to: %s\n", profileName, filename)
}

func parseProfileTypes(typesStr string) []string {
	if typesStr == "all" {
		return []string{"cpu", "memory", "block", "mutex", "goroutine"}
	}

	parts := strings.Split(typesStr, ",")
	types := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "mem":
			types = append(types, "memory")
		case "cpu", "memory", "block", "mutex", "goroutine":
			types = append(types, part)
		}
	}
	return types
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
