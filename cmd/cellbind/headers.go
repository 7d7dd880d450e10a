package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/bind"
	"github.com/ajitpratap0/cellbind/pkg/connector"
	"github.com/ajitpratap0/cellbind/pkg/logger"
	"github.com/ajitpratap0/cellbind/pkg/resolver"
)

func newHeadersCmd(v *viper.Viper) *cobra.Command {
	var input, format string

	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Print the column map resolved from the header rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}
			opts.Limit = 1

			ctx := logger.ContextWith(cmd.Context(), logger.InputKey, input)
			log := logger.WithContext(ctx).With(zap.String("component", "cellbind-cli"))
			reg := connector.NewRegistry(log)
			src, err := openSource(reg, input, format, opts)
			if err != nil {
				return err
			}
			defer src.Close()

			reader, err := bind.NewReader[row](opts, bind.WithLogger(log))
			if err != nil {
				return err
			}
			if _, err := reader.ReadAll(ctx, src); err != nil {
				return err
			}

			cols := reader.Columns()
			out := cmd.OutOrStdout()
			for _, col := range resolver.SortedColumns(cols) {
				fmt.Fprintf(out, "%d\t%s\n", col, cols[col])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (required)")
	cmd.Flags().StringVar(&format, "format", "", "Input format (csv, xlsx); detected from the extension when empty")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
