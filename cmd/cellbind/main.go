package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/connector"
	"github.com/ajitpratap0/cellbind/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := newRootCmd().Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var logLevel string

	root := &cobra.Command{
		Use:   "cellbind",
		Short: "cellbind - bind spreadsheet and CSV cells to typed records",
		Long: `cellbind reads CSV and XLSX files (optionally gzip, zstd, lz4 or s2
compressed), resolves their header rows and converts every data row into a
record. Options come from a YAML file, CELLBIND_* environment variables and
flags, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:       logLevel,
				Encoding:    "console",
				OutputPaths: []string{"stderr"},
			})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	bindOptionFlags(root, v)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cellbind v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available formats",
		Run: func(cmd *cobra.Command, args []string) {
			reg := connector.NewRegistry(zap.NewNop())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Readable formats:")
			for _, name := range reg.ListSources() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			fmt.Fprintln(out, "Writable formats:")
			for _, name := range reg.ListDestinations() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
		},
	})

	root.AddCommand(newConvertCmd(v))
	root.AddCommand(newHeadersCmd(v))
	return root
}
