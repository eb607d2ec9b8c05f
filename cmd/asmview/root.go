package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var (
	outputFile string
	verbose    bool
	colorMode  string
	output     io.Writer
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "asmview",
	Short: ".NET assembly metadata viewer",
	Long: `asmview is a command-line tool for viewing the CLI metadata of
.NET assemblies and modules.

It can display the assembly identity, types, members, references,
resources and the entity behind any metadata token.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			output = f
		} else {
			output = os.Stdout
		}

		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			logger = l
		}
		dotnet.SetLogger(logger)

		return setupColor(colorMode, output)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
		if f, ok := output.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log resolution phases and warnings to stderr")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "colorize output (auto, always, never)")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(typenameCmd)
	rootCmd.AddCommand(dumpCmd)
}

// openModule parses the assembly at path, reporting the number of warnings
// on stderr.
func openModule(path string) (*dotnet.Module, error) {
	m, err := dotnet.Open(path, dotnet.NewParseOptions().WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open assembly: %w", err)
	}
	if n := len(m.Warnings()); n > 0 && !verbose {
		fmt.Fprintf(os.Stderr, "%s: %d warnings (use -v for details)\n", path, n)
	}
	return m, nil
}
