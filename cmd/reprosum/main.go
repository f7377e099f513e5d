// Command reprosum is the CLI driver for the binary-tree-summation
// module, the Go analogue of original_source/src/main.cpp: it loads a
// .psllh or .binpsllh summand file, partitions it across a simulated
// cluster, runs the reduction, and prints the bitwise-reproducible
// result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reprosum",
		Short: "Bitwise-reproducible distributed floating-point summation",
		Long: `reprosum reproduces original_source's reduction over a
simulated cluster of ranks: it reads a summand file, partitions it, and
runs the binary/dual-tree reduction, printing the same result
regardless of how many ranks the input was split across.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a reprosum.yaml config file")

	rootCmd.AddCommand(newSumCommand())
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("reprosum (binary-tree-summation)")
		},
	}
}
