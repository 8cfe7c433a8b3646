// Package cmd provides CLI command implementations over the specio façade.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msformats/specio/pkg/config"
)

var (
	inputFile      string
	configFile     string
	scanNumberFlag int
	skipBinary     bool
	combineCharges bool
)

var rootCmd = &cobra.Command{
	Use:   "specio",
	Short: "specio - mass-spectrometry data file reader",
	Long: `specio reads mzXML, mzData, concatenated DTA (_dta.txt), and MGF
spectrum files through one uniform streaming/random-access interface.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(spectrumCmd)

	rootCmd.PersistentFlags().StringVarP(&inputFile, "in", "i", "", "Input spectrum file path (required)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional YAML reader-options file")
	rootCmd.PersistentFlags().BoolVar(&skipBinary, "skip-binary-data", false, "Skip decoding peak payloads (mzXML/mzData)")
	rootCmd.PersistentFlags().BoolVar(&combineCharges, "combine-identical-spectra", false, "Apply the DTA charge-2/3 fusion policy")

	rootCmd.MarkPersistentFlagRequired("in")

	spectrumCmd.Flags().IntVar(&scanNumberFlag, "scan", 0, "Scan number to fetch (required)")
	spectrumCmd.MarkFlagRequired("scan")
}

func loadOptions() config.ReaderOptions {
	opts := config.DefaultOptions()
	if configFile != "" {
		if loaded, err := config.Load(configFile); err == nil {
			opts = loaded
		} else {
			fmt.Fprintf(os.Stderr, "warning: failed to load config %s: %v\n", configFile, err)
		}
	}
	if skipBinary {
		opts.SkipBinaryData = true
	}
	if combineCharges {
		opts.CombineIdenticalSpectra = true
	}
	return opts
}
