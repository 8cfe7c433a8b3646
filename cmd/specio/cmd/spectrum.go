package cmd

import (
	"github.com/spf13/cobra"

	"github.com/msformats/specio/pkg/spectrum"
)

var spectrumCmd = &cobra.Command{
	Use:   "spectrum",
	Short: "Fetch one spectrum by scan number",
	RunE:  runSpectrum,
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	opts := loadOptions()
	r, err := spectrum.OpenFile(inputFile, opts.ToFacadeOptions(), stderrObserver{})
	if err != nil {
		return err
	}
	defer r.CloseFile()

	spec, err := r.GetSpectrumByScanNumber(scanNumberFlag)
	if err != nil {
		return err
	}

	printSummary(spec)
	return nil
}
