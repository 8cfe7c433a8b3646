package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/spectrum"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Stream a spectrum file and print a one-line summary per spectrum",
	RunE:  runDump,
}

type stderrObserver struct{}

func (stderrObserver) OnProgress(float64) {}
func (stderrObserver) OnError(err error) {
	fmt.Fprintf(os.Stderr, "warning: %v\n", err)
}

func runDump(cmd *cobra.Command, args []string) error {
	opts := loadOptions()
	r, err := spectrum.OpenFile(inputFile, opts.ToFacadeOptions(), stderrObserver{})
	if err != nil {
		return err
	}
	defer r.CloseFile()

	count := 0
	for {
		spec, ok, err := r.ReadNextSpectrum()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		printSummary(spec)
		count++
	}

	fmt.Printf("%d spectra\n", count)
	return nil
}

func printSummary(spec *core.Spectrum) {
	fmt.Printf("scan=%d ms_level=%d peaks=%d tic=%.2f base_mz=%.4f parent_mz=%.4f\n",
		spec.ScanNumber, spec.MSLevel, spec.PeaksCount(), spec.TotalIonCurrent, spec.BasePeakMZ, spec.ParentIonMZ)
}
