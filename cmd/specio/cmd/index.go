package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msformats/specio/pkg/spectrum"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and print the scan-number list for an XML-format file",
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	opts := loadOptions()
	r, err := spectrum.OpenFile(inputFile, opts.ToFacadeOptions(), stderrObserver{})
	if err != nil {
		return err
	}
	defer r.CloseFile()

	list := r.GetScanNumberList()
	if list == nil {
		return fmt.Errorf("%s does not support indexed random access", inputFile)
	}

	for _, n := range list {
		fmt.Println(n)
	}
	fmt.Printf("%d indexed spectra\n", len(list))
	return nil
}
