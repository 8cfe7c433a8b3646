// Package config loads reader options from YAML, the concrete home for
// spec.md's skip_binary_data and combine_identical_spectra flags.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/msformats/specio/pkg/core"
	"github.com/msformats/specio/pkg/spectrum"
)

// ReaderOptions is the YAML-loadable configuration a caller supplies before
// opening a file through the façade.
type ReaderOptions struct {
	SkipBinaryData          bool `yaml:"skip_binary_data"`
	CombineIdenticalSpectra bool `yaml:"combine_identical_spectra"`
	ProgressIntervalLines   int  `yaml:"progress_interval_lines"`

	// Abort is a plain pointer rather than an atomic type: this module has
	// no internal concurrency (spec.md §5), so a caller setting *Abort from
	// a signal handler or another goroutine is solely responsible for the
	// memory-visibility guarantees that implies.
	Abort *bool `yaml:"-"`
}

// DefaultOptions returns the options a caller gets if they load no file.
func DefaultOptions() ReaderOptions {
	return ReaderOptions{ProgressIntervalLines: 250}
}

// Load reads and parses a YAML options file.
func Load(path string) (ReaderOptions, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, core.Wrap(core.IoError, "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, core.Wrap(core.IoError, "failed to parse config file", err)
	}
	return opts, nil
}

// ToFacadeOptions narrows ReaderOptions down to the fields the façade
// actually consumes.
func (o ReaderOptions) ToFacadeOptions() spectrum.Options {
	return spectrum.Options{
		SkipBinaryData:          o.SkipBinaryData,
		CombineIdenticalSpectra: o.CombineIdenticalSpectra,
	}
}
