package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.False(t, opts.SkipBinaryData)
	require.False(t, opts.CombineIdenticalSpectra)
	require.Equal(t, 250, opts.ProgressIntervalLines)
}

func TestLoadYAML(t *testing.T) {
	content := "skip_binary_data: true\ncombine_identical_spectra: true\nprogress_interval_lines: 10\n"
	path := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	require.True(t, opts.SkipBinaryData)
	require.True(t, opts.CombineIdenticalSpectra)
	require.Equal(t, 10, opts.ProgressIntervalLines)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestToFacadeOptions(t *testing.T) {
	opts := ReaderOptions{SkipBinaryData: true, CombineIdenticalSpectra: false, ProgressIntervalLines: 5}
	facadeOpts := opts.ToFacadeOptions()
	require.True(t, facadeOpts.SkipBinaryData)
	require.False(t, facadeOpts.CombineIdenticalSpectra)
}
