// File: internal/reporting/reporter_test.go
package reporting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/issuetrail/internal/reporting"
	"github.com/xkilldash9x/issuetrail/internal/reporting/sarif"
)

const testToolVersion = "v1.0.0-test"

func TestNew_Stdout(t *testing.T) {
	logger := zaptest.NewLogger(t)
	for _, format := range []string{reporting.FormatSARIF, reporting.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			// Close writes an empty document; stdout is never closed.
			r, err := reporting.New(format, "stdout", logger, testToolVersion)
			require.NoError(t, err)
			assert.NoError(t, r.Close())

			r, err = reporting.New(format, "", logger, testToolVersion)
			require.NoError(t, err)
			assert.NoError(t, r.Close())
		})
	}
}

func TestNew_File(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "output.sarif")

	r, err := reporting.New(reporting.FormatSARIF, tmpFile, zaptest.NewLogger(t), testToolVersion)
	require.NoError(t, err)

	_, err = os.Stat(tmpFile)
	assert.NoError(t, err, "Output file should have been created")

	require.NoError(t, r.Close())
	data, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, sarif.Version, decodeSARIF(t, data).Version)
}

func TestNew_Failures(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("unsupported format", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "output.txt")
		r, err := reporting.New("text", tmpFile, logger, testToolVersion)
		assert.Nil(t, r)
		assert.ErrorContains(t, err, "unsupported output format: text")

		// The format is checked before the file is created.
		_, statErr := os.Stat(tmpFile)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("nil logger", func(t *testing.T) {
		r, err := reporting.New(reporting.FormatJSON, "", nil, testToolVersion)
		assert.Nil(t, r)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("file creation", func(t *testing.T) {
		// A directory cannot be opened as an output file.
		r, err := reporting.New(reporting.FormatSARIF, t.TempDir(), logger, testToolVersion)
		assert.Nil(t, r)
		assert.ErrorContains(t, err, "failed to create output file")
	})
}
