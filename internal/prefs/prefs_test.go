package prefs

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

func TestFileStore_MissingFileDefaultsToZero(t *testing.T) {
	logger, buf := testLogger()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "prefs.yaml"), logger)

	assert.Equal(t, 0, s.GetInt("steps.baseline"))
	assert.Contains(t, buf.String(), "no existing file")
}

func TestFileStore_PutPersistsAcrossInstances(t *testing.T) {
	logger, _ := testLogger()
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	s := NewFileStore(path, logger)
	require.NoError(t, s.PutInt("steps.baseline", 4211))
	require.NoError(t, s.PutInt("other", -3))

	reopened := NewFileStore(path, logger)
	assert.Equal(t, 4211, reopened.GetInt("steps.baseline"))
	assert.Equal(t, -3, reopened.GetInt("other"))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_MalformedFileStartsEmpty(t *testing.T) {
	logger, buf := testLogger()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o644))

	s := NewFileStore(path, logger)
	assert.Equal(t, 0, s.GetInt("steps.baseline"))
	assert.Contains(t, buf.String(), "failed to parse")

	// writing repairs the file
	require.NoError(t, s.PutInt("steps.baseline", 9))
	assert.Equal(t, 9, NewFileStore(path, logger).GetInt("steps.baseline"))
}

func TestFileStore_MalformedValueIsZero(t *testing.T) {
	logger, _ := testLogger()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	content := "steps.baseline: lots\nquoted: \"42\"\nfraction: 1.5\nlist: [1, 2]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := NewFileStore(path, logger)
	assert.Equal(t, 0, s.GetInt("steps.baseline"))
	assert.Equal(t, 42, s.GetInt("quoted"))
	assert.Equal(t, 0, s.GetInt("fraction"))
	assert.Equal(t, 0, s.GetInt("list"))
}

func TestNewFileStore_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { NewFileStore("x", nil) })
}
