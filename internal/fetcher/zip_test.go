package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP_MultiFile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"msrs_2022.csv": "state,202201",
		"msrs_2023.csv": "state,202301",
		"readme.txt":    "notes",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	data, err := os.ReadFile(filepath.Join(destDir, "msrs_2022.csv"))
	require.NoError(t, err)
	assert.Equal(t, "state,202201", string(data))
}

func TestExtractZIP_FilterExtensions(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"data/msrs.CSV":   "a",
		"data/mrts.xlsx":  "b",
		"data/readme.txt": "c",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir, ".csv", ".xlsx")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(destDir, "msrs.CSV"),
		filepath.Join(destDir, "mrts.xlsx"),
	}, extracted)

	_, err = os.Stat(filepath.Join(destDir, "readme.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractZIP_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, writeFile(path, "not a zip"))

	_, err := ExtractZIP(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}
