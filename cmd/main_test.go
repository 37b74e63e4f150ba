package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/config"
	"github.com/sells-group/retail-cli/internal/reference"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// testConfig returns a config rooted in a fresh temp dir covering Jan-Mar 2022.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			DataDir:     filepath.Join(dir, "data"),
			DocsDir:     filepath.Join(dir, "docs"),
			SourcesFile: filepath.Join(dir, "data_sources.yaml"),
		},
		Window:    config.WindowConfig{Start: "2022-01", End: "2022-03"},
		National:  config.NationalConfig{SheetYears: []int{2022}},
		Quality:   config.ValidateConfig{YoYMin: -100, YoYMax: 300},
		Fetch:     config.FetchConfig{TimeoutSecs: 5, MaxRetries: 1, Concurrency: 2},
		Warehouse: config.WarehouseConfig{Schema: "retail"},
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeFixtures lays out reference files and one raw file per survey.
func writeFixtures(t *testing.T, c *config.Config) {
	t.Helper()
	ref := filepath.Join(c.Paths.DataDir, "reference")
	writeTestFile(t, filepath.Join(ref, reference.CrosswalkFile),
		"naics_prefix,industry_group\n"+
			"4541,Nonstore Retail (E-commerce)\n"+
			"441,Motor Vehicles & Parts\n"+
			"445,Food & Beverage Stores\n")
	writeTestFile(t, filepath.Join(ref, reference.StateMapFile),
		"state_abbr,state_name,region\n"+
			"CA,California,West\n"+
			"NY,New York,Northeast\n"+
			"TX,Texas,South\n")

	mrtsDir := filepath.Join(c.Paths.DataDir, "raw", config.DatasetNational)
	require.NoError(t, os.MkdirAll(mrtsDir, 0o755))
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("2022")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"Estimated Monthly Sales for Retail and Food Services", "", "", "", ""},
		{"NAICS Code", "Kind of Business", "Jan. 2022", "Feb. 2022", "Mar. 2022"},
		{"", "", "(millions of dollars)", "", ""},
		{"", "NOT ADJUSTED", "", "", ""},
		{"4411", "Automobile dealers", "100", "110", "120"},
		{"4451", "Grocery stores", "50", "55", "60"},
		{"4541", "Electronic shopping", "30", "33", "(S)"},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(filepath.Join(mrtsDir, "mrtssales92-present.xlsx")))

	writeTestFile(t, filepath.Join(c.Paths.DataDir, "raw", config.DatasetState, "msrs.csv"),
		"State,NAICS,202201,202202,202203\n"+
			"CA,441,5,4,3\n"+
			"NY,445,-1,2,(S)\n"+
			"TX,441,2,2,2\n")
}
