package reference

import (
	"io"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-cli/internal/fetcher"
)

// File names under the reference directory.
const (
	CrosswalkFile = "industry_crosswalk.csv"
	StateMapFile  = "state_region_map.csv"
)

// Mapper bundles both lookup tables. It is loaded once per process and never
// mutated afterwards.
type Mapper struct {
	Crosswalk *Crosswalk
	Regions   *RegionMap
}

// Load reads both reference files from dir.
func Load(dir string) (*Mapper, error) {
	cw, err := LoadCrosswalk(filepath.Join(dir, CrosswalkFile))
	if err != nil {
		return nil, err
	}
	rm, err := LoadRegionMap(filepath.Join(dir, StateMapFile))
	if err != nil {
		return nil, err
	}
	return &Mapper{Crosswalk: cw, Regions: rm}, nil
}

// Industry maps a raw code to its industry category.
func (m *Mapper) Industry(code string) (string, bool) {
	return m.Crosswalk.Industry(code)
}

// Region maps a state identifier to its region.
func (m *Mapper) Region(state string) (string, bool) {
	return m.Regions.Region(state)
}

// decodeCSV decodes every record of r into T. Every csv-tagged field of T
// must have a header column.
func decodeCSV[T any](r io.Reader) ([]T, error) {
	dec, err := csvutil.NewDecoder(fetcher.NewCSVReader(r, fetcher.CSVOptions{TrimSpace: true}))
	if err != nil {
		if err == io.EOF {
			return nil, eris.New("empty file")
		}
		return nil, eris.Wrap(err, "read header")
	}
	dec.DisallowMissingColumns = true

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
