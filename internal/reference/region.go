package reference

import (
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// StateRegion is one row of state_region_map.csv.
type StateRegion struct {
	Abbr   string `csv:"state_abbr"`
	Name   string `csv:"state_name"`
	Region string `csv:"region"`
}

// RegionMap resolves state abbreviations and full names to regions.
type RegionMap struct {
	byAbbr map[string]string
	byName map[string]string
}

// NewRegionMap indexes rows by uppercased abbreviation and name. A state
// identifier that appears twice is rejected so that each resolves to exactly
// one region.
func NewRegionMap(rows []StateRegion) (*RegionMap, error) {
	m := &RegionMap{
		byAbbr: make(map[string]string, len(rows)),
		byName: make(map[string]string, len(rows)),
	}
	for i, r := range rows {
		region := strings.TrimSpace(r.Region)
		if region == "" {
			continue
		}
		if err := put(m.byAbbr, normalizeState(r.Abbr), region); err != nil {
			return nil, eris.Wrapf(err, "reference: state map row %d", i+1)
		}
		if err := put(m.byName, normalizeState(r.Name), region); err != nil {
			return nil, eris.Wrapf(err, "reference: state map row %d", i+1)
		}
	}
	return m, nil
}

func put(idx map[string]string, key, region string) error {
	if key == "" {
		return nil
	}
	if prev, ok := idx[key]; ok && prev != region {
		return eris.Errorf("duplicate state %q (%s, %s)", key, prev, region)
	}
	idx[key] = region
	return nil
}

// ReadRegionMap decodes state_region_map.csv content.
func ReadRegionMap(r io.Reader) (*RegionMap, error) {
	rows, err := decodeCSV[StateRegion](r)
	if err != nil {
		return nil, eris.Wrap(err, "reference: decode state map")
	}
	return NewRegionMap(rows)
}

// LoadRegionMap reads the state-region file at path. A missing file is fatal.
func LoadRegionMap(path string) (*RegionMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: missing state map %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadRegionMap(f)
}

// Region resolves a state identifier, trying the abbreviation index before
// the full-name index.
func (m *RegionMap) Region(state string) (string, bool) {
	key := normalizeState(state)
	if key == "" {
		return "", false
	}
	if r, ok := m.byAbbr[key]; ok {
		return r, true
	}
	r, ok := m.byName[key]
	return r, ok
}

func normalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
