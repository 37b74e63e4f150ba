// Package reference maps raw survey identifiers onto the reporting
// dimensions: NAICS-like codes onto industry categories, and state
// identifiers onto census regions.
package reference

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// TotalRetail is the catch-all category for sources that carry no NAICS column.
const TotalRetail = "Total Retail"

// NonstoreRetail has no state-level equivalent in the state survey.
const NonstoreRetail = "Nonstore Retail (E-commerce)"

// ExpectedIndustries is the fixed category set every national build must cover.
var ExpectedIndustries = []string{
	"Food & Beverage Stores",
	"General Merchandise",
	"Motor Vehicles & Parts",
	"Clothing & Accessories",
	"Electronics & Appliances",
	NonstoreRetail,
	"Other Specialty Retail",
}

// codeToken extracts the 3-5 digit runs a raw code is matched on.
var codeToken = regexp.MustCompile(`\d{3,5}`)

// CrosswalkEntry is one row of industry_crosswalk.csv.
type CrosswalkEntry struct {
	Prefix   string `csv:"naics_prefix"`
	Industry string `csv:"industry_group"`
}

// rangeBounds returns lo, hi for a "lo-hi" prefix.
func (e CrosswalkEntry) rangeBounds() (string, string, bool) {
	lo, hi, ok := strings.Cut(e.Prefix, "-")
	return lo, hi, ok
}

func (e CrosswalkEntry) matches(tokens []string) bool {
	lo, hi, isRange := e.rangeBounds()
	for _, t := range tokens {
		if isRange {
			if strings.HasPrefix(t, lo) || strings.HasPrefix(t, hi) {
				return true
			}
			continue
		}
		if strings.HasPrefix(t, e.Prefix) {
			return true
		}
	}
	return false
}

// Crosswalk is an ordered code-prefix table. Order matters: the first
// matching entry wins.
type Crosswalk struct {
	entries []CrosswalkEntry
}

// NewCrosswalk builds a crosswalk from entries in table order. Entries with
// an empty prefix or category are skipped; a prefix with more than one "-"
// is rejected.
func NewCrosswalk(entries []CrosswalkEntry) (*Crosswalk, error) {
	cw := &Crosswalk{}
	for i, e := range entries {
		e.Prefix = strings.TrimSpace(e.Prefix)
		e.Industry = strings.TrimSpace(e.Industry)
		if e.Prefix == "" || e.Industry == "" {
			continue
		}
		if strings.Count(e.Prefix, "-") > 1 {
			return nil, eris.Errorf("reference: crosswalk row %d: malformed range prefix %q", i+1, e.Prefix)
		}
		cw.entries = append(cw.entries, e)
	}
	return cw, nil
}

// ReadCrosswalk decodes industry_crosswalk.csv content.
func ReadCrosswalk(r io.Reader) (*Crosswalk, error) {
	entries, err := decodeCSV[CrosswalkEntry](r)
	if err != nil {
		return nil, eris.Wrap(err, "reference: decode crosswalk")
	}
	return NewCrosswalk(entries)
}

// LoadCrosswalk reads the crosswalk file at path. A missing file is fatal.
func LoadCrosswalk(path string) (*Crosswalk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: missing crosswalk %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCrosswalk(f)
}

// Len returns the number of usable entries.
func (c *Crosswalk) Len() int { return len(c.entries) }

// Industry maps a raw code to its industry category. The code is reduced to
// its 3-5 digit tokens; a plain prefix matches a token that starts with it,
// a "lo-hi" range matches a token starting with lo or with hi (the values in
// between are not expanded). ok is false when nothing matches.
func (c *Crosswalk) Industry(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	tokens := codeToken.FindAllString(code, -1)
	if len(tokens) == 0 {
		return "", false
	}
	for _, e := range c.entries {
		if e.matches(tokens) {
			return e.Industry, true
		}
	}
	return "", false
}
