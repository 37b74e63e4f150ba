package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Dataset keys used for raw directories and the --dataset flag.
const (
	DatasetNational = "mtrs"
	DatasetState    = "msrs"
)

// Sources lists the remote files of each survey.
type Sources struct {
	National DatasetSources `yaml:"mtrs_national_sales"`
	State    DatasetSources `yaml:"msrs_state_growth"`
}

// DatasetSources is the download list of one survey.
type DatasetSources struct {
	Files []string `yaml:"files"`
}

// LoadSources reads the source list YAML at path.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources %s", path)
	}
	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources %s", path)
	}
	return &s, nil
}

// Files returns the configured URLs of dataset. An unknown dataset or an
// empty list is an error.
func (s *Sources) Files(dataset string) ([]string, error) {
	var files []string
	switch dataset {
	case DatasetNational:
		files = s.National.Files
	case DatasetState:
		files = s.State.Files
	default:
		return nil, eris.Errorf("config: unknown dataset %q", dataset)
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, eris.Errorf("no %s file URLs configured", dataset)
	}
	return out, nil
}
