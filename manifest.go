package bli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings are the per-pair tunables of a manifest. Nil fields inherit.
type Settings struct {
	MaxLoad   *int  `yaml:"maxload,omitempty"`
	K         *int  `yaml:"k,omitempty"`
	KLocal    *int  `yaml:"k_local,omitempty"`
	BatchSize *int  `yaml:"batch_size,omitempty"`
	Workers   *int  `yaml:"workers,omitempty"`
	Center    *bool `yaml:"center,omitempty"`
}

func (s Settings) merge(over Settings) Settings {
	if over.MaxLoad != nil {
		s.MaxLoad = over.MaxLoad
	}
	if over.K != nil {
		s.K = over.K
	}
	if over.KLocal != nil {
		s.KLocal = over.KLocal
	}
	if over.BatchSize != nil {
		s.BatchSize = over.BatchSize
	}
	if over.Workers != nil {
		s.Workers = over.Workers
	}
	if over.Center != nil {
		s.Center = over.Center
	}
	return s
}

// Pair is one source/target language pair of a manifest.
type Pair struct {
	Name            string `yaml:"name"`
	Source          string `yaml:"source"`
	Target          string `yaml:"target"`
	Lexicon         string `yaml:"lexicon,omitempty"`
	QueryWords      string `yaml:"query_words,omitempty"`
	SourceTransform string `yaml:"source_transform,omitempty"`
	TargetTransform string `yaml:"target_transform,omitempty"`

	Settings `yaml:",inline"`
}

// Manifest lists the language pairs of a batch run.
type Manifest struct {
	ReportsDir string   `yaml:"reports_dir"`
	NNsDir     string   `yaml:"nns_dir"`
	SkipEval   bool     `yaml:"skip_eval"`
	Defaults   Settings `yaml:"defaults"`
	Pairs      []Pair   `yaml:"pairs"`

	baseDir string
}

// LoadManifest reads a YAML manifest. Relative paths inside it are resolved
// against the manifest's directory.
func LoadManifest(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}

	m, err := ParseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %q", filename)
	}
	m.baseDir = filepath.Dir(filename)
	return m, nil
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decode manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every pair is named uniquely and has both vector files.
func (m *Manifest) Validate() error {
	if len(m.Pairs) == 0 {
		return errors.New("manifest has no pairs")
	}
	if m.NNsDir == "" {
		return errors.New("nns_dir is required")
	}
	if !m.SkipEval && m.ReportsDir == "" {
		return errors.New("reports_dir is required unless skip_eval is set")
	}

	seen := make(map[string]struct{}, len(m.Pairs))
	for i, p := range m.Pairs {
		if p.Name == "" {
			return errors.Errorf("pair %d: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return errors.Errorf("pair %q: duplicate name", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Source == "" || p.Target == "" {
			return errors.Errorf("pair %q: source and target are required", p.Name)
		}
	}
	return nil
}

func (m *Manifest) path(p string) string {
	if p == "" || filepath.IsAbs(p) || m.baseDir == "" {
		return p
	}
	return filepath.Join(m.baseDir, p)
}

// Config builds the pipeline configuration of a pair.
func (m *Manifest) Config(p Pair, logger logrus.FieldLogger) (Config, error) {
	s := m.Defaults.merge(p.Settings)
	cfg := Config{
		SourceVectors:   m.path(p.Source),
		TargetVectors:   m.path(p.Target),
		Lexicon:         m.path(p.Lexicon),
		SourceTransform: m.path(p.SourceTransform),
		TargetTransform: m.path(p.TargetTransform),
		Logger:          logger,
	}
	if s.MaxLoad != nil {
		cfg.MaxLoad = *s.MaxLoad
		cfg.LoadAll = *s.MaxLoad <= 0
	}
	if s.K != nil {
		cfg.K = *s.K
	}
	if s.KLocal != nil {
		cfg.KLocal = *s.KLocal
	}
	if s.BatchSize != nil {
		cfg.BatchSize = *s.BatchSize
	}
	if s.Workers != nil {
		cfg.Workers = *s.Workers
	}
	if s.Center != nil {
		cfg.Center = *s.Center
	}

	if p.QueryWords != "" {
		words, err := LoadQueryWords(m.path(p.QueryWords))
		if err != nil {
			return Config{}, err
		}
		cfg.QueryWords = words
	}
	return cfg, nil
}

// ReportsPath is where the combined report of a batch run is written.
func (m *Manifest) ReportsPath() string {
	return filepath.Join(m.path(m.ReportsDir), "report.txt")
}

// NeighborsPath is where the neighbour file of a pair is written.
func (m *Manifest) NeighborsPath(p Pair) string {
	return filepath.Join(m.path(m.NNsDir), p.Name+".txt")
}
