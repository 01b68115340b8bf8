package stages

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const stagesConfigEnv = "STAGES_CONFIG_YAML"

//go:embed stages.yaml
var catalogFS embed.FS

var requiredStages = []string{StageParse, StageValidate, StageScore, StageDecide}

type yamlCatalog struct {
	Pipeline string          `yaml:"pipeline"`
	Version  int             `yaml:"version"`
	Stages   []yamlStageSpec `yaml:"stages"`
	Scorer   struct {
		Factors *Factors `yaml:"factors"`
	} `yaml:"scorer"`
}

type yamlStageSpec struct {
	Name           string `yaml:"name"`
	URLEnv         string `yaml:"url_env"`
	DefaultURL     string `yaml:"default_url"`
	Path           string `yaml:"path"`
	ListenAddr     string `yaml:"listen_addr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Endpoint is where one stage service is reached and how long a call may take.
type Endpoint struct {
	Name       string
	BaseURL    string
	Path       string
	ListenAddr string
	Timeout    time.Duration
}

func (e Endpoint) URL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.Path
}

type Catalog struct {
	Endpoints map[string]Endpoint
	Factors   Factors
}

func (c Catalog) Endpoint(stage string) (Endpoint, bool) {
	ep, ok := c.Endpoints[stage]
	return ep, ok
}

// LoadCatalog reads STAGES_CONFIG_YAML when set, otherwise the embedded stages.yaml.
// A stage's *_URL env var overrides its default_url; stages without timeout_seconds
// use defaultTimeout.
func LoadCatalog(defaultTimeout time.Duration) (Catalog, error) {
	data, err := readCatalogSource()
	if err != nil {
		return Catalog{}, fmt.Errorf("read stage catalog: %w", err)
	}
	return parseCatalog(data, defaultTimeout)
}

func readCatalogSource() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(stagesConfigEnv)); path != "" {
		return os.ReadFile(path)
	}
	return catalogFS.ReadFile("stages.yaml")
}

func parseCatalog(data []byte, defaultTimeout time.Duration) (Catalog, error) {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("decode stage catalog: %w", err)
	}
	if strings.TrimSpace(doc.Pipeline) != "rfp_analysis" {
		return Catalog{}, fmt.Errorf("unexpected pipeline: %q", doc.Pipeline)
	}

	cat := Catalog{Endpoints: map[string]Endpoint{}, Factors: DefaultFactors()}
	if doc.Scorer.Factors != nil {
		cat.Factors = *doc.Scorer.Factors
	}
	for _, s := range doc.Stages {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return Catalog{}, errors.New("stage name is required")
		}
		if _, dup := cat.Endpoints[name]; dup {
			return Catalog{}, fmt.Errorf("duplicate stage: %s", name)
		}
		base := s.DefaultURL
		if s.URLEnv != "" {
			if v := strings.TrimSpace(os.Getenv(s.URLEnv)); v != "" {
				base = v
			}
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Catalog{}, fmt.Errorf("stage %s: invalid url %q", name, base)
		}
		timeout := defaultTimeout
		if s.TimeoutSeconds > 0 {
			timeout = time.Duration(s.TimeoutSeconds) * time.Second
		}
		path := s.Path
		if path == "" {
			path = "/" + name
		}
		cat.Endpoints[name] = Endpoint{
			Name:       name,
			BaseURL:    base,
			Path:       path,
			ListenAddr: s.ListenAddr,
			Timeout:    timeout,
		}
	}
	for _, name := range requiredStages {
		if _, ok := cat.Endpoints[name]; !ok {
			return Catalog{}, fmt.Errorf("stage catalog is missing %s", name)
		}
	}
	return cat, nil
}
