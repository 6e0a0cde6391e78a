package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables read by the gateway.
const (
	EnvHarvestURL   = "SITEHARVESTER_API_URL"
	EnvHarvestKey   = "SITEHARVESTER_API_KEY"
	EnvContactURL   = "SITEHARVESTER_USER_API"
	EnvListen       = "SITEHARVESTER_LISTEN"
	EnvSlackWebhook = "SITEHARVESTER_SLACK_WEBHOOK"
)

// MissingError is returned when a required environment value is absent.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	if len(e.Vars) == 1 {
		return e.Vars[0] + " is not defined in environment variables."
	}
	return strings.Join(e.Vars, ", ") + " are not defined in environment variables."
}

// IsMissing reports whether err (or its cause) is a *MissingError.
func IsMissing(err error) bool {
	_, ok := errors.Cause(err).(*MissingError)
	return ok
}

// HarvestCredentials address the scrape-and-generate backend.
type HarvestCredentials struct {
	Endpoint string
	APIKey   string
}

// ContactCredentials address the user backend.
type ContactCredentials struct {
	BaseURL string
}

// Source provides credentials to the proxy handlers. Implementations are consulted on
// every request so a credential change in the environment is picked up without a restart.
type Source interface {
	Harvest() (HarvestCredentials, error)
	Contact() (ContactCredentials, error)
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Env is a Source backed by a lookup function, normally os.LookupEnv.
type Env struct {
	Lookup LookupFunc
}

// NewEnv returns a Source reading the process environment.
func NewEnv() *Env {
	return &Env{Lookup: os.LookupEnv}
}

func (e *Env) get(key string) string {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

func (e *Env) Harvest() (HarvestCredentials, error) {
	creds := HarvestCredentials{
		Endpoint: strings.TrimRight(e.get(EnvHarvestURL), "/"),
		APIKey:   e.get(EnvHarvestKey),
	}

	var missing []string
	if creds.Endpoint == "" {
		missing = append(missing, EnvHarvestURL)
	}
	if creds.APIKey == "" {
		missing = append(missing, EnvHarvestKey)
	}
	if len(missing) > 0 {
		return HarvestCredentials{}, &MissingError{Vars: missing}
	}

	return creds, nil
}

func (e *Env) Contact() (ContactCredentials, error) {
	base := strings.TrimRight(e.get(EnvContactURL), "/")
	if base == "" {
		return ContactCredentials{}, &MissingError{Vars: []string{EnvContactURL}}
	}
	return ContactCredentials{BaseURL: base}, nil
}

// Static is a fixed Source, mostly useful in tests.
type Static struct {
	HarvestEndpoint string
	HarvestKey      string
	ContactBaseURL  string
}

func (s Static) Harvest() (HarvestCredentials, error) {
	return (&Env{Lookup: s.lookup}).Harvest()
}

func (s Static) Contact() (ContactCredentials, error) {
	return (&Env{Lookup: s.lookup}).Contact()
}

func (s Static) lookup(key string) (string, bool) {
	switch key {
	case EnvHarvestURL:
		return s.HarvestEndpoint, s.HarvestEndpoint != ""
	case EnvHarvestKey:
		return s.HarvestKey, s.HarvestKey != ""
	case EnvContactURL:
		return s.ContactBaseURL, s.ContactBaseURL != ""
	}
	return "", false
}

// Server holds the non-secret settings of the HTTP server.
type Server struct {
	Listen            string        `yaml:"listen"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	SlackWebhook      string        `yaml:"slackWebhook,omitempty"`
}

// DefaultServer returns the server settings used when nothing is configured.
func DefaultServer() Server {
	return Server{
		Listen:            ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
	}
}

// LoadDotEnv loads the given .env files (".env" when none are given) into the process
// environment. Missing files are ignored, existing variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "failed to load %s", f)
		}
	}

	return nil
}

// LoadServer reads server settings from the YAML file at path (skipped when path is
// empty) and applies environment overrides on top.
func LoadServer(path string, lookup LookupFunc) (Server, error) {
	cfg := DefaultServer()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Server{}, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Server{}, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		cfg.Listen = v
	}
	if v, ok := lookup(EnvSlackWebhook); ok && v != "" {
		cfg.SlackWebhook = v
	}

	return cfg, nil
}
