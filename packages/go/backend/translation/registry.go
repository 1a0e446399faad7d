package translation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config selects and configures a translation provider.
type Config struct {
	Provider string
	Endpoint string
	APIKey   string
	Email    string
	Timeout  time.Duration
}

type providerFactory func(cfg Config) (Provider, error)

var providers = map[string]providerFactory{
	"libretranslate": func(cfg Config) (Provider, error) {
		return NewLibreTranslate(cfg.Endpoint, cfg.APIKey)
	},
	"mymemory": func(cfg Config) (Provider, error) {
		return NewMyMemory(cfg.Endpoint, cfg.Email, cfg.APIKey)
	},
}

// ProviderNames lists every name New accepts.
func ProviderNames() []string {
	names := make([]string, 0, len(providers)+1)
	for name := range providers {
		names = append(names, name)
	}
	names = append(names, "stub")
	sort.Strings(names)
	return names
}

// New builds the translator named by cfg.Provider.
func New(cfg Config, logger *zap.SugaredLogger) (Translator, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "stub" {
		return NewStubTranslator(nil), nil
	}

	factory, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	provider, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewHTTPTranslator(provider, nil, timeout, logger), nil
}
