package cmd

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
	"github.com/chittyos/chittyrouter/provider"
)

type (
	// fleetFile declares the provider fleet the server routes across.
	fleetFile struct {
		Providers []fleetProvider `yaml:"providers"`
	}

	fleetProvider struct {
		ID         string `yaml:"id"`
		Kind       string `yaml:"kind"` // openai | anthropic | local
		Model      string `yaml:"model"`
		Capability string `yaml:"capability"` // simple | moderate | complex

		CostInPerMTok  float64 `yaml:"costInPerMTok"`
		CostOutPerMTok float64 `yaml:"costOutPerMTok"`

		// BaseURL applies to local (OpenAI-compatible) providers only.
		BaseURL string `yaml:"baseUrl"`
	}
)

func loadFleet(path string, conf *config.ProviderConfig) ([]provider.Provider, error) {
	fleetBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fleet file: %s", path)
	}

	var fleet fleetFile
	if err := yaml.Unmarshal(fleetBytes, &fleet); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal fleet file: %s", path)
	}
	if len(fleet.Providers) == 0 {
		return nil, errors.Wrapf(errors.ErrConfiguration, "fleet file declares no providers: %s", path)
	}

	providers := make([]provider.Provider, 0, len(fleet.Providers))
	for _, fp := range fleet.Providers {
		capability := entity.Complexity(fp.Capability)
		if !capability.Valid() {
			return nil, errors.Wrapf(errors.ErrConfiguration,
				"provider %q declares unknown capability %q", fp.ID, fp.Capability)
		}

		switch fp.Kind {
		case "openai":
			providers = append(providers, provider.NewOpenAIProvider(
				fp.ID, conf.OpenAIAPIKey, fp.Model, capability, fp.CostInPerMTok, fp.CostOutPerMTok))
		case "anthropic":
			providers = append(providers, provider.NewAnthropicProvider(
				fp.ID, conf.AnthropicAPIKey, fp.Model, capability, fp.CostInPerMTok, fp.CostOutPerMTok))
		case "local":
			baseURL := fp.BaseURL
			if baseURL == "" {
				baseURL = conf.LocalBaseURL
			}
			providers = append(providers, provider.NewLocalProvider(fp.ID, baseURL, fp.Model, capability))
		default:
			return nil, errors.Wrapf(errors.ErrConfiguration,
				"provider %q declares unknown kind %q", fp.ID, fp.Kind)
		}
	}

	return providers, nil
}
