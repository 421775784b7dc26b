package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/logger"
)

// ModelBootstrapEntry describes a single model exposed by a provider.
type ModelBootstrapEntry struct {
	Name            string
	SupportsImages  bool
	PromptPrice     string
	CompletionPrice string
}

// ProviderBootstrapEntry describes a provider that should be registered on startup.
type ProviderBootstrapEntry struct {
	Name     string
	Vendor   string
	BaseURL  string
	APIKey   string
	Active   bool
	Metadata map[string]string
	Models   []ModelBootstrapEntry
}

// ProviderBootstrapConfig maintains all configured provider sets.
type ProviderBootstrapConfig struct {
	sets map[string][]ProviderBootstrapEntry
}

// ProvidersForSet returns a copy of the providers defined for the requested set.
func (c *ProviderBootstrapConfig) ProvidersForSet(name string) []ProviderBootstrapEntry {
	if c == nil {
		return nil
	}
	set := strings.TrimSpace(name)
	if set == "" {
		set = "default"
	}
	list := c.sets[set]
	if len(list) == 0 {
		return nil
	}
	result := make([]ProviderBootstrapEntry, len(list))
	copy(result, list)
	return result
}

// DefaultProviderBootstrap builds the provider set from well-known API key
// environment variables when no config file is supplied. Providers whose key
// is absent are skipped.
func DefaultProviderBootstrap() *ProviderBootstrapConfig {
	var entries []ProviderBootstrapEntry

	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		entries = append(entries, ProviderBootstrapEntry{
			Name:    "OpenAI",
			Vendor:  "openai",
			BaseURL: "https://api.openai.com/v1",
			APIKey:  key,
			Active:  true,
			Models: []ModelBootstrapEntry{
				{Name: "gpt-4o", SupportsImages: true, PromptPrice: "2.50", CompletionPrice: "10.00"},
				{Name: "gpt-4o-mini", SupportsImages: true, PromptPrice: "0.15", CompletionPrice: "0.60"},
			},
		})
	}

	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		entries = append(entries, ProviderBootstrapEntry{
			Name:    "Anthropic",
			Vendor:  "anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			APIKey:  key,
			Active:  true,
			Models: []ModelBootstrapEntry{
				{Name: "claude-3-5-sonnet-20241022", SupportsImages: true, PromptPrice: "3.00", CompletionPrice: "15.00"},
				{Name: "claude-3-5-haiku-20241022", SupportsImages: false, PromptPrice: "0.80", CompletionPrice: "4.00"},
			},
		})
	}

	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		entries = append(entries, ProviderBootstrapEntry{
			Name:    "Gemini",
			Vendor:  "gemini",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
			APIKey:  key,
			Active:  true,
			Models: []ModelBootstrapEntry{
				{Name: "gemini-1.5-pro", SupportsImages: true, PromptPrice: "1.25", CompletionPrice: "5.00"},
				{Name: "gemini-1.5-flash", SupportsImages: true, PromptPrice: "0.075", CompletionPrice: "0.30"},
			},
		})
	}

	return &ProviderBootstrapConfig{
		sets: map[string][]ProviderBootstrapEntry{"default": entries},
	}
}

// LoadProviderBootstrapConfig parses the yaml file at the provided path.
func LoadProviderBootstrapConfig(path string) (*ProviderBootstrapConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("provider config path is empty")
	}

	log := logger.GetLogger()
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read provider config %q: %w", cleanPath, err)
	}
	log.Info().Str("path", cleanPath).Msg("loading provider config file")

	var doc providerConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse provider config %q: %w", cleanPath, err)
	}

	if len(doc.Providers) == 0 {
		return nil, fmt.Errorf("provider config %q has no providers defined", cleanPath)
	}

	result := &ProviderBootstrapConfig{
		sets: make(map[string][]ProviderBootstrapEntry),
	}

	for rawSet, entries := range doc.Providers {
		setName := strings.TrimSpace(rawSet)
		if setName == "" || len(entries) == 0 {
			continue
		}
		for idx, entry := range entries {
			entryLogger := log.With().Str("set", setName).Int("index", idx).Str("name", entry.Name).Logger()
			enabled, err := parseEnabled(entry.EnableRaw)
			if err != nil {
				return nil, fmt.Errorf("providers.%s[%d]: %w", setName, idx, err)
			}
			if !enabled {
				entryLogger.Info().Msg("skipping provider (enable=false)")
				continue
			}
			normalized, err := normalizeProviderEntry(entry)
			if err != nil {
				return nil, fmt.Errorf("providers.%s[%d]: %w", setName, idx, err)
			}
			entryLogger.Info().
				Str("vendor", normalized.Vendor).
				Str("base_url", normalized.BaseURL).
				Int("models", len(normalized.Models)).
				Msg("including provider for bootstrap")
			result.sets[setName] = append(result.sets[setName], normalized)
		}
	}

	if len(result.sets) == 0 {
		return nil, fmt.Errorf("provider config %q has no valid provider entries", cleanPath)
	}

	return result, nil
}

type providerConfigDocument struct {
	Providers map[string][]providerConfigEntry `yaml:"providers"`
}

type providerConfigEntry struct {
	EnableRaw   string             `yaml:"enable"`
	Name        string             `yaml:"name"`
	Vendor      string             `yaml:"vendor"`
	BaseURL     string             `yaml:"base_url"`
	APIKey      string             `yaml:"api_key"`
	Active      *bool              `yaml:"active"`
	Description string             `yaml:"description"`
	Metadata    map[string]string  `yaml:"metadata"`
	Models      []modelConfigEntry `yaml:"models"`
}

type modelConfigEntry struct {
	Name            string `yaml:"name"`
	SupportsImages  bool   `yaml:"supports_images"`
	PromptPrice     string `yaml:"prompt_price"`
	CompletionPrice string `yaml:"completion_price"`
}

func normalizeProviderEntry(entry providerConfigEntry) (ProviderBootstrapEntry, error) {
	vendor := strings.TrimSpace(entry.Vendor)
	if vendor == "" {
		return ProviderBootstrapEntry{}, errors.New("provider vendor is required")
	}

	baseURL := strings.TrimSpace(os.ExpandEnv(entry.BaseURL))
	if baseURL == "" {
		return ProviderBootstrapEntry{}, errors.New("provider base_url is required")
	}

	name := strings.TrimSpace(os.ExpandEnv(entry.Name))
	if name == "" {
		name = fmt.Sprintf("%s Provider", strings.ToUpper(vendor))
	}

	apiKey := strings.TrimSpace(entry.APIKey)
	if apiKey != "" {
		apiKey = os.ExpandEnv(apiKey)
	}

	active := true
	if entry.Active != nil {
		active = *entry.Active
	}

	if len(entry.Models) == 0 {
		return ProviderBootstrapEntry{}, errors.New("provider has no models defined")
	}
	models := make([]ModelBootstrapEntry, 0, len(entry.Models))
	for i, m := range entry.Models {
		modelName := strings.TrimSpace(m.Name)
		if modelName == "" {
			return ProviderBootstrapEntry{}, fmt.Errorf("models[%d]: name is required", i)
		}
		models = append(models, ModelBootstrapEntry{
			Name:            modelName,
			SupportsImages:  m.SupportsImages,
			PromptPrice:     strings.TrimSpace(m.PromptPrice),
			CompletionPrice: strings.TrimSpace(m.CompletionPrice),
		})
	}

	metadata := cloneStringMap(entry.Metadata)
	if desc := strings.TrimSpace(os.ExpandEnv(entry.Description)); desc != "" {
		metadata = ensureStringMap(metadata)
		metadata["description"] = desc
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return ProviderBootstrapEntry{
		Name:     name,
		Vendor:   vendor,
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Active:   active,
		Metadata: metadata,
		Models:   models,
	}, nil
}

func cloneStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(os.ExpandEnv(v))
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func ensureStringMap(in map[string]string) map[string]string {
	if in == nil {
		return make(map[string]string)
	}
	return in
}

func parseEnabled(raw string) (bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return true, nil
	}

	resolved := strings.TrimSpace(expandWithDefault(value))
	if resolved == "" {
		return true, nil
	}

	parsed, err := strconv.ParseBool(resolved)
	if err != nil {
		return false, fmt.Errorf("enable: %w", err)
	}
	return parsed, nil
}

// expandWithDefault expands ${VAR} and ${VAR:-default} syntax using os envs.
func expandWithDefault(raw string) string {
	if !strings.Contains(raw, "${") {
		return os.ExpandEnv(raw)
	}
	start := strings.Index(raw, "${")
	end := strings.Index(raw[start:], "}")
	if start == -1 || end == -1 {
		return os.ExpandEnv(raw)
	}
	end = start + end
	expr := raw[start+2 : end]
	defaultVal := ""
	varName := expr
	if strings.Contains(expr, ":-") {
		parts := strings.SplitN(expr, ":-", 2)
		varName = parts[0]
		defaultVal = parts[1]
	}
	val := os.Getenv(varName)
	if val == "" {
		val = defaultVal
	}
	resolved := raw[:start] + val + raw[end+1:]
	return os.ExpandEnv(resolved)
}
