package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"github.com/creedpetitt/ai-services-backend/internal/config"
	domainmodel "github.com/creedpetitt/ai-services-backend/internal/domain/model"
	httpclients "github.com/creedpetitt/ai-services-backend/internal/utils/httpclients"
	chatclient "github.com/creedpetitt/ai-services-backend/internal/utils/httpclients/chat"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// Bootstrap builds the model registry from the configured provider entries
// and persists a snapshot of each provider for the health sweep to track.
type Bootstrap struct {
	providers domainmodel.ProviderRepository
	logger    zerolog.Logger
}

func NewBootstrap(providers domainmodel.ProviderRepository, logger zerolog.Logger) *Bootstrap {
	return &Bootstrap{providers: providers, logger: logger}
}

// BuildRegistry constructs one backend per configured model and registers the
// provider snapshots. Inactive providers are skipped entirely.
func (b *Bootstrap) BuildRegistry(ctx context.Context, entries []config.ProviderBootstrapEntry) (*domainmodel.Registry, error) {
	var backends []domainmodel.Backend

	for _, entry := range entries {
		if !entry.Active {
			b.logger.Info().Str("provider", entry.Name).Msg("skipping inactive provider")
			continue
		}

		client := newProviderClient(entry)
		completion := chatclient.NewCompletionClient(client, entry.Name, entry.BaseURL)

		snapshot := &domainmodel.Provider{
			Name:     entry.Name,
			Vendor:   entry.Vendor,
			BaseURL:  entry.BaseURL,
			Active:   entry.Active,
			Metadata: entry.Metadata,
		}

		for _, m := range entry.Models {
			promptPrice, err := parsePrice(m.PromptPrice)
			if err != nil {
				return nil, fmt.Errorf("provider %s model %s: prompt price: %w", entry.Name, m.Name, err)
			}
			completionPrice, err := parsePrice(m.CompletionPrice)
			if err != nil {
				return nil, fmt.Errorf("provider %s model %s: completion price: %w", entry.Name, m.Name, err)
			}

			backends = append(backends, &chatBackend{
				name:            m.Name,
				provider:        entry.Name,
				supportsImages:  m.SupportsImages,
				promptPrice:     promptPrice,
				completionPrice: completionPrice,
				client:          completion,
			})
			snapshot.Models = append(snapshot.Models, domainmodel.ModelInfo{
				Name:            m.Name,
				SupportsImages:  m.SupportsImages,
				PromptPrice:     promptPrice,
				CompletionPrice: completionPrice,
			})
		}

		if b.providers != nil {
			if err := b.providers.Upsert(ctx, snapshot); err != nil {
				return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to persist provider snapshot")
			}
		}

		b.logger.Info().
			Str("provider", entry.Name).
			Str("vendor", entry.Vendor).
			Int("models", len(entry.Models)).
			Msg("provider registered")
	}

	return domainmodel.NewRegistry(backends...)
}

// newProviderClient creates a resty client with the vendor's auth scheme.
func newProviderClient(entry config.ProviderBootstrapEntry) *resty.Client {
	client := httpclients.NewClient(entry.Name + "Client")
	client.SetBaseURL(entry.BaseURL)
	client.SetTimeout(2 * time.Minute)

	apiKey := strings.TrimSpace(entry.APIKey)
	if apiKey == "" || strings.EqualFold(apiKey, "none") {
		return client
	}

	switch strings.ToLower(entry.Vendor) {
	case "azure-openai":
		client.SetHeader("api-key", apiKey)
	case "anthropic":
		client.SetHeader("X-API-Key", apiKey)
		client.SetHeader("Anthropic-Version", "2023-06-01")
	default:
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}

	return client
}

func parsePrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(trimmed)
}
