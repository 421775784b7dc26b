package inference

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/config"
	domainmodel "github.com/creedpetitt/ai-services-backend/internal/domain/model"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/metrics"
	chatclient "github.com/creedpetitt/ai-services-backend/internal/utils/httpclients/chat"
)

const healthProbeTimeout = 15 * time.Second

// HealthChecker probes each configured provider's models endpoint and stores
// the result on the provider snapshot. The crontab scheduler drives it.
type HealthChecker struct {
	entries   []config.ProviderBootstrapEntry
	providers domainmodel.ProviderRepository
	logger    zerolog.Logger
}

func NewHealthChecker(entries []config.ProviderBootstrapEntry, providers domainmodel.ProviderRepository, logger zerolog.Logger) *HealthChecker {
	return &HealthChecker{
		entries:   entries,
		providers: providers,
		logger:    logger,
	}
}

// SweepAll probes every active provider once. Failures are recorded, not
// returned; one unreachable vendor must not abort the sweep.
func (h *HealthChecker) SweepAll(ctx context.Context) {
	for _, entry := range h.entries {
		if !entry.Active {
			continue
		}
		h.probe(ctx, entry)
	}
}

func (h *HealthChecker) probe(ctx context.Context, entry config.ProviderBootstrapEntry) {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	client := chatclient.NewModelClient(newProviderClient(entry), entry.Name, entry.BaseURL)
	_, err := client.ListModels(probeCtx)
	healthy := err == nil
	checkedAt := time.Now().UTC()
	metrics.SetProviderHealth(entry.Name, healthy)

	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("provider", entry.Name).
			Msg("provider health probe failed")
	} else {
		h.logger.Debug().
			Str("provider", entry.Name).
			Msg("provider health probe succeeded")
	}

	if h.providers == nil {
		return
	}
	if err := h.providers.MarkHealth(ctx, entry.Name, healthy, checkedAt); err != nil {
		h.logger.Warn().
			Err(err).
			Str("provider", entry.Name).
			Msg("failed to record provider health")
	}
}
