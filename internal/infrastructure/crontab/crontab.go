package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"github.com/creedpetitt/ai-services-backend/internal/config"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/inference"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/logger"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

const (
	DefaultHealthSweepInterval = 15               // in minutes
	CronJobTimeout             = 10 * time.Minute // Timeout for each cron job execution
)

type Crontab struct {
	ctab   *crontab.Crontab
	health *inference.HealthChecker
}

func NewCrontab(health *inference.HealthChecker) *Crontab {
	return &Crontab{
		ctab:   crontab.New(),
		health: health,
	}
}

// Run sweeps provider health once at startup, then on the configured
// interval until the context is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()

	c.sweep(ctx)

	cfg := config.GetGlobal()
	if cfg != nil && cfg.ProviderHealthEnabled {
		interval := cfg.ProviderHealthIntervalMinutes
		if interval <= 0 {
			interval = DefaultHealthSweepInterval
		}

		cronExpr := fmt.Sprintf("*/%d * * * *", interval)
		if err := c.ctab.AddJob(cronExpr, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			c.sweep(jobCtx)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add health sweep job")
		}
		log.Info().Msgf("Provider health sweep scheduled: every %d minute(s)", interval)
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) sweep(ctx context.Context) {
	if c.health == nil {
		return
	}
	c.health.SweepAll(ctx)
}
