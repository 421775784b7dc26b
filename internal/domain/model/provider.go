package model

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ModelInfo describes one model exposed by a provider, including the
// per-million-token prices used for usage accounting.
type ModelInfo struct {
	Name            string          `json:"name"`
	SupportsImages  bool            `json:"supports_images"`
	PromptPrice     decimal.Decimal `json:"prompt_price"`
	CompletionPrice decimal.Decimal `json:"completion_price"`
}

// Provider is the persisted snapshot of an upstream inference provider.
// It mirrors the bootstrap configuration plus the latest health probe.
type Provider struct {
	ID            uint
	Name          string
	Vendor        string
	BaseURL       string
	Active        bool
	Metadata      map[string]string
	Models        []ModelInfo
	Healthy       bool
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProviderRepository persists provider snapshots.
type ProviderRepository interface {
	Upsert(ctx context.Context, provider *Provider) error
	FindByName(ctx context.Context, name string) (*Provider, error)
	List(ctx context.Context) ([]*Provider, error)
	MarkHealth(ctx context.Context, name string, healthy bool, checkedAt time.Time) error
}
