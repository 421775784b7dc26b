package dbschema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	domainmodel "github.com/creedpetitt/ai-services-backend/internal/domain/model"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/logger"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Provider{})
}

// Provider is the stored snapshot of an upstream inference provider.
// API keys never reach this table; they stay in process configuration.
type Provider struct {
	BaseModel
	Name          string         `gorm:"type:varchar(100);not null;uniqueIndex"`
	Vendor        string         `gorm:"type:varchar(64);not null;index"`
	BaseURL       string         `gorm:"type:varchar(512)"`
	Active        *bool          `gorm:"not null;default:true;index"`
	Metadata      datatypes.JSON `gorm:"type:jsonb"`
	Models        datatypes.JSON `gorm:"type:jsonb"`
	Healthy       *bool          `gorm:"not null;default:false"`
	LastCheckedAt *time.Time     `gorm:"index"`
}

// NewSchemaProvider converts a domain provider snapshot into its schema form.
func NewSchemaProvider(p *domainmodel.Provider) *Provider {
	var metadataJSON datatypes.JSON
	if len(p.Metadata) > 0 {
		if data, err := json.Marshal(p.Metadata); err == nil {
			metadataJSON = datatypes.JSON(data)
		}
	}
	var modelsJSON datatypes.JSON
	if len(p.Models) > 0 {
		if data, err := json.Marshal(p.Models); err == nil {
			modelsJSON = datatypes.JSON(data)
		}
	}

	active := p.Active
	healthy := p.Healthy
	return &Provider{
		BaseModel: BaseModel{
			ID:        p.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		Name:          p.Name,
		Vendor:        p.Vendor,
		BaseURL:       p.BaseURL,
		Active:        &active,
		Metadata:      metadataJSON,
		Models:        modelsJSON,
		Healthy:       &healthy,
		LastCheckedAt: p.LastCheckedAt,
	}
}

// EtoD converts a schema provider back to the domain representation.
func (p *Provider) EtoD() *domainmodel.Provider {
	log := logger.GetLogger()

	var metadata map[string]string
	if len(p.Metadata) > 0 {
		if err := json.Unmarshal(p.Metadata, &metadata); err != nil {
			log.Error().Msgf("failed to unmarshal metadata for provider %q: %v", p.Name, err)
		}
	}
	var models []domainmodel.ModelInfo
	if len(p.Models) > 0 {
		if err := json.Unmarshal(p.Models, &models); err != nil {
			log.Error().Msgf("failed to unmarshal models for provider %q: %v", p.Name, err)
		}
	}

	active := false
	if p.Active != nil {
		active = *p.Active
	}
	healthy := false
	if p.Healthy != nil {
		healthy = *p.Healthy
	}

	return &domainmodel.Provider{
		ID:            p.ID,
		Name:          p.Name,
		Vendor:        p.Vendor,
		BaseURL:       p.BaseURL,
		Active:        active,
		Metadata:      metadata,
		Models:        models,
		Healthy:       healthy,
		LastCheckedAt: p.LastCheckedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
