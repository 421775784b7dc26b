package providerrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainmodel "github.com/creedpetitt/ai-services-backend/internal/domain/model"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/dbschema"
	"github.com/creedpetitt/ai-services-backend/internal/utils/functional"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

type ProviderGormRepository struct {
	db *gorm.DB
}

var _ domainmodel.ProviderRepository = (*ProviderGormRepository)(nil)

func NewProviderGormRepository(db *gorm.DB) domainmodel.ProviderRepository {
	return &ProviderGormRepository{db: db}
}

// Upsert implements model.ProviderRepository. Providers are keyed by name;
// a bootstrap run refreshes the stored snapshot in place.
func (repo *ProviderGormRepository) Upsert(ctx context.Context, provider *domainmodel.Provider) error {
	model := dbschema.NewSchemaProvider(provider)

	assignments := map[string]any{
		"vendor":     model.Vendor,
		"base_url":   model.BaseURL,
		"active":     model.Active,
		"metadata":   model.Metadata,
		"models":     model.Models,
		"updated_at": gorm.Expr("NOW()"),
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to upsert provider")
	}

	provider.ID = model.ID
	return nil
}

// FindByName implements model.ProviderRepository.
func (repo *ProviderGormRepository) FindByName(ctx context.Context, name string) (*domainmodel.Provider, error) {
	var entity dbschema.Provider
	err := repo.db.WithContext(ctx).
		Where("name = ?", name).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find provider")
	}
	return entity.EtoD(), nil
}

// List implements model.ProviderRepository.
func (repo *ProviderGormRepository) List(ctx context.Context) ([]*domainmodel.Provider, error) {
	var entities []*dbschema.Provider
	err := repo.db.WithContext(ctx).
		Order("name ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list providers")
	}
	return functional.Map(entities, func(item *dbschema.Provider) *domainmodel.Provider {
		return item.EtoD()
	}), nil
}

// MarkHealth implements model.ProviderRepository.
func (repo *ProviderGormRepository) MarkHealth(ctx context.Context, name string, healthy bool, checkedAt time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&dbschema.Provider{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"healthy":         healthy,
			"last_checked_at": checkedAt,
		})
	if result.Error != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to update provider health")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"provider not found",
			nil,
		)
	}
	return nil
}
