package conversationrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/dbschema"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database/transaction"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/metrics"
	"github.com/creedpetitt/ai-services-backend/internal/utils/functional"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

type ConversationGormRepository struct {
	db *transaction.Database
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *transaction.Database) conversation.Repository {
	return &ConversationGormRepository{db}
}

// Create implements conversation.Repository.
func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create conversation")
	}
	// Propagate generated ID and timestamps back to the domain object.
	conv.ID = model.ID
	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	metrics.ConversationsCreatedTotal.Inc()
	return nil
}

// FindByID implements conversation.Repository. Messages are not preloaded;
// callers fetch them through FindMessages when they need the transcript.
func (repo *ConversationGormRepository) FindByID(ctx context.Context, id uint) (*conversation.Conversation, error) {
	var entity dbschema.Conversation
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversation")
	}
	return entity.EtoD(), nil
}

// FindByUserID implements conversation.Repository. Results come back most
// recently active first.
func (repo *ConversationGormRepository) FindByUserID(ctx context.Context, userID uint) ([]*conversation.Conversation, error) {
	var entities []*dbschema.Conversation
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list conversations")
	}
	return functional.Map(entities, func(item *dbschema.Conversation) *conversation.Conversation {
		return item.EtoD()
	}), nil
}

// Update implements conversation.Repository.
func (repo *ConversationGormRepository) Update(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"title":      model.Title,
			"model":      model.Model,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to update conversation")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"conversation not found",
			nil,
		)
	}
	return nil
}

// Delete implements conversation.Repository. Messages go with the
// conversation inside a single transaction.
func (repo *ConversationGormRepository) Delete(ctx context.Context, id uint) error {
	return repo.db.RunInTx(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := tx.WithContext(ctx).
			Where("conversation_id = ?", id).
			Delete(&dbschema.Message{}).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to delete conversation messages")
		}
		if err := tx.WithContext(ctx).
			Where("id = ?", id).
			Delete(&dbschema.Conversation{}).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to delete conversation")
		}
		return nil
	})
}

// AddMessage implements conversation.Repository.
func (repo *ConversationGormRepository) AddMessage(ctx context.Context, msg *conversation.Message) error {
	model := dbschema.NewSchemaMessage(msg)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create message")
	}
	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

// FindMessages implements conversation.Repository.
func (repo *ConversationGormRepository) FindMessages(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	var entities []*dbschema.Message
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list messages")
	}
	return functional.Map(entities, func(item *dbschema.Message) *conversation.Message {
		return item.EtoD()
	}), nil
}

// FindImageMessagesByUserID implements conversation.Repository. Newest first
// so galleries show recent generations at the top.
func (repo *ConversationGormRepository) FindImageMessagesByUserID(ctx context.Context, userID uint) ([]*conversation.Message, error) {
	var entities []*dbschema.Message
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, string(conversation.MessageKindImage)).
		Order("created_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list image messages")
	}
	return functional.Map(entities, func(item *dbschema.Message) *conversation.Message {
		return item.EtoD()
	}), nil
}
