package chatrepo

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/domain/query"
	"skillstream/services/chat-api/internal/infrastructure/database/entities"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

const pqUniqueViolation = "23505"

// ConversationRepository handles conversation and participant persistence.
type ConversationRepository struct {
	db *gorm.DB
}

var _ chat.ConversationRepository = (*ConversationRepository)(nil)

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *chat.Conversation) error {
	entity := entities.NewSchemaConversation(conv)
	err := r.db.WithContext(ctx).Create(entity).Error
	if err != nil {
		if isUniqueViolation(err) {
			return platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeConflict,
				"conversation already exists",
				err,
				"3f6a8c21-9d4e-4b57-a2f8-60c1d5e9b374",
			)
		}
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
			"8b1d4f72-3e5a-4c96-b0d8-27a6e9c5f148",
		)
	}

	conv.ID = entity.ID
	for i := range conv.Participants {
		conv.Participants[i].ConversationID = entity.ID
	}
	return nil
}

func (r *ConversationRepository) FindByPublicID(ctx context.Context, publicID string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("public_id = ?", publicID).
		First(&entity).Error
	if err != nil {
		return nil, r.wrapLookupError(ctx, err, "conversation not found", "failed to find conversation by public id")
	}
	return entity.EtoD(), nil
}

func (r *ConversationRepository) FindByDirectKey(ctx context.Context, directKey string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("direct_key = ? AND deleted_at IS NULL", directKey).
		First(&entity).Error
	if err != nil {
		return nil, r.wrapLookupError(ctx, err, "direct conversation not found", "failed to find conversation by direct key")
	}
	return entity.EtoD(), nil
}

func (r *ConversationRepository) FindByFilter(ctx context.Context, filter chat.ConversationFilter, pagination *query.Pagination) ([]*chat.Conversation, error) {
	tx := r.applyFilter(r.db.WithContext(ctx).Model(&entities.Conversation{}), filter).
		Preload("Participants").
		Order("conversations.updated_at DESC")

	if pagination != nil {
		pagination.Normalize()
		tx = tx.Offset(pagination.Offset()).Limit(pagination.Limit)
	}

	var rows []entities.Conversation
	if err := tx.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list conversations",
			err,
			"5d0e2a84-7c19-4f63-9b25-e8a1f4d6c037",
		)
	}

	conversations := make([]*chat.Conversation, len(rows))
	for i := range rows {
		conversations[i] = rows[i].EtoD()
	}
	return conversations, nil
}

func (r *ConversationRepository) Count(ctx context.Context, filter chat.ConversationFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&entities.Conversation{}), filter).
		Count(&count).Error
	if err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count conversations",
			err,
			"a27c9e51-4d83-4b06-8f12-630b5d9c4e87",
		)
	}
	return count, nil
}

func (r *ConversationRepository) Update(ctx context.Context, conv *chat.Conversation) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]any{
			"name":        conv.Name,
			"description": conv.Description,
			"updated_at":  conv.UpdatedAt,
		}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update conversation",
			err,
			"c94f1b68-2e57-4da3-90c6-85d2f0a7e314",
		)
	}
	return nil
}

func (r *ConversationRepository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete conversation",
			err,
			"71e3d8a5-6b02-4c49-af17-9d45c2e8b063",
		)
	}
	return nil
}

func (r *ConversationRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	// Guarded so late arrivals never move recency backwards.
	err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND updated_at < ?", id, at).
		Update("updated_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to touch conversation",
			err,
			"e85a2c17-9f43-4d60-b381-04c7d6e2a595",
		)
	}
	return nil
}

func (r *ConversationRepository) UpsertParticipant(ctx context.Context, conversationID uint, userID string, role chat.ParticipantRole, at time.Time) error {
	participant := entities.ConversationParticipant{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       at,
	}
	// Conflict on the (conversation, user) pair revives a left row:
	// left_at clears, the read watermark survives the absence. An
	// active row is left untouched so re-adding an owner cannot demote
	// them.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"left_at": nil,
				"role":    role,
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "conversation_participants.left_at IS NOT NULL"},
			}},
		}).
		Create(&participant).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to upsert participant",
			err,
			"06d4b9e2-8a51-4f37-bc08-52e9a1d7c463",
		)
	}
	return nil
}

func (r *ConversationRepository) MarkParticipantLeft(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Update("left_at", at)
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to mark participant left",
			result.Error,
			"49c7e1a3-0d86-4b52-9e34-f61a8d0c5b27",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"active participant not found",
			nil,
			"b32f8d61-5c94-4e07-a1d5-78e0c4f9a216",
		)
	}
	return nil
}

func (r *ConversationRepository) AdvanceReadWatermark(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	// Conditional update keeps the watermark monotonic under
	// out-of-order delivery; a stale mark simply matches zero rows.
	err := r.db.WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND (last_read_at IS NULL OR last_read_at < ?)", conversationID, userID, at).
		Update("last_read_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to advance read watermark",
			err,
			"d18a5f92-3b67-4c04-8e29-a05c7d1e6f48",
		)
	}
	return nil
}

func (r *ConversationRepository) UnreadCount(ctx context.Context, conversationID uint, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("messages.conversation_id = ?", conversationID).
		Where("messages.sender_id <> ?", userID).
		Where("messages.deleted_at IS NULL").
		Where(`messages.created_at > COALESCE((
			SELECT last_read_at FROM conversation_participants
			WHERE conversation_id = ? AND user_id = ?
		), to_timestamp(0))`, conversationID, userID).
		Count(&count).Error
	if err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count unread messages",
			err,
			"f60b3c28-7e91-4a45-bd03-19d8e5a2c674",
		)
	}
	return count, nil
}

func (r *ConversationRepository) applyFilter(tx *gorm.DB, filter chat.ConversationFilter) *gorm.DB {
	tx = tx.Where("conversations.deleted_at IS NULL")

	if filter.UserID != nil {
		tx = tx.Joins(`JOIN conversation_participants cp
			ON cp.conversation_id = conversations.id
			AND cp.user_id = ? AND cp.left_at IS NULL`, *filter.UserID)
	}
	if filter.Type != nil {
		tx = tx.Where("conversations.type = ?", *filter.Type)
	}
	if filter.Search != nil && *filter.Search != "" {
		tx = tx.Where("conversations.name ILIKE ?", "%"+*filter.Search+"%")
	}
	return tx
}

func (r *ConversationRepository) wrapLookupError(ctx context.Context, err error, notFoundMsg, failureMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			notFoundMsg,
			err,
			"2c8e6f04-1a73-4d95-b6e2-48d0a9c3f571",
		)
	}
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		failureMsg,
		err,
		"90a4d7b3-5f28-4e61-8c09-d3e6a1f5b824",
	)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
