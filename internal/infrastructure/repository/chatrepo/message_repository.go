package chatrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/domain/query"
	"skillstream/services/chat-api/internal/infrastructure/database/entities"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// MessageRepository handles message persistence. Reaction and read-set
// mutations run in a transaction under a row lock so concurrent updates
// to the same JSONB column never lose writes.
type MessageRepository struct {
	db *gorm.DB
}

var _ chat.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	entity := entities.NewSchemaMessage(msg)
	err := r.db.WithContext(ctx).Create(entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create message",
			err,
			"4a7d1e95-8c30-4f62-b4a8-07e5c2d9f163",
		)
	}
	msg.ID = entity.ID
	return nil
}

func (r *MessageRepository) FindByPublicID(ctx context.Context, publicID string) (*chat.Message, error) {
	var entity entities.Message
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"message not found",
				err,
				"86c2f9a4-0d51-4e73-9b86-e1a3d7c5f028",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find message by public id",
			err,
			"d30e8b57-6f14-4a92-8c65-29b0e7d4a1f3",
		)
	}
	return entity.EtoD(), nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uint, window chat.MessageWindow, pagination *query.Pagination) ([]*chat.Message, error) {
	tx := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC")

	if window.Before != nil {
		tx = tx.Where("created_at < ?", *window.Before)
	}
	if window.After != nil {
		tx = tx.Where("created_at > ?", *window.After)
	}
	if pagination != nil {
		pagination.Normalize()
		tx = tx.Offset(pagination.Offset()).Limit(pagination.Limit)
	}

	var rows []entities.Message
	if err := tx.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list messages",
			err,
			"17f5a3c8-4b92-4d06-a7e1-58c3f0d6b294",
		)
	}

	messages := make([]*chat.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].EtoD()
	}
	return messages, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{
			"content":   content,
			"edited_at": editedAt,
		}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update message content",
			err,
			"a94c0e72-3d58-4b16-9f40-c6e8d1a5b327",
		)
	}
	return nil
}

func (r *MessageRepository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete message",
			err,
			"62b8e4d1-7a05-4c93-b2f7-10d5e9c3a648",
		)
	}
	return nil
}

func (r *MessageRepository) SetReaction(ctx context.Context, id uint, emoji, userID string, add bool) (*chat.Message, error) {
	var entity entities.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&entity).Error; err != nil {
			return err
		}

		reactions := entity.Reactions
		if reactions == nil {
			reactions = make(entities.JSONReactions)
		}

		if add {
			for _, uid := range reactions[emoji] {
				if uid == userID {
					return nil // already present, idempotent
				}
			}
			reactions[emoji] = append(reactions[emoji], userID)
		} else {
			kept := make([]string, 0, len(reactions[emoji]))
			for _, uid := range reactions[emoji] {
				if uid != userID {
					kept = append(kept, uid)
				}
			}
			if len(kept) == len(reactions[emoji]) {
				return nil // nothing to remove, idempotent
			}
			if len(kept) == 0 {
				delete(reactions, emoji)
			} else {
				reactions[emoji] = kept
			}
		}

		entity.Reactions = reactions
		return tx.Model(&entities.Message{}).
			Where("id = ?", id).
			Update("reactions", reactions).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"message not found",
				err,
				"e51d7a08-2c64-4f39-8b15-a7d0c3e9f526",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update reaction",
			err,
			"38a6f2c5-9e07-4d81-b539-64e1d8a0c792",
		)
	}

	return entity.EtoD(), nil
}

func (r *MessageRepository) AddReadBy(ctx context.Context, id uint, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.Message
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&entity).Error; err != nil {
			return err
		}

		for _, uid := range entity.ReadBy {
			if uid == userID {
				return nil // already recorded, idempotent
			}
		}
		readBy := append(entity.ReadBy, userID)

		return tx.Model(&entities.Message{}).
			Where("id = ?", id).
			Update("read_by", readBy).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"message not found",
				err,
				"0b9e5d43-6a27-4c80-9f14-d2c7e6a1f385",
			)
		}
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to record read receipt",
			err,
			"74d2a8f6-1b53-4e09-ac68-35f0d9e4c217",
		)
	}
	return nil
}

func (r *MessageRepository) Search(ctx context.Context, userID, term string, conversationID *uint, pagination *query.Pagination) ([]*chat.Message, error) {
	// Past or present membership grants search visibility; left
	// participants keep their history.
	tx := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Joins(`JOIN conversation_participants cp
			ON cp.conversation_id = messages.conversation_id AND cp.user_id = ?`, userID).
		Where("messages.deleted_at IS NULL").
		Where("messages.content ILIKE ?", "%"+term+"%").
		Order("messages.created_at DESC, messages.id DESC")

	if conversationID != nil {
		tx = tx.Where("messages.conversation_id = ?", *conversationID)
	}
	if pagination != nil {
		pagination.Normalize()
		tx = tx.Offset(pagination.Offset()).Limit(pagination.Limit)
	}

	var rows []entities.Message
	if err := tx.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to search messages",
			err,
			"c07f3e91-8d26-4a54-bf02-61e9d4a7c538",
		)
	}

	messages := make([]*chat.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].EtoD()
	}
	return messages, nil
}
