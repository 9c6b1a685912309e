package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"paperchat/pkg/domain"
)

// GormStore implements every store contract on GORM.
type GormStore struct {
	db *gorm.DB
}

var (
	_ MappingStore = (*GormStore)(nil)
	_ ChatStore    = (*GormStore)(nil)
	_ MessageStore = (*GormStore)(nil)
	_ SummaryStore = (*GormStore)(nil)
	_ TurnStore    = (*GormStore)(nil)
)

// NewGormStore opens a Postgres connection and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormStoreFromDB(db)
}

// NewGormStoreFromDB wraps an already-open GORM connection. Used by tests
// to run against in-memory SQLite.
func NewGormStoreFromDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&FileMappingModel{},
		&IngestedMappingModel{},
		&ChatModel{},
		&MessageModel{},
		&SummaryModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateMapping inserts a file mapping and returns the generated row id.
func (s *GormStore) CreateMapping(ctx context.Context, userID int64, filename, contentType string) (int64, error) {
	if contentType == "" {
		contentType = "binary/octet-stream"
	}
	model := FileMappingModel{UserID: userID, Filename: filename, ContentType: contentType}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetMapping returns one file mapping by id.
func (s *GormStore) GetMapping(ctx context.Context, id int64) (domain.FileMapping, error) {
	var model FileMappingModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.FileMapping{}, translate(err)
	}
	return mappingFromModel(model), nil
}

// ListMappings returns a page of the user's file mappings.
func (s *GormStore) ListMappings(ctx context.Context, userID int64, limit, offset int) ([]domain.FileMapping, error) {
	if limit <= 0 {
		limit = 15
	}
	var models []FileMappingModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FileMapping, 0, len(models))
	for _, m := range models {
		res = append(res, mappingFromModel(m))
	}
	return res, nil
}

// DeleteMapping removes a file mapping row.
func (s *GormStore) DeleteMapping(ctx context.Context, id int64) (bool, error) {
	tx := s.db.WithContext(ctx).Delete(&FileMappingModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CreateIngested records the engine-assigned document id for a mapping.
// A second record for the same mapping fails with ErrConflict.
func (s *GormStore) CreateIngested(ctx context.Context, userID, mappingID int64, documentID string) (int64, error) {
	model := IngestedMappingModel{UserID: userID, MappingID: mappingID, DocumentID: documentID}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("mapping %d: %w", mappingID, ErrConflict)
		}
		return 0, err
	}
	return model.ID, nil
}

// GetIngested returns one ingestion record by id.
func (s *GormStore) GetIngested(ctx context.Context, id int64) (domain.IngestedMapping, error) {
	var model IngestedMappingModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.IngestedMapping{}, translate(err)
	}
	return ingestedFromModel(model), nil
}

// GetIngestedByMapping returns the ingestion record of a file mapping.
func (s *GormStore) GetIngestedByMapping(ctx context.Context, mappingID int64) (domain.IngestedMapping, error) {
	var model IngestedMappingModel
	if err := s.db.WithContext(ctx).First(&model, "mapping_id = ?", mappingID).Error; err != nil {
		return domain.IngestedMapping{}, translate(err)
	}
	return ingestedFromModel(model), nil
}

// ListIngested returns a page of the user's ingestion records.
func (s *GormStore) ListIngested(ctx context.Context, userID int64, limit, offset int) ([]domain.IngestedMapping, error) {
	if limit <= 0 {
		limit = 15
	}
	var models []IngestedMappingModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.IngestedMapping, 0, len(models))
	for _, m := range models {
		res = append(res, ingestedFromModel(m))
	}
	return res, nil
}

// CreateChat creates a conversation thread.
func (s *GormStore) CreateChat(ctx context.Context, fileID int64, title string) (domain.Chat, error) {
	now := time.Now().UTC()
	model := ChatModel{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Chat{}, err
	}
	return chatFromModel(model), nil
}

// GetChat returns one chat by id.
func (s *GormStore) GetChat(ctx context.Context, id string) (domain.Chat, error) {
	var model ChatModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Chat{}, translate(err)
	}
	return chatFromModel(model), nil
}

// ListChatsByFile returns every chat attached to an ingested file.
func (s *GormStore) ListChatsByFile(ctx context.Context, fileID int64) ([]domain.Chat, error) {
	var models []ChatModel
	if err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Chat, 0, len(models))
	for _, m := range models {
		res = append(res, chatFromModel(m))
	}
	return res, nil
}

// UpdateChatTitle renames a chat.
func (s *GormStore) UpdateChatTitle(ctx context.Context, id, title string) (domain.Chat, error) {
	tx := s.db.WithContext(ctx).Model(&ChatModel{}).Where("id = ?", id).Updates(map[string]any{
		"title":      title,
		"updated_at": time.Now().UTC(),
	})
	if tx.Error != nil {
		return domain.Chat{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.Chat{}, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return s.GetChat(ctx, id)
}

// DeleteChat removes a chat and reports whether it existed.
func (s *GormStore) DeleteChat(ctx context.Context, id string) (bool, error) {
	return s.deleteWithMessages(ctx, id)
}

func (s *GormStore) deleteWithMessages(ctx context.Context, chatID string) (bool, error) {
	var existed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&ChatModel{}, "id = ?", chatID)
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		if !existed {
			return nil
		}
		return tx.Delete(&MessageModel{}, "chat_id = ?", chatID).Error
	})
	return existed, err
}

// CreateMessage appends one message to a chat.
func (s *GormStore) CreateMessage(ctx context.Context, chatID, role, content string, sources []domain.Source) (domain.Message, error) {
	model, err := newMessageModel(chatID, role, content, sources)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Message{}, err
	}
	return messageFromModel(model)
}

// GetMessage returns one message by id.
func (s *GormStore) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	var model MessageModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Message{}, translate(err)
	}
	return messageFromModel(model)
}

// ListMessagesByChat returns a chat's messages in insertion order.
func (s *GormStore) ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msg, err := messageFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, msg)
	}
	return res, nil
}

// UpdateMessageContent rewrites a message body.
func (s *GormStore) UpdateMessageContent(ctx context.Context, id, content string) (domain.Message, error) {
	tx := s.db.WithContext(ctx).Model(&MessageModel{}).Where("id = ?", id).Updates(map[string]any{
		"content":    content,
		"updated_at": time.Now().UTC(),
	})
	if tx.Error != nil {
		return domain.Message{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.Message{}, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return s.GetMessage(ctx, id)
}

// DeleteMessage removes a message and reports whether it existed.
func (s *GormStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	tx := s.db.WithContext(ctx).Delete(&MessageModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CreateSummary appends a summary row for an ingested file.
func (s *GormStore) CreateSummary(ctx context.Context, fileID int64, content string) (domain.Summary, error) {
	now := time.Now().UTC()
	model := SummaryModel{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Summary{}, err
	}
	return summaryFromModel(model), nil
}

// GetSummary returns one summary by id.
func (s *GormStore) GetSummary(ctx context.Context, id string) (domain.Summary, error) {
	var model SummaryModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return domain.Summary{}, translate(err)
	}
	return summaryFromModel(model), nil
}

// ListSummariesByFile returns every summary generated for a file, oldest first.
func (s *GormStore) ListSummariesByFile(ctx context.Context, fileID int64) ([]domain.Summary, error) {
	var models []SummaryModel
	if err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Summary, 0, len(models))
	for _, m := range models {
		res = append(res, summaryFromModel(m))
	}
	return res, nil
}

// UpdateSummaryContent rewrites a summary body.
func (s *GormStore) UpdateSummaryContent(ctx context.Context, id, content string) (domain.Summary, error) {
	tx := s.db.WithContext(ctx).Model(&SummaryModel{}).Where("id = ?", id).Updates(map[string]any{
		"content":    content,
		"updated_at": time.Now().UTC(),
	})
	if tx.Error != nil {
		return domain.Summary{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.Summary{}, fmt.Errorf("summary %s: %w", id, ErrNotFound)
	}
	return s.GetSummary(ctx, id)
}

// DeleteSummary removes a summary and reports whether it existed.
func (s *GormStore) DeleteSummary(ctx context.Context, id string) (bool, error) {
	tx := s.db.WithContext(ctx).Delete(&SummaryModel{}, "id = ?", id)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// AppendTurn persists one chat exchange in a single transaction: the chat
// row when the turn opens a new conversation, then the user message, then
// the assistant message.
func (s *GormStore) AppendTurn(ctx context.Context, turn Turn) (domain.Chat, domain.Message, error) {
	var (
		chatModel      ChatModel
		assistantModel MessageModel
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if turn.ChatID == "" {
			chatModel = ChatModel{
				ID:        uuid.NewString(),
				FileID:    turn.FileID,
				Title:     turn.Title,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&chatModel).Error; err != nil {
				return err
			}
		} else {
			if err := tx.First(&chatModel, "id = ?", turn.ChatID).Error; err != nil {
				return translate(err)
			}
		}
		userModel, err := newMessageModel(chatModel.ID, domain.RoleUser, turn.Prompt, nil)
		if err != nil {
			return err
		}
		if err := tx.Create(&userModel).Error; err != nil {
			return err
		}
		// The assistant row must sort after the user row even when both
		// land inside the same wall-clock tick.
		assistantModel, err = newMessageModel(chatModel.ID, domain.RoleAssistant, turn.Answer, turn.Sources)
		if err != nil {
			return err
		}
		assistantModel.CreatedAt = userModel.CreatedAt.Add(time.Microsecond)
		assistantModel.UpdatedAt = assistantModel.CreatedAt
		if err := tx.Create(&assistantModel).Error; err != nil {
			return err
		}
		return tx.Model(&ChatModel{}).Where("id = ?", chatModel.ID).
			Update("updated_at", assistantModel.CreatedAt).Error
	})
	if err != nil {
		return domain.Chat{}, domain.Message{}, err
	}
	assistant, err := messageFromModel(assistantModel)
	if err != nil {
		return domain.Chat{}, domain.Message{}, err
	}
	return chatFromModel(chatModel), assistant, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func newMessageModel(chatID, role, content string, sources []domain.Source) (MessageModel, error) {
	now := time.Now().UTC()
	model := MessageModel{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(sources) > 0 {
		raw, err := json.Marshal(sources)
		if err != nil {
			return MessageModel{}, fmt.Errorf("encode sources: %w", err)
		}
		model.Sources = datatypes.JSON(raw)
	}
	return model, nil
}

func mappingFromModel(m FileMappingModel) domain.FileMapping {
	return domain.FileMapping{
		ID:          m.ID,
		UserID:      m.UserID,
		Filename:    m.Filename,
		ContentType: m.ContentType,
	}
}

func ingestedFromModel(m IngestedMappingModel) domain.IngestedMapping {
	return domain.IngestedMapping{
		ID:         m.ID,
		UserID:     m.UserID,
		MappingID:  m.MappingID,
		DocumentID: m.DocumentID,
	}
}

func chatFromModel(m ChatModel) domain.Chat {
	return domain.Chat{
		ID:        m.ID,
		FileID:    m.FileID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageFromModel(m MessageModel) (domain.Message, error) {
	msg := domain.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if len(m.Sources) > 0 {
		if err := json.Unmarshal(m.Sources, &msg.Sources); err != nil {
			return domain.Message{}, fmt.Errorf("decode sources: %w", err)
		}
	}
	return msg, nil
}

func summaryFromModel(m SummaryModel) domain.Summary {
	return domain.Summary{
		ID:        m.ID,
		FileID:    m.FileID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
