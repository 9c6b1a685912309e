package store

import (
	"context"
	"errors"

	"paperchat/pkg/domain"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound reports that the referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a uniqueness violation, e.g. a second ingestion
	// record for the same file mapping.
	ErrConflict = errors.New("record already exists")
)

// MappingStore persists file mappings and their ingestion records.
type MappingStore interface {
	CreateMapping(ctx context.Context, userID int64, filename, contentType string) (int64, error)
	GetMapping(ctx context.Context, id int64) (domain.FileMapping, error)
	ListMappings(ctx context.Context, userID int64, limit, offset int) ([]domain.FileMapping, error)
	// DeleteMapping exists so a failed upload can compensate the metadata
	// row it just created; the public workflows never delete mappings.
	DeleteMapping(ctx context.Context, id int64) (bool, error)

	CreateIngested(ctx context.Context, userID, mappingID int64, documentID string) (int64, error)
	GetIngested(ctx context.Context, id int64) (domain.IngestedMapping, error)
	GetIngestedByMapping(ctx context.Context, mappingID int64) (domain.IngestedMapping, error)
	ListIngested(ctx context.Context, userID int64, limit, offset int) ([]domain.IngestedMapping, error)
}

// ChatStore persists conversation threads.
type ChatStore interface {
	CreateChat(ctx context.Context, fileID int64, title string) (domain.Chat, error)
	GetChat(ctx context.Context, id string) (domain.Chat, error)
	ListChatsByFile(ctx context.Context, fileID int64) ([]domain.Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) (domain.Chat, error)
	DeleteChat(ctx context.Context, id string) (bool, error)
}

// MessageStore persists individual chat turns.
type MessageStore interface {
	CreateMessage(ctx context.Context, chatID, role, content string, sources []domain.Source) (domain.Message, error)
	GetMessage(ctx context.Context, id string) (domain.Message, error)
	ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string) (domain.Message, error)
	DeleteMessage(ctx context.Context, id string) (bool, error)
}

// SummaryStore persists generated document summaries.
type SummaryStore interface {
	CreateSummary(ctx context.Context, fileID int64, content string) (domain.Summary, error)
	GetSummary(ctx context.Context, id string) (domain.Summary, error)
	ListSummariesByFile(ctx context.Context, fileID int64) ([]domain.Summary, error)
	UpdateSummaryContent(ctx context.Context, id, content string) (domain.Summary, error)
	DeleteSummary(ctx context.Context, id string) (bool, error)
}

// Turn describes one complete chat exchange to persist. An empty ChatID
// means a new chat titled Title must be created for FileID.
type Turn struct {
	ChatID  string
	FileID  int64
	Title   string
	Prompt  string
	Answer  string
	Sources []domain.Source
}

// TurnStore writes a chat turn — lazy chat creation plus the user and
// assistant messages, in that order — as one transaction, so a failure
// leaves no partial conversation behind.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn Turn) (domain.Chat, domain.Message, error)
}

// Store aggregates every contract. Satisfied by GormStore; the orchestrator
// only ever depends on the individual capability interfaces.
type Store interface {
	MappingStore
	ChatStore
	MessageStore
	SummaryStore
	TurnStore
}
