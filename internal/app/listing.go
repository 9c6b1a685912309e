package app

import (
	"context"
	"errors"
	"fmt"

	"paperchat/pkg/domain"
	"paperchat/pkg/store"
)

// ListFiles returns a page of the user's uploaded files.
func (a *App) ListFiles(ctx context.Context, userID int64, limit, offset int) ([]domain.FileMapping, error) {
	files, err := a.mappings.ListMappings(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("document: list files user=%d: %w: %w", userID, ErrInternal, err)
	}
	return files, nil
}

// ListIngested returns a page of the user's ingestion records.
func (a *App) ListIngested(ctx context.Context, userID int64, limit, offset int) ([]domain.IngestedMapping, error) {
	ingested, err := a.mappings.ListIngested(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("document: list ingested user=%d: %w: %w", userID, ErrInternal, err)
	}
	return ingested, nil
}

// ChatsForFile lists the conversations attached to an ingested file.
func (a *App) ChatsForFile(ctx context.Context, fileID int64) ([]domain.Chat, error) {
	chats, err := a.chats.ListChatsByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("document: list chats file=%d: %w: %w", fileID, ErrInternal, err)
	}
	return chats, nil
}

// ChatMessages returns a conversation's turns in order.
func (a *App) ChatMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	if _, err := a.chats.GetChat(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("document: chat messages: chat %s: %w: %w", chatID, ErrNotFound, err)
		}
		return nil, fmt.Errorf("document: chat messages: chat %s: %w: %w", chatID, ErrInternal, err)
	}
	messages, err := a.messages.ListMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("document: chat messages: chat %s: %w: %w", chatID, ErrInternal, err)
	}
	return messages, nil
}

// SummariesForFile lists every summary generated for an ingested file.
func (a *App) SummariesForFile(ctx context.Context, fileID int64) ([]domain.Summary, error) {
	summaries, err := a.summaries.ListSummariesByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("document: list summaries file=%d: %w: %w", fileID, ErrInternal, err)
	}
	return summaries, nil
}

// RenameChat changes a conversation's title.
func (a *App) RenameChat(ctx context.Context, chatID, title string) (domain.Chat, error) {
	chat, err := a.chats.UpdateChatTitle(ctx, chatID, title)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Chat{}, fmt.Errorf("document: rename chat %s: %w: %w", chatID, ErrNotFound, err)
		}
		return domain.Chat{}, fmt.Errorf("document: rename chat %s: %w: %w", chatID, ErrInternal, err)
	}
	return chat, nil
}

// DeleteChat removes a conversation and its messages, reporting whether it
// existed.
func (a *App) DeleteChat(ctx context.Context, chatID string) (bool, error) {
	existed, err := a.chats.DeleteChat(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("document: delete chat %s: %w: %w", chatID, ErrInternal, err)
	}
	return existed, nil
}

// DeleteSummary removes one summary row, reporting whether it existed.
func (a *App) DeleteSummary(ctx context.Context, summaryID string) (bool, error) {
	existed, err := a.summaries.DeleteSummary(ctx, summaryID)
	if err != nil {
		return false, fmt.Errorf("document: delete summary %s: %w: %w", summaryID, ErrInternal, err)
	}
	return existed, nil
}
