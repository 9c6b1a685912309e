package store

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"paperchat/pkg/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := NewGormStoreFromDB(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestMappingLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateMapping(ctx, 7, "paper.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create mapping: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected generated id")
	}

	mapping, err := s.GetMapping(ctx, id)
	if err != nil {
		t.Fatalf("get mapping: %v", err)
	}
	if mapping.UserID != 7 || mapping.Filename != "paper.pdf" || mapping.ContentType != "application/pdf" {
		t.Fatalf("mapping = %+v", mapping)
	}

	existed, err := s.DeleteMapping(ctx, id)
	if err != nil || !existed {
		t.Fatalf("delete mapping: existed=%v err=%v", existed, err)
	}
	if _, err := s.GetMapping(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted mapping: %v, want ErrNotFound", err)
	}
}

func TestMappingDefaultContentType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateMapping(ctx, 1, "blob", "")
	if err != nil {
		t.Fatalf("create mapping: %v", err)
	}
	mapping, err := s.GetMapping(ctx, id)
	if err != nil {
		t.Fatalf("get mapping: %v", err)
	}
	if mapping.ContentType != "binary/octet-stream" {
		t.Fatalf("contentType = %q", mapping.ContentType)
	}
}

func TestListMappingsScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := s.CreateMapping(ctx, 1, name, "application/pdf"); err != nil {
			t.Fatalf("create mapping: %v", err)
		}
	}
	if _, err := s.CreateMapping(ctx, 2, "other.pdf", "application/pdf"); err != nil {
		t.Fatalf("create mapping: %v", err)
	}

	mappings, err := s.ListMappings(ctx, 1, 15, 0)
	if err != nil {
		t.Fatalf("list mappings: %v", err)
	}
	if len(mappings) != 3 {
		t.Fatalf("got %d mappings, want 3", len(mappings))
	}
	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if mappings[i].Filename != want {
			t.Fatalf("mappings[%d].Filename = %q, want %q", i, mappings[i].Filename, want)
		}
	}

	page, err := s.ListMappings(ctx, 1, 2, 1)
	if err != nil {
		t.Fatalf("list mappings page: %v", err)
	}
	if len(page) != 2 || page[0].Filename != "b.pdf" {
		t.Fatalf("page = %+v", page)
	}
}

func TestCreateIngestedDuplicateMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mappingID, err := s.CreateMapping(ctx, 1, "paper.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create mapping: %v", err)
	}
	if _, err := s.CreateIngested(ctx, 1, mappingID, "doc-1"); err != nil {
		t.Fatalf("first ingest record: %v", err)
	}
	if _, err := s.CreateIngested(ctx, 1, mappingID, "doc-2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second ingest record: %v, want ErrConflict", err)
	}

	ingested, err := s.GetIngestedByMapping(ctx, mappingID)
	if err != nil {
		t.Fatalf("get by mapping: %v", err)
	}
	if ingested.DocumentID != "doc-1" {
		t.Fatalf("documentID = %q, the first record must win", ingested.DocumentID)
	}
}

func TestGetIngestedNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetIngested(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := s.GetIngestedByMapping(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestAppendTurnCreatesChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat, assistant, err := s.AppendTurn(ctx, Turn{
		FileID: 42,
		Title:  "what is the main finding?...",
		Prompt: "what is the main finding?",
		Answer: "the main finding is X",
		Sources: []domain.Source{
			{FileName: "paper.pdf"},
		},
	})
	if err != nil {
		t.Fatalf("append turn: %v", err)
	}
	if chat.ID == "" || chat.FileID != 42 {
		t.Fatalf("chat = %+v", chat)
	}
	if assistant.Role != domain.RoleAssistant || assistant.Content != "the main finding is X" {
		t.Fatalf("assistant = %+v", assistant)
	}
	if len(assistant.Sources) != 1 || assistant.Sources[0].FileName != "paper.pdf" {
		t.Fatalf("sources = %+v", assistant.Sources)
	}

	messages, err := s.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != domain.RoleUser || messages[1].Role != domain.RoleAssistant {
		t.Fatalf("roles = %q, %q", messages[0].Role, messages[1].Role)
	}
	if messages[0].Content != "what is the main finding?" {
		t.Fatalf("user content = %q", messages[0].Content)
	}
}

func TestAppendTurnReusesChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _, err := s.AppendTurn(ctx, Turn{FileID: 1, Title: "t", Prompt: "q1", Answer: "a1"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	second, _, err := s.AppendTurn(ctx, Turn{ChatID: first.ID, Prompt: "q2", Answer: "a2"})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second turn opened a new chat: %q vs %q", second.ID, first.ID)
	}

	messages, err := s.ListMessagesByChat(ctx, first.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
}

func TestAppendTurnUnknownChat(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.AppendTurn(context.Background(), Turn{ChatID: "no-such-chat", Prompt: "q", Answer: "a"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteChatRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat, _, err := s.AppendTurn(ctx, Turn{FileID: 1, Title: "t", Prompt: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("append turn: %v", err)
	}
	existed, err := s.DeleteChat(ctx, chat.ID)
	if err != nil || !existed {
		t.Fatalf("delete chat: existed=%v err=%v", existed, err)
	}
	messages, err := s.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("messages survived chat deletion: %d", len(messages))
	}

	existed, err = s.DeleteChat(ctx, chat.ID)
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestUpdateChatTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, 1, "old title")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	renamed, err := s.UpdateChatTitle(ctx, chat.ID, "new title")
	if err != nil {
		t.Fatalf("rename chat: %v", err)
	}
	if renamed.Title != "new title" {
		t.Fatalf("title = %q", renamed.Title)
	}
	if _, err := s.UpdateChatTitle(ctx, "no-such-chat", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename missing chat: %v, want ErrNotFound", err)
	}
}

func TestSummaryLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSummary(ctx, 5, "first summary")
	if err != nil {
		t.Fatalf("create summary: %v", err)
	}
	if _, err := s.CreateSummary(ctx, 5, "second summary"); err != nil {
		t.Fatalf("create summary: %v", err)
	}
	if _, err := s.CreateSummary(ctx, 6, "other file"); err != nil {
		t.Fatalf("create summary: %v", err)
	}

	summaries, err := s.ListSummariesByFile(ctx, 5)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	existed, err := s.DeleteSummary(ctx, first.ID)
	if err != nil || !existed {
		t.Fatalf("delete summary: existed=%v err=%v", existed, err)
	}
	if _, err := s.GetSummary(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted summary: %v, want ErrNotFound", err)
	}
}
