package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"paperchat/pkg/ai"
	"paperchat/pkg/domain"
	"paperchat/pkg/pdftext"
	"paperchat/pkg/storage"
	"paperchat/pkg/store"
)

const summarizePrompt = "Summarize this document:\n"

// ChatResult is one completed conversational turn.
type ChatResult struct {
	Response  string
	Source    string
	ChatID    string
	MessageID string
}

// SummarizeResult is one completed whole-document summarization.
type SummarizeResult struct {
	Summary   string
	SummaryID string
}

// Upload registers a file for a user and persists its bytes. The metadata
// row is created first; if the blob write then fails, the row is deleted so
// no mapping points at missing content.
func (a *App) Upload(ctx context.Context, userID int64, filename string, contents []byte, contentType string) (int64, error) {
	mappingID, err := a.mappings.CreateMapping(ctx, userID, filename, contentType)
	if err != nil {
		return 0, fmt.Errorf("document: upload: create mapping user=%d: %w: %w", userID, ErrInternal, err)
	}
	if err := a.objects.Upload(ctx, userID, mappingID, contents, contentType); err != nil {
		if _, derr := a.mappings.DeleteMapping(ctx, mappingID); derr != nil {
			slog.Warn("upload: orphaned mapping left behind", "mappingId", mappingID, "err", derr)
		}
		return 0, fmt.Errorf("document: upload: store contents id=%d: %w: %w", mappingID, ErrInternal, err)
	}
	return mappingID, nil
}

// Download returns the stored bytes of a user's file.
func (a *App) Download(ctx context.Context, userID, id int64) ([]byte, error) {
	contents, err := a.objects.Download(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document: download: file %d/%d: %w: %w", userID, id, ErrNotFound, err)
		}
		return nil, fmt.Errorf("document: download: file %d/%d: %w: %w", userID, id, ErrInternal, err)
	}
	return contents, nil
}

// SaveIngest submits a previously uploaded file to the retrieval engine and
// records the engine-assigned document id. Ingestion is idempotent per
// mapping: a file already ingested returns the existing record's id without
// another engine call.
func (a *App) SaveIngest(ctx context.Context, userID, id int64) (int64, error) {
	existing, err := a.mappings.GetIngestedByMapping(ctx, id)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("document: save ingest: check mapping %d: %w: %w", id, ErrInternal, err)
	}

	mapping, err := a.mappings.GetMapping(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("document: save ingest: mapping %d: %w: %w", id, ErrNotFound, err)
		}
		return 0, fmt.Errorf("document: save ingest: mapping %d: %w: %w", id, ErrInternal, err)
	}
	contents, err := a.objects.Download(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("document: save ingest: download file %d/%d: %w: %w", userID, id, ErrNotFound, err)
		}
		return 0, fmt.Errorf("document: save ingest: download file %d/%d: %w: %w", userID, id, ErrInternal, err)
	}

	// The engine indexes the whole document before answering, hence the
	// long deadline.
	ingestCtx, cancel := context.WithTimeout(ctx, a.ingestTimeout)
	defer cancel()
	docID, err := a.engine.IngestFile(ingestCtx, mapping.Filename, contents)
	if err != nil {
		return 0, fmt.Errorf("document: save ingest: ingest file %d: %w: %w", id, ErrInternal, err)
	}

	ingestedID, err := a.mappings.CreateIngested(ctx, userID, id, docID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Raced with another ingest of the same mapping; theirs wins.
			existing, gerr := a.mappings.GetIngestedByMapping(ctx, id)
			if gerr == nil {
				return existing.ID, nil
			}
		}
		return 0, fmt.Errorf("document: save ingest: record ingestion doc=%s user=%d mapping=%d: %w: %w",
			docID, userID, id, ErrInternal, err)
	}
	return ingestedID, nil
}

// Chat answers a prompt grounded in one ingested document and persists the
// exchange. When chatID is empty a new chat is opened, titled with the
// start of the prompt; the chat row and both turn messages commit together.
func (a *App) Chat(ctx context.Context, id int64, prompt, chatID string) (ChatResult, error) {
	ingested, err := a.mappings.GetIngested(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ChatResult{}, fmt.Errorf("document: chat: ingested doc %d: %w: %w", id, ErrNotFound, err)
		}
		return ChatResult{}, fmt.Errorf("document: chat: ingested doc %d: %w: %w", id, ErrInternal, err)
	}

	completion, err := a.engine.Complete(ctx, ai.CompletionRequest{
		Prompt:         prompt,
		UseContext:     true,
		ContextDocIDs:  []string{ingested.DocumentID},
		IncludeSources: true,
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("document: chat: completion doc=%s: %w: %w", ingested.DocumentID, ErrInternal, err)
	}

	chat, assistant, err := a.turns.AppendTurn(ctx, store.Turn{
		ChatID:  chatID,
		FileID:  id,
		Title:   chatTitle(prompt),
		Prompt:  prompt,
		Answer:  completion.Content,
		Sources: sourcesFromCompletion(completion),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ChatResult{}, fmt.Errorf("document: chat: chat %s: %w: %w", chatID, ErrNotFound, err)
		}
		return ChatResult{}, fmt.Errorf("document: chat: save turn chat=%s: %w: %w", chatID, ErrInternal, err)
	}

	result := ChatResult{
		Response:  completion.Content,
		ChatID:    chat.ID,
		MessageID: assistant.ID,
	}
	if len(completion.Sources) > 0 {
		result.Source = completion.Sources[0].FileName
	}
	return result, nil
}

// Summarize generates a whole-document summary by independently summarizing
// fixed-size chunks of the extracted text and concatenating the answers in
// chunk order. Any chunk failing aborts the call; nothing partial is saved.
func (a *App) Summarize(ctx context.Context, id int64) (SummarizeResult, error) {
	ingested, err := a.mappings.GetIngested(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SummarizeResult{}, fmt.Errorf("document: summarize: ingested doc %d: %w: %w", id, ErrNotFound, err)
		}
		return SummarizeResult{}, fmt.Errorf("document: summarize: ingested doc %d: %w: %w", id, ErrInternal, err)
	}

	contents, err := a.objects.Download(ctx, ingested.UserID, ingested.MappingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SummarizeResult{}, fmt.Errorf("document: summarize: download file %d/%d: %w: %w",
				ingested.UserID, ingested.MappingID, ErrNotFound, err)
		}
		return SummarizeResult{}, fmt.Errorf("document: summarize: download file %d/%d: %w: %w",
			ingested.UserID, ingested.MappingID, ErrInternal, err)
	}

	text, err := a.extract(contents)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("document: summarize: extract text mapping=%d: %w: %w",
			ingested.MappingID, ErrInternal, err)
	}
	if strings.TrimSpace(text) == "" {
		return SummarizeResult{}, fmt.Errorf("document: summarize: mapping=%d: %w", ingested.MappingID, ErrEmptyPDF)
	}

	chunks := pdftext.SplitChunks(text, a.chunkSize)
	partials := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			completion, err := a.engine.Complete(gctx, ai.CompletionRequest{
				Prompt: summarizePrompt + chunk,
			})
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			partials[i] = completion.Content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SummarizeResult{}, fmt.Errorf("document: summarize: doc=%s: %w: %w", ingested.DocumentID, ErrInternal, err)
	}

	// Reduce: chunk order regardless of completion order, empty answers
	// dropped.
	kept := partials[:0]
	for _, part := range partials {
		if part != "" {
			kept = append(kept, part)
		}
	}
	final := strings.Join(kept, " ")

	summary, err := a.summaries.CreateSummary(ctx, id, final)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("document: summarize: save summary file=%d: %w: %w", id, ErrInternal, err)
	}
	return SummarizeResult{Summary: final, SummaryID: summary.ID}, nil
}

// chatTitle derives a new chat's title from the opening prompt: its first
// 50 characters plus an ellipsis marker.
func chatTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return string(runes) + "..."
}

func sourcesFromCompletion(completion ai.Completion) []domain.Source {
	if len(completion.Sources) == 0 {
		return nil
	}
	sources := make([]domain.Source, 0, len(completion.Sources))
	for _, src := range completion.Sources {
		sources = append(sources, domain.Source{FileName: src.FileName})
	}
	return sources
}
