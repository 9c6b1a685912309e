package ai

import "context"

// CompletionRequest describes one call to the completion API. When
// UseContext is set, retrieval is restricted to ContextDocIDs; otherwise the
// prompt is answered without grounding.
type CompletionRequest struct {
	Prompt         string
	UseContext     bool
	ContextDocIDs  []string
	IncludeSources bool
}

// Completion is the engine's answer. Sources is populated only when the
// request asked for them and the engine grounded its answer.
type Completion struct {
	Content string
	Sources []SourceDocument
}

// SourceDocument identifies one cited document.
type SourceDocument struct {
	DocID    string
	FileName string
}

// Engine is the semantic retrieval/completion service the orchestrator
// depends on. Implementations must be safe for concurrent use.
type Engine interface {
	// IngestFile submits raw document bytes for indexing and returns the
	// engine-assigned document id. Indexing is synchronous and may take
	// minutes for large documents.
	IngestFile(ctx context.Context, filename string, contents []byte) (string, error)

	// Complete generates an answer for the prompt.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}
