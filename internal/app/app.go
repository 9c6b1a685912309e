package app

import (
	"fmt"
	"time"

	"paperchat/pkg/ai"
	"paperchat/pkg/pdftext"
	"paperchat/pkg/queue"
	"paperchat/pkg/storage"
	"paperchat/pkg/store"
)

// Config holds runtime configuration for the document service core.
// The Store/Objects/Engine/Extract fields override the default
// Postgres/MinIO/PrivateGPT wiring; tests inject fakes through them.
type Config struct {
	DatabaseURL    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	EngineURL      string
	IngestTimeout  time.Duration
	ChunkSize      int
	// SummarizeConcurrency bounds parallel per-chunk completion calls.
	// The default of 1 keeps the sequential reference behavior.
	SummarizeConcurrency int

	Store   store.Store
	Objects storage.ObjectStore
	Engine  ai.Engine
	Extract func([]byte) (string, error)
	Jobs    *queue.RedisJobQueue
}

// App is the document orchestrator: it sequences the mapping store, the
// blob store, and the retrieval engine into the upload, ingest, chat, and
// summarize workflows. It holds no mutable state of its own, so a single
// App serves concurrent requests.
type App struct {
	mappings  store.MappingStore
	chats     store.ChatStore
	messages  store.MessageStore
	summaries store.SummaryStore
	turns     store.TurnStore

	objects storage.ObjectStore
	engine  ai.Engine
	extract func([]byte) (string, error)
	jobs    *queue.RedisJobQueue

	ingestTimeout time.Duration
	chunkSize     int
	concurrency   int
}

// New wires the orchestrator with database-backed metadata storage, MinIO
// blob storage, and a PrivateGPT-compatible engine client.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	engine := cfg.Engine
	if engine == nil {
		if cfg.EngineURL == "" {
			return nil, fmt.Errorf("engine URL required")
		}
		var opts []ai.PGPTOption
		if cfg.IngestTimeout > 0 {
			opts = append(opts, ai.WithIngestTimeout(cfg.IngestTimeout))
		}
		engine = ai.NewPGPTClient(cfg.EngineURL, opts...)
	}

	extract := cfg.Extract
	if extract == nil {
		extract = pdftext.ExtractText
	}
	ingestTimeout := cfg.IngestTimeout
	if ingestTimeout <= 0 {
		ingestTimeout = ai.DefaultIngestTimeout
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = pdftext.DefaultChunkSize
	}
	concurrency := cfg.SummarizeConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &App{
		mappings:      dataStore,
		chats:         dataStore,
		messages:      dataStore,
		summaries:     dataStore,
		turns:         dataStore,
		objects:       objects,
		engine:        engine,
		extract:       extract,
		jobs:          cfg.Jobs,
		ingestTimeout: ingestTimeout,
		chunkSize:     chunkSize,
		concurrency:   concurrency,
	}, nil
}
