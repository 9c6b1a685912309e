package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FileMapping records that a file exists for a user. The row id doubles as
// the object-storage key suffix ({user_id}/{id}).
type FileMapping struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// IngestedMapping links a FileMapping to the document id assigned by the
// retrieval engine once the file's content has been indexed.
type IngestedMapping struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId"`
	MappingID  int64  `json:"mappingId"`
	DocumentID string `json:"documentId"`
}

// Chat is a conversation thread bound to one ingested file.
type Chat struct {
	ID        string    `json:"id"`
	FileID    int64     `json:"fileId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single turn inside a chat. Assistant messages carry the
// sources cited by the retrieval engine.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Source identifies a document cited in a grounded answer.
type Source struct {
	FileName string `json:"fileName"`
}

// Summary is one generated whole-document summary. Summaries are append-only
// history: repeated summarize calls add rows.
type Summary struct {
	ID        string    `json:"id"`
	FileID    int64     `json:"fileId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
