package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.

type FileMappingModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	UserID      int64  `gorm:"not null;index"`
	Filename    string `gorm:"not null;index"`
	ContentType string `gorm:"not null"`
}

type IngestedMappingModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	UserID     int64  `gorm:"not null;index"`
	MappingID  int64  `gorm:"not null;uniqueIndex"`
	DocumentID string `gorm:"not null"`
}

type ChatModel struct {
	ID        string    `gorm:"primaryKey"`
	FileID    int64     `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID        string `gorm:"primaryKey"`
	ChatID    string `gorm:"not null;index"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	Sources   datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type SummaryModel struct {
	ID        string    `gorm:"primaryKey"`
	FileID    int64     `gorm:"not null;index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
