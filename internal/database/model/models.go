package model

import "time"

// Document is one uploaded file plus its ingestion summary. Status moves
// uploaded -> processing -> ready|failed.
type Document struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OriginalFilename *string    `gorm:"column:original_filename" json:"original_filename"`
	FilePath         *string    `gorm:"column:file_path" json:"file_path"`
	Sha256           *string    `gorm:"column:sha256" json:"sha256"`
	Metadata         *string    `gorm:"column:metadata" json:"metadata"` // user-supplied metadata, JSON-encoded
	Status           string     `gorm:"column:status;default:uploaded" json:"status"`
	ChunkCount       *int       `gorm:"column:chunk_count" json:"chunk_count"`
	SkippedCount     *int       `gorm:"column:skipped_count" json:"skipped_count"`
	UploadedAt       *time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

func (Document) TableName() string { return "documents" }

// Message is one persisted chat exchange line. Role is "user" or
// "assistant"; rows are grouped by session id.
type Message struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SessionID string     `gorm:"column:session_id;index" json:"session_id"`
	Role      string     `gorm:"column:role" json:"role"`
	Content   string     `gorm:"column:content" json:"content"`
	CreatedAt *time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
