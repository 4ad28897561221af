package ingest

import (
	"ai-doc-assistant/internal/database/model"

	"gorm.io/gorm"
)

func GetDocumentByID(db *gorm.DB, docID int64) (*model.Document, error) {
	var doc model.Document
	if err := db.First(&doc, docID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func UpdateDocumentStatus(db *gorm.DB, docID int64, status string) error {
	return db.Model(&model.Document{}).Where("id = ?", docID).Update("status", status).Error
}

// RecordSummary stores the ingestion outcome on the document row.
func RecordSummary(db *gorm.DB, docID int64, status string, chunkCount, skippedCount int) error {
	return db.Model(&model.Document{}).Where("id = ?", docID).Updates(map[string]interface{}{
		"status":        status,
		"chunk_count":   chunkCount,
		"skipped_count": skippedCount,
	}).Error
}
