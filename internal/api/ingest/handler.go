package ingest

import (
	"strconv"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/core/embed"
	"ai-doc-assistant/internal/core/index"
	ingestsvc "ai-doc-assistant/internal/services/ingest"
	"ai-doc-assistant/pkg/apperror"

	"github.com/gofiber/fiber/v3"
)

type ingestResponse struct {
	DocID int64 `json:"doc_id"`
}

// HandleIngest kicks off the pipeline for an uploaded document. The work runs
// in the background; poll the document row for the outcome.
func HandleIngest(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	docIDStr := c.Params("docID")
	if docIDStr == "" {
		return apperror.BadRequest(config.ModuleIngest, c, "docID is required")
	}
	docID, err := strconv.ParseInt(docIDStr, 10, 64)
	if err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, "invalid docID")
	}

	embedder := embed.NewClient()
	svc := ingestsvc.NewService(embedder, index.NewStore(embedder))

	// Fire and forget
	go svc.Run(docID)

	return apperror.Success(config.ModuleIngest, c, apperror.SuccessMessage{
		Message:    "ingest started",
		TrackingID: trackingID,
		Data:       ingestResponse{DocID: docID},
	})
}
