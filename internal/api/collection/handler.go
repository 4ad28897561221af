package collection

import (
	"context"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/core/embed"
	"ai-doc-assistant/internal/core/index"
	"ai-doc-assistant/pkg/apperror"

	"github.com/gofiber/fiber/v3"
)

type deleteResponse struct {
	Collection string `json:"collection"`
	Deleted    bool   `json:"deleted"`
}

// HandleDescribe reports the collection's name, point count and load status.
func HandleDescribe(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	store := index.NewStore(embed.NewClient())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := store.Describe(ctx)
	if err != nil {
		return apperror.FromError(config.ModuleCollection, c, err)
	}

	return apperror.Success(config.ModuleCollection, c, apperror.SuccessMessage{
		Message:    "collection info",
		TrackingID: trackingID,
		Data:       info,
	})
}

// HandleDrop deletes the collection and everything in it. Idempotent; dropping
// a collection that does not exist still succeeds.
func HandleDrop(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	store := index.NewStore(embed.NewClient())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !store.Drop(ctx) {
		return apperror.WriteError(config.ModuleCollection, c, fiber.StatusBadGateway,
			apperror.KindUnavailable.String(), "drop collection failed")
	}

	return apperror.Success(config.ModuleCollection, c, apperror.SuccessMessage{
		Message:    "collection deleted",
		TrackingID: trackingID,
		Data:       deleteResponse{Collection: store.Collection(), Deleted: true},
	})
}
