package main

import (
	"context"
	"fmt"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/api/chat"
	"ai-doc-assistant/internal/api/collection"
	"ai-doc-assistant/internal/api/healthcheck"
	"ai-doc-assistant/internal/api/ingest"
	"ai-doc-assistant/internal/api/upload"
	"ai-doc-assistant/internal/middleware"
	"ai-doc-assistant/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	milvus "github.com/milvus-io/milvus-sdk-go/v2/client"
)

func main() {
	app := fiber.New(fiber.Config{
		AppName:     config.Cfg.Server.AppName,
		BodyLimit:   config.Cfg.Server.BodyLimit,
		Concurrency: config.Cfg.Server.Concurrency,
	})

	app.Use(middleware.PanicRecovery())
	app.Use(middleware.ConnectionLimit(middleware.NewConnectionLimiter(config.Cfg.Server.Concurrency)))
	if len(config.Cfg.Cors.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.Cfg.Cors.AllowOrigins,
			AllowMethods: config.Cfg.Cors.AllowMethods,
			AllowHeaders: config.Cfg.Cors.AllowHeaders,
		}))
	}

	// Milvus connectivity check on startup
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	cli, err := milvus.NewClient(ctx, milvus.Config{Address: config.Cfg.Milvus.Address})
	cancel()
	if err != nil {
		logger.Error(err, "%v: milvus connect error", config.ModuleMilvus)
	} else {
		cli.Close()
		logger.Info("%v: milvus ok", config.ModuleMilvus)
	}

	// routes
	healthcheck.RegisterRoutes(app)
	upload.RegisterRoutes(app)
	ingest.RegisterRoutes(app)
	chat.RegisterRoutes(app)
	collection.RegisterRoutes(app)

	addr := fmt.Sprintf(":%d", config.Cfg.Server.Port)
	if err := app.Listen(addr); err != nil {
		logger.Error(err, "%v: server error", config.ModuleServer)
	}
}
