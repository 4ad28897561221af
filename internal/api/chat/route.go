package chat

import "github.com/gofiber/fiber/v3"

func RegisterRoutes(r fiber.Router) {
	grp := r.Group("/chat")

	grp.Post("/query", HandleQuery)
	grp.Post("/reset", HandleReset)
}
