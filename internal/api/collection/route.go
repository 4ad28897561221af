package collection

import "github.com/gofiber/fiber/v3"

func RegisterRoutes(r fiber.Router) {
	r.Get("/collection", HandleDescribe)
	r.Delete("/collection", HandleDrop)
}
