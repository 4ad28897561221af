package upload

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts the upload endpoint on the provided router.
func RegisterRoutes(r fiber.Router) {
	r.Post("/upload", HandleUpload)
}
