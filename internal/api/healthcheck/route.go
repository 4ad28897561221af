package healthcheck

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts liveness probes for the API process and both backends.
func RegisterRoutes(r fiber.Router) {
	grp := r.Group("/health")

	grp.Get("/api", ApiHealthCheck)
	grp.Get("/database", DatabaseHealthCheck)
	grp.Get("/milvus", MilvusHealthCheck)
}
