package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"

	"github.com/gofiber/fiber/v3"
)

const swaggerDocPath = "/swagger/doc.yaml"

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
    SwaggerUIBundle({url: "%s", dom_id: "#swagger-ui"});
    </script>
</body>
</html>`

// RegisterSwagger serves the API document and a Swagger UI page titled
// title. The document carries an ETag so browsers revalidate instead of
// refetching it.
func RegisterSwagger(router fiber.Router, doc []byte, title string) {
	sum := sha256.Sum256(doc)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	page := fmt.Sprintf(swaggerPage, html.EscapeString(title), swaggerDocPath)

	router.Get(swaggerDocPath, func(c fiber.Ctx) error {
		c.Set(fiber.HeaderETag, etag)
		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			return c.SendStatus(fiber.StatusNotModified)
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(doc)
	})

	router.Get("/swagger/*", func(c fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(page)
	})
}
