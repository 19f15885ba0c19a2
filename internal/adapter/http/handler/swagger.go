package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Group Vault API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: '/swagger/spec', dom_id: '#swagger-ui', layout: 'BaseLayout' });
  </script>
</body>
</html>`

// SwaggerSpec serves the OpenAPI document loaded at startup, or 404 when none was.
func SwaggerSpec(spec []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(spec) == 0 {
			c.String(http.StatusNotFound, "OpenAPI spec not loaded")
			return
		}
		c.Data(http.StatusOK, "application/x-yaml", spec)
	}
}

// SwaggerUI serves a Swagger UI page pointed at /swagger/spec.
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}
