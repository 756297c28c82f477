// Package api/openapi serves the OpenAPI 3.0 description of the composer API.
//
// INTEGRATION POINTS:
// - internal/api/server.go: every route registered in routes() is documented in getOpenAPISpec()
// - internal/errors/handlers.go: the ErrorResponse schema matches HTTPErrorHandler.Body()
// - Swagger UI CDN: /api/docs loads Swagger UI assets from unpkg.com
//
// USAGE PATTERNS:
// - Interactive documentation: visit /api/docs
// - Machine-readable spec: fetch /api/openapi.json
package api

import (
	"github.com/gofiber/fiber/v2"
)

const docsHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Prompt Composer API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/openapi.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis]
            });
        };
    </script>
</body>
</html>`

// handleOpenAPI serves the Swagger UI page
func (s *APIServer) handleOpenAPI(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).SendString(docsHTML)
}

// handleOpenAPISpec serves the OpenAPI JSON specification
func (s *APIServer) handleOpenAPISpec(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(getOpenAPISpec())
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func pathParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"required":    true,
		"description": description,
		"schema":      map[string]interface{}{"type": "string"},
	}
}

func queryParam(name, typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"schema":      map[string]interface{}{"type": typ},
	}
}

func jsonBody(schema string) map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref(schema)},
		},
	}
}

// operation documents one route with the standard success and error responses
func operation(summary string, params []interface{}, body map[string]interface{}) map[string]interface{} {
	op := map[string]interface{}{
		"summary":  summary,
		"security": []interface{}{map[string]interface{}{"bearerAuth": []interface{}{}}},
		"responses": map[string]interface{}{
			"200": map[string]interface{}{
				"description": "Success",
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{"schema": ref("APIResponse")},
				},
			},
			"default": map[string]interface{}{
				"description": "Error",
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{"schema": ref("ErrorResponse")},
				},
			},
		},
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if body != nil {
		op["requestBody"] = body
	}
	return op
}

// getOpenAPISpec returns the OpenAPI 3.0 specification
func getOpenAPISpec() map[string]interface{} {
	templateID := pathParam("id", "Template id")
	snippetID := pathParam("id", "Snippet id")

	paths := map[string]interface{}{
		"/health": map[string]interface{}{
			"get": operation("Store health of the caller", nil, nil),
		},
		"/templates": map[string]interface{}{
			"get":  operation("List templates in order", nil, nil),
			"post": operation("Create a template and make it active", nil, jsonBody("CreateTemplateRequest")),
		},
		"/templates/order": map[string]interface{}{
			"put": operation("Reorder templates", nil, jsonBody("OrderRequest")),
		},
		"/templates/{id}": map[string]interface{}{
			"get":   operation("Get a template with its snippets and values", []interface{}{templateID}, nil),
			"patch": operation("Rename a template", []interface{}{templateID}, jsonBody("RenameTemplateRequest")),
			"delete": operation("Delete a template; masters need confirm=true", []interface{}{
				templateID,
				queryParam("confirm", "boolean", "Confirm cascading deletion of a master template"),
			}, nil),
		},
		"/templates/{id}/activate": map[string]interface{}{
			"post": operation("Make a template active", []interface{}{templateID}, nil),
		},
		"/templates/{id}/type": map[string]interface{}{
			"post": operation("Set or clear the type of a template", []interface{}{templateID}, jsonBody("SetTypeRequest")),
		},
		"/templates/{id}/snippets": map[string]interface{}{
			"post": operation("Add a snippet to a template", []interface{}{templateID}, jsonBody("SnippetRequest")),
		},
		"/templates/{id}/snippets/order": map[string]interface{}{
			"put": operation("Reorder the snippets of a template", []interface{}{templateID}, jsonBody("OrderRequest")),
		},
		"/templates/{id}/placeholders/{key}": map[string]interface{}{
			"put": operation("Set a placeholder value", []interface{}{
				templateID,
				pathParam("key", "Placeholder key without braces"),
			}, jsonBody("PlaceholderRequest")),
		},
		"/templates/{id}/render": map[string]interface{}{
			"get": operation("Render the enabled snippets of a template", []interface{}{
				templateID,
				queryParam("format", "string", "text, json, spans or markdown"),
				queryParam("width", "integer", "Word wrap width for markdown"),
			}, nil),
		},
		"/snippets/{id}": map[string]interface{}{
			"patch":  operation("Edit a snippet", []interface{}{snippetID}, jsonBody("SnippetRequest")),
			"delete": operation("Delete a snippet", []interface{}{snippetID}, nil),
		},
		"/snippets/{id}/toggle": map[string]interface{}{
			"post": operation("Enable or disable a snippet", []interface{}{snippetID}, nil),
		},
		"/snippets/{id}/categories": map[string]interface{}{
			"get": operation("List category options for a snippet", []interface{}{snippetID}, nil),
		},
		"/types": map[string]interface{}{
			"get":  operation("List template types", nil, nil),
			"post": operation("Create a template type from a master template", nil, jsonBody("CreateTypeRequest")),
		},
		"/search": map[string]interface{}{
			"get": operation("Fuzzy search templates", []interface{}{queryParam("q", "string", "Search query")}, nil),
		},
	}

	str := map[string]interface{}{"type": "string"}
	object := func(required []string, props map[string]interface{}) map[string]interface{} {
		schema := map[string]interface{}{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Prompt Composer API",
			"description": "Compose prompts from categorized snippets with placeholders and template types",
			"version":     "1.0.0",
		},
		"servers": []interface{}{
			map[string]interface{}{"url": "/api/v1"},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{"type": "http", "scheme": "bearer"},
			},
			"schemas": map[string]interface{}{
				"APIResponse": object([]string{"status"}, map[string]interface{}{
					"status":  map[string]interface{}{"type": "string", "example": "success"},
					"data":    map[string]interface{}{},
					"message": str,
				}),
				"ErrorResponse": object([]string{"status", "error"}, map[string]interface{}{
					"status": map[string]interface{}{"type": "string", "example": "error"},
					"error": object([]string{"code", "message"}, map[string]interface{}{
						"code":      str,
						"message":   str,
						"details":   str,
						"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
						"context":   map[string]interface{}{"type": "object"},
					}),
				}),
				"CreateTemplateRequest": object(nil, map[string]interface{}{"name": str}),
				"RenameTemplateRequest": object([]string{"name"}, map[string]interface{}{"name": str}),
				"OrderRequest": object([]string{"ids"}, map[string]interface{}{
					"ids": map[string]interface{}{"type": "array", "items": str},
				}),
				"SetTypeRequest": object(nil, map[string]interface{}{
					"type_id": map[string]interface{}{"type": "string", "nullable": true},
				}),
				"CreateTypeRequest": object([]string{"master_id"}, map[string]interface{}{
					"name":      str,
					"master_id": str,
				}),
				"SnippetRequest": object(nil, map[string]interface{}{
					"label":    str,
					"text":     str,
					"category": str,
				}),
				"PlaceholderRequest": object(nil, map[string]interface{}{"value": str}),
			},
		},
	}
}
