//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// apiDoc is the static OpenAPI document served at /swagger/doc.json.
const apiDoc = `{
  "swagger": "2.0",
  "info": {"title": "worker API", "version": "1.0", "description": "Sidecar between clients and a local model server."},
  "basePath": "/",
  "paths": {
    "/generate": {"post": {"tags": ["generate"], "consumes": ["application/json"], "produces": ["application/json"],
      "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.Envelope"}}],
      "responses": {"200": {"description": "model server response body"}, "400": {"description": "invalid payload", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
        "502": {"description": "model server unreachable"}, "503": {"description": "model not ready or failed"}, "504": {"description": "model server timed out"}}}},
    "/ping": {"get": {"tags": ["health"], "produces": ["text/plain"], "responses": {"200": {"description": "pong"}}}},
    "/healthcheck": {"get": {"tags": ["health"], "responses": {"200": {"description": "upstream body"}, "404": {"description": "no healthcheck configured"}}}},
    "/status": {"get": {"tags": ["status"], "produces": ["application/json"], "responses": {"200": {"description": "worker status"}}}}
  },
  "definitions": {
    "types.Envelope": {"type": "object", "properties": {"payload": {"type": "object"}, "auth_data": {"type": "object", "description": "opaque autoscaler context, forwarded unchanged"}}},
    "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}}
  }
}`

type staticDoc struct{}

func (staticDoc) ReadDoc() string { return apiDoc }

func init() { swag.Register(swag.Name, staticDoc{}) }

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
