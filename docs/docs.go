// Package docs holds the OpenAPI document served on /swagger. Regenerate it
// with `swag init -g cmd/server/main.go --v3.1` after changing handler annotations.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/neuronek/backend"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "servers": [
        {"url": "//{{.Host}}{{.BasePath}}"}
    ],
    "paths": {},
    "components": {
        "securitySchemes": {
            "BearerAuth": {
                "type": "apiKey",
                "description": "Bearer token authentication. Format: \"Bearer {token}\"",
                "name": "Authorization",
                "in": "header"
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Neuronek API",
	Description:      "Substance knowledge base, dosage classification and personal ingestion journal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
