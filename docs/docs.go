// Package docs provides swagger documentation for the Self-Healing Report API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Self-Healing Report API",
        "description": "Collects self-healing locator outcomes reported by browser test runs",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "1.0"
    },
    "host": "{{.Host}}",
    "basePath": "/",
    "paths": {
        "/api/healings": {
            "get": {
                "description": "Returns the newest healing events, optionally for a single locator",
                "produces": ["application/json"],
                "tags": ["Healings"],
                "summary": "List healing events",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Only events for this locator",
                        "name": "locator",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Maximum number of events (default 50, max 500)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Healing events",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/HealingEvent"}
                        }
                    },
                    "400": {
                        "description": "Invalid limit",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Store which strategy resolved a locator (or that none did)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Healings"],
                "summary": "Record a healing event",
                "parameters": [
                    {
                        "description": "Resolution outcome",
                        "name": "event",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/RecordHealingRequest"}
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Recorded event",
                        "schema": {"$ref": "#/definitions/HealingEvent"}
                    },
                    "400": {
                        "description": "Invalid request body",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/api/healings/summary": {
            "get": {
                "description": "Counts successful resolutions per locator and strategy",
                "produces": ["application/json"],
                "tags": ["Healings"],
                "summary": "Strategy summary",
                "responses": {
                    "200": {
                        "description": "Summary rows",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/StrategySummary"}
                        }
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/api/healings/unresolved": {
            "get": {
                "description": "Locators with at least one not-found outcome, most recent first",
                "produces": ["application/json"],
                "tags": ["Healings"],
                "summary": "Unresolved locators",
                "responses": {
                    "200": {
                        "description": "Unresolved locators",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/UnresolvedLocator"}
                        }
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "ok",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {"type": "string"}
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "HealingEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "locator": {"type": "string"},
                "strategy": {"type": "string"},
                "found": {"type": "boolean"},
                "pass": {"type": "integer"},
                "attempts": {"type": "integer"},
                "duration_ms": {"type": "integer"},
                "test_name": {"type": "string"},
                "recorded_at": {"type": "string", "format": "date-time"}
            }
        },
        "RecordHealingRequest": {
            "type": "object",
            "required": ["locator", "attempts"],
            "properties": {
                "locator": {"type": "string", "maxLength": 200},
                "strategy": {"type": "string", "maxLength": 200},
                "found": {"type": "boolean"},
                "pass": {"type": "integer", "minimum": 0},
                "attempts": {"type": "integer", "minimum": 1},
                "duration_ms": {"type": "integer", "minimum": 0},
                "test_name": {"type": "string", "maxLength": 500}
            }
        },
        "StrategySummary": {
            "type": "object",
            "properties": {
                "locator": {"type": "string"},
                "strategy": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "UnresolvedLocator": {
            "type": "object",
            "properties": {
                "locator": {"type": "string"},
                "failures": {"type": "integer"},
                "last_seen": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "description": "API Key for protected endpoints",
            "type": "apiKey",
            "name": "x-api-key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Self-Healing Report API",
	Description:      "Collects self-healing locator outcomes reported by browser test runs",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
