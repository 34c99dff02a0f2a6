// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Anonymous login",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.loginResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Live connection count",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.metricsResponse"}}
                }
            }
        },
        "/poll": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Create a poll",
                "parameters": [
                    {"description": "Poll payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.createPollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.createPollResponse"}},
                    "400": {"description": "invalid payload"},
                    "401": {"description": "unauthorized"},
                    "503": {"description": "store unavailable"}
                }
            }
        },
        "/poll/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Get a poll snapshot",
                "parameters": [
                    {"type": "string", "description": "Poll ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/poll.Snapshot"}},
                    "404": {"description": "not found"}
                }
            }
        },
        "/poll/{id}/vote": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Vote for an option",
                "parameters": [
                    {"type": "string", "description": "Poll ID", "name": "id", "in": "path", "required": true},
                    {"description": "Vote payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.voteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.voteResponse"}},
                    "400": {"description": "invalid body or option"},
                    "401": {"description": "unauthorized"},
                    "403": {"description": "poll closed"},
                    "404": {"description": "not found"},
                    "429": {"description": "rate limited"},
                    "503": {"description": "store unavailable, retry"}
                }
            }
        },
        "/polls": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "List polls",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.listPollsResponse"}},
                    "401": {"description": "unauthorized"}
                }
            }
        }
    },
    "definitions": {
        "api.createPollRequest": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "question": {"type": "string"}
            }
        },
        "api.createPollResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "poll": {"$ref": "#/definitions/poll.Snapshot"}
            }
        },
        "api.listPollsResponse": {
            "type": "object",
            "properties": {
                "polls": {"type": "array", "items": {"$ref": "#/definitions/poll.Snapshot"}}
            }
        },
        "api.loginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "api.metricsResponse": {
            "type": "object",
            "properties": {
                "activeUsers": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "api.voteRequest": {
            "type": "object",
            "properties": {
                "optionIdx": {"type": "number"}
            }
        },
        "api.voteResponse": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "message": {"type": "string"},
                "ok": {"type": "boolean"},
                "votedIndex": {"type": "integer"}
            }
        },
        "poll.Snapshot": {
            "type": "object",
            "properties": {
                "closed": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "expiresAt": {"type": "string"},
                "id": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "question": {"type": "string"},
                "votedIndex": {"type": "integer"},
                "votes": {"type": "array", "items": {"type": "integer"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Live Polls API",
	Description:      "Real-time polls with transactional voting and WebSocket fan-out",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
