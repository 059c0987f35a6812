package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Unforgotten API",
        "description": "Family calendar aggregation and note sync",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Calendar", "description": "Aggregated family calendar"},
        {"name": "Notes", "description": "Hosted note store"},
        {"name": "Feeds", "description": "iCalendar subscriptions"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/accounts/{accountId}/calendar/events": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Calendar event stream",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "view", "in": "query", "type": "string", "enum": ["all", "family"]},
                    {"name": "types", "in": "query", "type": "string"},
                    {"name": "countdown_types", "in": "query", "type": "string"},
                    {"name": "custom_types", "in": "query", "type": "string"},
                    {"name": "members", "in": "query", "type": "string"},
                    {"name": "cross_account", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/day": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Events of one day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/month": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Month grid with day dots",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "nav", "in": "query", "type": "string", "enum": ["next", "prev", "today"]},
                    {"name": "selected", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/filters": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Available calendar filter options",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/export": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Download the month agenda",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "month", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Agenda file"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/feed": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Signed family calendar subscription URL",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/shares": {
            "post": {
                "tags": ["Calendar"],
                "summary": "Share an appointment or countdown with family members",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShareRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/calendar/shares/{shareId}": {
            "delete": {
                "tags": ["Calendar"],
                "summary": "Stop sharing an event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "shareId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/notes": {
            "get": {
                "tags": ["Notes"],
                "summary": "List notes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "since", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Notes"],
                "summary": "Store a note keyed by its local ID",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Note was deleted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/accounts/{accountId}/notes/{noteId}": {
            "put": {
                "tags": ["Notes"],
                "summary": "Update a note by its remote ID",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "noteId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Notes"],
                "summary": "Soft delete a note",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "accountId", "in": "path", "required": true, "type": "string"},
                    {"name": "noteId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/feeds/family.ics": {
            "get": {
                "tags": ["Feeds"],
                "summary": "Family calendar iCalendar feed",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "iCalendar document"},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ShareRequest": {
            "type": "object",
            "required": ["event_id", "event_type"],
            "properties": {
                "event_id": {"type": "string"},
                "event_type": {"type": "string", "enum": ["appointment", "countdown"]},
                "member_user_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "NoteRequest": {
            "type": "object",
            "required": ["local_id"],
            "properties": {
                "local_id": {"type": "string"},
                "title": {"type": "string"},
                "content": {"type": "string", "format": "byte"},
                "content_plain_text": {"type": "string"},
                "theme": {"type": "string"},
                "is_pinned": {"type": "boolean"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
