package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Willowdale Rota API",
        "description": "Weekly volunteer scheduling for the Willowdale sanctuary",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Rolling week view and slot management"},
        {"name": "Assignments", "description": "Self-service feeding signup"},
        {"name": "Backups", "description": "Schedule snapshots and restore"},
        {"name": "Volunteers", "description": "Volunteer roster"},
        {"name": "Activities", "description": "Activity types"},
        {"name": "Exports", "description": "CSV/PDF rota exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Rolling week view",
                "parameters": [
                    {"name": "today", "in": "query", "type": "string", "description": "Reference date (YYYY-MM-DD)"}
                ],
                "responses": {"200": {"description": "Week buckets", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Schedule"],
                "summary": "Replace the full schedule atomically",
                "responses": {
                    "200": {"description": "Canonical slot list", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/api/v1/schedule/slots": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List slots ordered by date then time",
                "responses": {"200": {"description": "Slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Schedule"],
                "summary": "Create a slot",
                "responses": {"201": {"description": "Created slot"}}
            }
        },
        "/api/v1/schedule/slots/{id}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get one slot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "Slot"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Schedule"],
                "summary": "Update a slot (full record)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "Updated slot"}}
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Delete a slot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/schedule/slots/{id}/assign": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Sign up for a feeding slot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Assigned slot"},
                    "400": {"description": "Slot already taken or not a feeding slot"}
                }
            }
        },
        "/api/v1/schedule/slots/{id}/unassign": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Release a feeding slot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "Released slot"}}
            }
        },
        "/api/v1/schedule/auto-manage": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Extend the schedule horizon (maintenance tick)",
                "responses": {"200": {"description": "Slots added"}}
            }
        },
        "/api/v1/backups": {
            "get": {
                "tags": ["Backups"],
                "summary": "List snapshots, newest first",
                "responses": {"200": {"description": "Backups"}}
            },
            "post": {
                "tags": ["Backups"],
                "summary": "Snapshot the current schedule",
                "responses": {"201": {"description": "Created backup"}}
            }
        },
        "/api/v1/backups/{id}/restore": {
            "post": {
                "tags": ["Backups"],
                "summary": "Restore the schedule from a snapshot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "Restored slot list"}, "404": {"description": "Not found"}}
            }
        },
        "/api/v1/volunteers": {
            "get": {
                "tags": ["Volunteers"],
                "summary": "List volunteers",
                "responses": {"200": {"description": "Volunteers"}}
            },
            "post": {
                "tags": ["Volunteers"],
                "summary": "Register a volunteer name",
                "responses": {"201": {"description": "Created volunteer"}}
            }
        },
        "/api/v1/activity-types": {
            "get": {
                "tags": ["Activities"],
                "summary": "List activity types",
                "responses": {"200": {"description": "Activity types"}}
            },
            "post": {
                "tags": ["Activities"],
                "summary": "Create an activity type",
                "responses": {"201": {"description": "Created activity type"}}
            }
        },
        "/api/v1/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a rota export (csv or pdf)",
                "responses": {"202": {"description": "Queued job"}}
            }
        },
        "/api/v1/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Check export job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Job state"}}
            }
        },
        "/api/v1/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export artifact via signed token",
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Artifact bytes"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
