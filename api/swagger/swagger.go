package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Practicum API",
        "description": "Field placement, timesheet, and site approval workflows",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Placements", "description": "Placement lifecycle"},
        {"name": "Timesheets", "description": "Hour logging and two-stage review"},
        {"name": "Sites", "description": "Agency sites and learning contracts"},
        {"name": "Supervisors", "description": "Pending supervisor review"},
        {"name": "Dashboard", "description": "Program dashboards"}
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
        "/placements": {
            "get": {
                "tags": ["Placements"],
                "summary": "List placements visible to the caller",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "post": {
                "tags": ["Placements"],
                "summary": "Request a new placement",
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}": {
            "get": {
                "tags": ["Placements"],
                "summary": "Get placement detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/approve": {
            "post": {
                "tags": ["Placements"],
                "summary": "Approve a pending placement",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/reject": {
            "post": {
                "tags": ["Placements"],
                "summary": "Reject a pending placement",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/activate": {
            "post": {
                "tags": ["Placements"],
                "summary": "Activate an approved placement",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/archive": {
            "post": {
                "tags": ["Placements"],
                "summary": "Archive a completed placement",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/artifacts": {
            "patch": {
                "tags": ["Placements"],
                "summary": "Update onboarding artifact flags",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/readiness": {
            "get": {
                "tags": ["Placements"],
                "summary": "Check activation readiness",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/hours": {
            "get": {
                "tags": ["Placements"],
                "summary": "Hours summary for a placement",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/placements/{id}/hours/export": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "Download the hours log as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File download"}}
            }
        },
        "/timesheets": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "List timesheet entries",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "post": {
                "tags": ["Timesheets"],
                "summary": "Log hours against a placement",
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/timesheets/{id}": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "Get a timesheet entry",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "patch": {
                "tags": ["Timesheets"],
                "summary": "Edit a draft or rejected entry",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/timesheets/submit-week": {
            "post": {
                "tags": ["Timesheets"],
                "summary": "Submit a week of draft entries for review",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/timesheets/{id}/approve": {
            "post": {
                "tags": ["Timesheets"],
                "summary": "Approve an entry at the caller's review stage",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/timesheets/{id}/reject": {
            "post": {
                "tags": ["Timesheets"],
                "summary": "Reject an entry with a reason",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sites": {
            "get": {
                "tags": ["Sites"],
                "summary": "List sites",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "post": {
                "tags": ["Sites"],
                "summary": "Register a new site",
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sites/{id}/approve": {
            "post": {
                "tags": ["Sites"],
                "summary": "Final-approve a site",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sites/{id}/contracts": {
            "post": {
                "tags": ["Sites"],
                "summary": "Issue a learning contract",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/contracts/submit/{token}": {
            "post": {
                "tags": ["Sites"],
                "summary": "Submit a learning contract (token authenticated)",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/contracts/{id}/review": {
            "post": {
                "tags": ["Sites"],
                "summary": "Review a submitted learning contract",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/supervisors/pending": {
            "get": {
                "tags": ["Supervisors"],
                "summary": "List unresolved pending supervisors",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/supervisors/pending/{id}/resolve": {
            "post": {
                "tags": ["Supervisors"],
                "summary": "Approve or reject a pending supervisor",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Program-wide dashboard counts",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/dashboard/progress": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Per-placement student progress overview",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        }
    },
    "responses": {
        "Envelope": {
            "description": "Standard response envelope",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"}
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
