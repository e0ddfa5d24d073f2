package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Univ ERP API",
        "description": "Enrollment and grading engine for academic records",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, tokens and passwords"},
        {"name": "Catalog", "description": "Courses and sections with seat availability"},
        {"name": "Registration", "description": "Enrollment lifecycle"},
        {"name": "Gradebook", "description": "Grade components and final grades"},
        {"name": "Statistics", "description": "Per-section aggregates"},
        {"name": "Transcripts", "description": "Asynchronous transcript documents"},
        {"name": "Admin", "description": "Provisioning and settings"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials or locked account"}
                }
            }
        },
        "/catalog/sections": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Browse sections for a term",
                "parameters": [
                    {"name": "semester", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations": {
            "post": {
                "tags": ["Registration"],
                "summary": "Register for a section",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"section_id": {"type": "string"}}}}
                ],
                "responses": {
                    "201": {"description": "Registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Full section, duplicate or unmet prerequisite"}
                }
            },
            "get": {
                "tags": ["Registration"],
                "summary": "List my registrations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/drop": {
            "post": {
                "tags": ["Registration"],
                "summary": "Drop an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Dropped", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Deadline passed or not active"}
                }
            }
        },
        "/enrollments/{id}/grades": {
            "put": {
                "tags": ["Gradebook"],
                "summary": "Record a grade component",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeComponent"}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/final-grade": {
            "post": {
                "tags": ["Gradebook"],
                "summary": "Compute the final grade",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Computed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Weights below 100"}
                }
            }
        },
        "/admin/maintenance": {
            "post": {
                "tags": ["Admin"],
                "summary": "Toggle maintenance mode",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"enabled": {"type": "boolean"}}}}
                ],
                "responses": {
                    "204": {"description": "Toggled"}
                }
            }
        },
        "/my/sections": {
            "get": {
                "tags": ["Statistics"],
                "summary": "My sections",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sections/{id}/statistics": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Section statistics",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/transcripts": {
            "post": {
                "tags": ["Transcripts"],
                "summary": "Request a transcript",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"student_id": {"type": "string"}, "format": {"type": "string", "enum": ["CSV", "PDF"]}}}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"type": "object"},
                "pagination": {"type": "object"},
                "meta": {"type": "object"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "GradeComponent": {
            "type": "object",
            "required": ["component", "max_score", "weight"],
            "properties": {
                "component": {"type": "string"},
                "score": {"type": "number"},
                "max_score": {"type": "number"},
                "weight": {"type": "number"}
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
