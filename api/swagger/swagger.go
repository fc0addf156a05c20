package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClassTrack API",
        "description": "Classroom attendance tracking with QR sessions, geofencing and reports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, registration and token verification"},
        {"name": "Students", "description": "Student enrollment and self-service"},
        {"name": "Classes", "description": "Class groups and rosters"},
        {"name": "Teachers", "description": "Teaching profile"},
        {"name": "Attendance", "description": "Attendance marking, QR sessions and reports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a teacher account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
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
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/verify": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Verify the current token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Enroll a student and provision their login",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created; generated credentials returned once"},
                    "409": {"description": "Roll number already enrolled"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get a student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete a student; attendance history is retained",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/students/me/profile": {
            "get": {
                "tags": ["Students"],
                "summary": "Complete profile for the logged-in student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/me/qr-code": {
            "get": {
                "tags": ["Students"],
                "summary": "Personal identity QR token",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List class groups",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create a class group (FE/SE/TE/BE + section)",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/classes/{id}/students": {
            "get": {
                "tags": ["Classes"],
                "summary": "Class roster in roll-number order",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/teacher/profile": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Get my teaching profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Teachers"],
                "summary": "Save department, subjects and assigned classes",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/attendance/save": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Save class attendance for one time slot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Saved"},
                    "400": {"description": "Empty or invalid student list"}
                }
            }
        },
        "/attendance/daily-report": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Daily per-subject and per-slot summary",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/attendance/monthly-report": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Monthly class summary",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "month", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/attendance/today-class-report": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Today's slots for one class/subject",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/attendance/dashboard-summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Teacher dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/attendance/report": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Export a student-wise report as PDF or CSV",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Report file"}}
            }
        },
        "/attendance/qr-session": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Open a geofenced QR attendance session",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Session and signed token"}}
            }
        },
        "/attendance/qr-session/{id}": {
            "delete": {
                "tags": ["Attendance"],
                "summary": "Deactivate a QR session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deactivated"}, "404": {"description": "Not found"}}
            }
        },
        "/attendance/mark-by-qr": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Redeem a scanned session token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Marked present"},
                    "401": {"description": "INVALID_TOKEN"},
                    "403": {"description": "OUT_OF_RANGE with distance details"},
                    "409": {"description": "ALREADY_MARKED"},
                    "410": {"description": "SESSION_EXPIRED"}
                }
            }
        },
        "/attendance/verify-location": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Read-only geofence distance check",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["full_name", "email", "password"],
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
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
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
