package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Institute Timetable API",
        "description": "Generates candidate timetables through the scheduling engine and stores the chosen one per institute.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1/timetables",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetables", "description": "Generation, storage and export of institute timetables"},
        {"name": "Health", "description": "Liveness and readiness checks, served outside the API prefix"}
    ],
    "paths": {
        "/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Request candidate timetables from the scheduling engine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "At least three candidates", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "VALIDATION_ERROR, PRECONDITION_FAILED or engine rejection", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "UPSTREAM_UNAVAILABLE or ENGINE_CONTRACT_VIOLATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/save": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Save the chosen candidate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "VALIDATION_ERROR or ROOM_CONFLICT with error.details.conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/list": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List saved timetables of the institute",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "TENANT_REQUIRED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/details/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a saved timetable with its rows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/header/{id}": {
            "patch": {
                "tags": ["Timetables"],
                "summary": "Toggle visibility or make a timetable current",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PatchHeaderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{id}": {
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a timetable and all of its rows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download a saved timetable as a day by time grid",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CourseInput": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "kind": {"type": "string", "enum": ["Lab", "Lecture"]},
                "creditHours": {"description": "number or numeric string, required for Lecture"}
            },
            "required": ["name", "kind"]
        },
        "RoomInput": {
            "type": "object",
            "properties": {
                "roomNumber": {"type": "string"},
                "roomStatus": {"type": "string", "enum": ["Class", "Lab"]},
                "capacity": {"type": "integer"}
            },
            "required": ["roomNumber"]
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "session": {"type": "string"},
                "year": {"type": "string"},
                "classes": {"type": "array", "items": {"type": "object"}},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/CourseInput"}},
                "instructors": {"type": "array", "items": {"type": "object"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/RoomInput"}},
                "breaks": {
                    "type": "object",
                    "properties": {"start": {"type": "string"}, "end": {"type": "string"}}
                },
                "algorithmVariants": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["session", "year", "courses"]
        },
        "TimetableHeader": {
            "type": "object",
            "properties": {
                "instituteTimeTableID": {"type": "integer"},
                "instituteID": {"type": "string"},
                "session": {"type": "string"},
                "year": {"type": "string"},
                "visibility": {"type": "boolean"},
                "currentStatus": {"type": "boolean"},
                "breakStart": {"type": "string"},
                "breakEnd": {"type": "string"}
            }
        },
        "TimetableDetail": {
            "type": "object",
            "properties": {
                "timeTableID": {"type": "string"},
                "roomNumber": {"type": "string"},
                "roomType": {"type": "string"},
                "className": {"type": "string"},
                "courseName": {"type": "string"},
                "day": {"type": "string"},
                "time": {"type": "string"},
                "instructorName": {"type": "string"}
            },
            "required": ["roomNumber", "className", "courseName", "day", "time", "instructorName"]
        },
        "SaveTimetableRequest": {
            "type": "object",
            "properties": {
                "header": {"$ref": "#/definitions/TimetableHeader"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/TimetableDetail"}}
            },
            "required": ["header", "details"]
        },
        "PatchHeaderRequest": {
            "type": "object",
            "properties": {
                "visibility": {"type": "boolean"},
                "currentStatus": {"type": "boolean"}
            }
        },
        "OccupancyViolation": {
            "type": "object",
            "properties": {
                "roomNumber": {"type": "string"},
                "day": {"type": "string"},
                "time": {"type": "string"}
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
