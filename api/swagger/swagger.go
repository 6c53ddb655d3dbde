package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Timetable API",
        "description": "Timetable generation and conflict validation for university groups, rooms and teachers.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Scheduler", "description": "Generation, validation and statistics"},
        {"name": "SubjectSchedules", "description": "Manual assignment administration"},
        {"name": "ScheduleOverrides", "description": "Date-specific cancellations and relocations"},
        {"name": "Timetables", "description": "Flattened timetables and exports"}
    ],
    "paths": {
        "/schedule/generate": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Generate a conflict-free timetable for groups",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generation result, success may be false", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown group, subject or day", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No subjects to schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/validate": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Validate persisted assignments of groups",
                "parameters": [
                    {"name": "groupIds", "in": "query", "required": true, "type": "string", "description": "Comma separated group IDs"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedule/statistics": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Schedule fill statistics of groups",
                "parameters": [
                    {"name": "groupIds", "in": "query", "required": true, "type": "string", "description": "Comma separated group IDs"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedule/time-windows": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "List named time windows",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/subject-schedules": {
            "get": {
                "tags": ["SubjectSchedules"],
                "summary": "List assignments of a subject",
                "parameters": [{"name": "subjectId", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["SubjectSchedules"],
                "summary": "Create an assignment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubjectScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Double booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subject-schedules/{id}": {
            "get": {
                "tags": ["SubjectSchedules"],
                "summary": "Get an assignment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["SubjectSchedules"],
                "summary": "Replace an assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubjectScheduleRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Double booking"}}
            },
            "delete": {
                "tags": ["SubjectSchedules"],
                "summary": "Delete an assignment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/subject-schedules/clear": {
            "post": {
                "tags": ["SubjectSchedules"],
                "summary": "Remove a group from its assignments of the given subjects",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClearGroupScheduleRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/subject-schedules/free-slots": {
            "get": {
                "tags": ["SubjectSchedules"],
                "summary": "Free time slots of a day",
                "parameters": [
                    {"name": "dayId", "in": "query", "required": true, "type": "string"},
                    {"name": "groupId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "roomId", "in": "query", "type": "string"},
                    {"name": "weekParity", "in": "query", "type": "string", "enum": ["EVEN", "ODD", "BOTH"]}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/schedule-overrides": {
            "get": {
                "tags": ["ScheduleOverrides"],
                "summary": "List schedule overrides",
                "parameters": [
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "date_from", "in": "query", "type": "string", "format": "date"},
                    {"name": "date_to", "in": "query", "type": "string", "format": "date"},
                    {"name": "is_cancelled", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["ScheduleOverrides"],
                "summary": "Create a schedule override",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleOverrideRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate override"}}
            }
        },
        "/schedule-overrides/{id}": {
            "get": {
                "tags": ["ScheduleOverrides"],
                "summary": "Get a schedule override",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["ScheduleOverrides"],
                "summary": "Replace a schedule override",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleOverrideRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["ScheduleOverrides"],
                "summary": "Delete a schedule override",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/timetables/{owner}/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Timetable of a group, teacher or room",
                "parameters": [
                    {"name": "owner", "in": "path", "required": true, "type": "string", "enum": ["group", "teacher", "room"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/{owner}/{id}/export": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Export a timetable",
                "produces": ["application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "text/csv"],
                "parameters": [
                    {"name": "owner", "in": "path", "required": true, "type": "string", "enum": ["group", "teacher", "room"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "xlsx", "csv"]}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        }
    },
    "definitions": {
        "GenerateScheduleRequest": {
            "type": "object",
            "required": ["groupIds"],
            "properties": {
                "groupIds": {"type": "array", "items": {"type": "string"}},
                "subjectIds": {"type": "array", "items": {"type": "string"}},
                "clearExisting": {"type": "boolean"},
                "preferMorning": {"type": "boolean"},
                "timeWindow": {"type": "string", "enum": ["morning", "mixed", "afternoon", "evening", "full"]},
                "startTime": {"type": "string", "example": "08:00"},
                "endTime": {"type": "string", "example": "14:00"},
                "startDayId": {"type": "string"},
                "endDayId": {"type": "string"},
                "maxAttempts": {"type": "integer"}
            }
        },
        "SubjectScheduleRequest": {
            "type": "object",
            "required": ["subjectId", "dayId", "timeSlotId", "weekParity", "groupIds"],
            "properties": {
                "subjectId": {"type": "string"},
                "dayId": {"type": "string"},
                "timeSlotId": {"type": "string"},
                "weekParity": {"type": "string", "enum": ["EVEN", "ODD", "BOTH"]},
                "groupIds": {"type": "array", "items": {"type": "string"}},
                "teacherIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ClearGroupScheduleRequest": {
            "type": "object",
            "required": ["groupId", "subjectIds"],
            "properties": {
                "groupId": {"type": "string"},
                "subjectIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ScheduleOverrideRequest": {
            "type": "object",
            "required": ["subjectId", "date", "timeSlotId"],
            "properties": {
                "subjectId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "timeSlotId": {"type": "string"},
                "roomId": {"type": "string"},
                "isCancelled": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
