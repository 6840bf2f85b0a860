package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OR Scheduler API",
        "description": "Weekly operating-room slot allocation with duration and delay-risk prediction",
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
        {"name": "Schedule", "description": "Weekly schedule generation and export"},
        {"name": "Prediction", "description": "Single-case duration and delay estimates"},
        {"name": "Import", "description": "Spreadsheet batch scheduling"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/schedule": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Build a weekly operating-room schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Pass exceeded its deadline", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List stored schedule runs",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Fetch a generated schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/export": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Download a schedule as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/predict": {
            "post": {
                "tags": ["Prediction"],
                "summary": "Predict duration and delay risk for one surgery",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SurgeryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Model service unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batch-import": {
            "post": {
                "tags": ["Import"],
                "summary": "Schedule surgeries from a CSV upload",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "start_date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/template": {
            "get": {
                "tags": ["Import"],
                "summary": "Download the batch import template",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Service counters in JSON",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SurgeryRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "patient_age": {"type": "integer"},
                "bmi": {"type": "number"},
                "surgery_type": {"type": "string"},
                "surgeon": {"type": "string"},
                "anesthesiologist": {"type": "string"},
                "nurse": {"type": "string"},
                "day_of_week": {"type": "string"},
                "time_preference": {"type": "string"},
                "pre_op_prep_time": {"type": "number"},
                "transfer_to_or_time": {"type": "number"},
                "anesthesia_time": {"type": "number"},
                "positioning_time": {"type": "number"},
                "comorbidities": {"type": "string"},
                "instrument_ready": {"type": "string", "enum": ["Y", "N"]},
                "pacu_bed_ready": {"type": "string", "enum": ["Y", "N"]},
                "total_or_time": {"type": "number"},
                "scheduled_start": {"type": "string"}
            },
            "required": ["surgery_type", "scheduled_start"]
        },
        "ScheduleOptions": {
            "type": "object",
            "properties": {
                "rooms": {"type": "integer"},
                "start_hour": {"type": "integer"},
                "end_hour": {"type": "integer"},
                "slot_minutes": {"type": "integer"},
                "cleanup_minutes": {"type": "integer"},
                "weekdays": {"type": "array", "items": {"type": "string"}},
                "horizon_days": {"type": "integer"},
                "timezone": {"type": "string"}
            }
        },
        "ScheduleRequest": {
            "type": "object",
            "properties": {
                "start_date": {"type": "string"},
                "surgeries": {"type": "array", "items": {"$ref": "#/definitions/SurgeryRequest"}},
                "options": {"$ref": "#/definitions/ScheduleOptions"}
            },
            "required": ["start_date", "surgeries"]
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
