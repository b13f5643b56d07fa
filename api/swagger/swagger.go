package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Dispatch API",
        "description": "Instructor matching, quoting and payout automation",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Jobs", "description": "Matching, quoting and new-job automation"},
        {"name": "Assignments", "description": "Payouts for completed assignments"},
        {"name": "Rates", "description": "Active rate tables"}
    ],
    "paths": {
        "/jobs/{id}/matches": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Rank eligible instructors for a job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Ranked matches", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Job not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/assign": {
            "post": {
                "tags": ["Jobs"],
                "summary": "Assign the best matching instructor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Assignment proposed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No eligible, unavailable or duplicate", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/quote/preview": {
            "post": {
                "tags": ["Jobs"],
                "summary": "Price a job without storing a quote",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/QuoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Quote breakdown", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Site distance unresolvable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/quote": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Fetch the stored quote of a job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Stored quote", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Job has no quote", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Jobs"],
                "summary": "Store the quote for a job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/QuoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Quote stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Quote already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/process": {
            "post": {
                "tags": ["Jobs"],
                "summary": "Quote a new job and optionally assign an instructor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ProcessJobRequest"}}
                ],
                "responses": {
                    "201": {"description": "Quoted, possibly assigned; meta.outcome tags the result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/payment/preview": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Compute the payout of a completed assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/PaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Payout breakdown", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Assignment not completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/payment": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Record the payout of a completed assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/PaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Payment recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Payment already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rates": {
            "get": {
                "tags": ["Rates"],
                "summary": "Show the active rate tables",
                "responses": {
                    "200": {"description": "Rate tables", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Rates"],
                "summary": "Store rate settings and activate them",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRatesRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rate tables", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid settings", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rates/reload": {
            "post": {
                "tags": ["Rates"],
                "summary": "Rebuild the rate tables from storage",
                "responses": {
                    "200": {"description": "Rate tables", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "QuoteRequest": {
            "type": "object",
            "properties": {
                "session_fee": {"type": "string"},
                "transport_fee": {"type": "string"},
                "material_cost_per_student": {"type": "string"},
                "assistant_count": {"type": "integer", "minimum": 0},
                "margin_rate": {"type": "string"},
                "discount": {"type": "string"},
                "fit_to_budget": {"type": "boolean"},
                "target_budget": {"type": "string"}
            }
        },
        "ProcessJobRequest": {
            "type": "object",
            "allOf": [{"$ref": "#/definitions/QuoteRequest"}],
            "properties": {
                "auto_assign": {"type": "boolean"}
            }
        },
        "PaymentRequest": {
            "type": "object",
            "properties": {
                "session_fee": {"type": "string"},
                "bonus": {"type": "string"},
                "deductions": {"type": "string"}
            }
        },
        "RateSettingInput": {
            "type": "object",
            "required": ["key", "value"],
            "properties": {
                "key": {"type": "string"},
                "value": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "UpdateRatesRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/RateSettingInput"}
                },
                "updated_by": {"type": "string"}
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
