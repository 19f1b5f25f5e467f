package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Institute CRM API",
        "description": "Enquiry lifecycle, admissions and billing backend for institute branches",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and session management"},
        {"name": "Enquiries", "description": "Enquiry pipeline and status transitions"},
        {"name": "Follow-ups", "description": "Scheduled follow-ups per enquiry"},
        {"name": "Call Logs", "description": "Telecaller call records"},
        {"name": "Assignments", "description": "Bulk telecaller assignment jobs"},
        {"name": "Admissions", "description": "Enrollment records"},
        {"name": "Billing", "description": "Invoices and payment receipts"},
        {"name": "Expenses", "description": "Branch expense tracking"},
        {"name": "Catalog", "description": "Branches, sources, courses and services"},
        {"name": "Users", "description": "Staff account management"},
        {"name": "Reports", "description": "Dashboard aggregates and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue tokens",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the active refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the current user's password",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries": {
            "get": {
                "tags": ["Enquiries"],
                "summary": "List enquiries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "branchId", "in": "query", "type": "string"},
                    {"name": "sourceId", "in": "query", "type": "string"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enquiries"],
                "summary": "Create enquiry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEnquiryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}": {
            "get": {
                "tags": ["Enquiries"],
                "summary": "Get enquiry detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Enquiries"],
                "summary": "Update enquiry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEnquiryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}/status": {
            "patch": {
                "tags": ["Enquiries"],
                "summary": "Transition enquiry status",
                "description": "Applies the status change and records the matching activity in one transaction.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not assigned to caller", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}/enroll-direct": {
            "post": {
                "tags": ["Enquiries"],
                "summary": "Enroll an enquiry directly",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}/timeline": {
            "get": {
                "tags": ["Enquiries"],
                "summary": "Reconciled activity timeline",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}/follow-ups": {
            "get": {
                "tags": ["Follow-ups"],
                "summary": "List follow-ups for an enquiry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Follow-ups"],
                "summary": "Schedule a follow-up",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFollowUpRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/follow-ups/pending": {
            "get": {
                "tags": ["Follow-ups"],
                "summary": "Pending follow-ups for the current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/follow-ups/{id}": {
            "patch": {
                "tags": ["Follow-ups"],
                "summary": "Resolve or reschedule a follow-up",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveFollowUpRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}/calls": {
            "get": {
                "tags": ["Call Logs"],
                "summary": "List call logs for an enquiry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Call Logs"],
                "summary": "Record a call",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCallLogRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign enquiries to a telecaller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/jobs": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignment jobs",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "userId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Create a bulk assignment job",
                "description": "Validates the window before writing; jobs with a past start date are rejected outright.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssignmentJobRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/jobs/{id}": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Get an assignment job",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enquiries/{id}/admission": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Admit an enquiry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAdmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already admitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions": {
            "get": {
                "tags": ["Admissions"],
                "summary": "List admissions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "branchId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invoices": {
            "get": {
                "tags": ["Billing"],
                "summary": "List invoices",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Billing"],
                "summary": "Create invoice",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateInvoiceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invoices/{id}": {
            "get": {
                "tags": ["Billing"],
                "summary": "Get invoice with receipts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invoices/{id}/receipts": {
            "post": {
                "tags": ["Billing"],
                "summary": "Record a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReceiptRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Exceeds balance", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses": {
            "get": {
                "tags": ["Expenses"],
                "summary": "List expenses",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Expenses"],
                "summary": "Create expense",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/expenses/{id}": {
            "get": {
                "tags": ["Expenses"],
                "summary": "Get expense",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Expenses"],
                "summary": "Update expense",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Expenses"],
                "summary": "Delete expense",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/branches": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List branches",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create branch",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sources": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List enquiry sources",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create enquiry source",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List courses",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create course",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/services": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List billable services",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create billable service",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update user",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/dashboard": {
            "get": {
                "tags": ["Reports"],
                "summary": "Dashboard aggregates",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "branchId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/enquiries/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export enquiries as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Signed download link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/downloads": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download an export by signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Expired or unknown token"}
                }
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
        "CreateEnquiryRequest": {
            "type": "object",
            "required": ["candidate_name", "phone", "branch_id", "source_id"],
            "properties": {
                "candidate_name": {"type": "string"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "branch_id": {"type": "string"},
                "source_id": {"type": "string"},
                "course_id": {"type": "string"},
                "assigned_to": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "UpdateEnquiryRequest": {
            "type": "object",
            "properties": {
                "candidate_name": {"type": "string"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "course_id": {"type": "string"},
                "assigned_to": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "CreateFollowUpRequest": {
            "type": "object",
            "required": ["scheduled_at"],
            "properties": {
                "scheduled_at": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"}
            }
        },
        "ResolveFollowUpRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "outcome": {"type": "string"},
                "notes": {"type": "string"},
                "rescheduled_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateCallLogRequest": {
            "type": "object",
            "required": ["call_date"],
            "properties": {
                "call_date": {"type": "string", "format": "date-time"},
                "duration": {"type": "integer"},
                "outcome": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "AssignRequest": {
            "type": "object",
            "required": ["enquiry_ids", "user_id"],
            "properties": {
                "enquiry_ids": {"type": "array", "items": {"type": "string"}},
                "user_id": {"type": "string"}
            }
        },
        "CreateAssignmentJobRequest": {
            "type": "object",
            "required": ["name", "start_date", "user_id", "enquiry_ids"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "remarks": {"type": "string"},
                "user_id": {"type": "string"},
                "enquiry_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateAdmissionRequest": {
            "type": "object",
            "required": ["course_id", "admission_date", "total_fee"],
            "properties": {
                "course_id": {"type": "string"},
                "admission_date": {"type": "string", "format": "date-time"},
                "total_fee": {"type": "number"},
                "discount": {"type": "number"},
                "remarks": {"type": "string"}
            }
        },
        "CreateInvoiceRequest": {
            "type": "object",
            "required": ["enquiry_id", "amount"],
            "properties": {
                "enquiry_id": {"type": "string"},
                "admission_id": {"type": "string"},
                "service_id": {"type": "string"},
                "amount": {"type": "number"},
                "due_date": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"}
            }
        },
        "CreateReceiptRequest": {
            "type": "object",
            "required": ["amount", "payment_mode", "paid_at"],
            "properties": {
                "amount": {"type": "number"},
                "payment_mode": {"type": "string"},
                "paid_at": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"}
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
