// Package docs registers the Swagger document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "description": "Asynchronous TCP reachability scans over a host port range or an IPv4 block.",
    "title": "netprobe API",
    "version": "1.0"
  },
  "basePath": "/api/v1",
  "schemes": ["http"],
  "securityDefinitions": {
    "ApiKeyAuth": {
      "type": "apiKey",
      "in": "header",
      "name": "Authorization"
    }
  },
  "paths": {
    "/scans": {
      "post": {
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "tags": ["Scans"],
        "summary": "Create a new scan task",
        "description": "Validates the target and queues the scan. Poll GET /scans/{id} for the report.",
        "security": [{"ApiKeyAuth": []}],
        "parameters": [
          {
            "in": "body",
            "name": "scanRequest",
            "required": true,
            "schema": {"$ref": "#/definitions/CreateScanRequest"}
          }
        ],
        "responses": {
          "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ScanAcceptedResponse"}},
          "400": {"description": "Invalid target, ports or options", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "500": {"description": "Storage failure", "schema": {"$ref": "#/definitions/ErrorResponse"}}
        }
      }
    },
    "/scans/{id}": {
      "get": {
        "produces": ["application/json"],
        "tags": ["Scans"],
        "summary": "Get scan status and report",
        "description": "Returns the task snapshot. The report is present once status is completed.",
        "security": [{"ApiKeyAuth": []}],
        "parameters": [
          {"type": "string", "description": "Scan Task ID (UUID v4)", "name": "id", "in": "path", "required": true}
        ],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScanTask"}},
          "400": {"description": "Malformed task id", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "404": {"description": "Unknown task", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ErrorResponse"}},
          "500": {"description": "Storage failure", "schema": {"$ref": "#/definitions/ErrorResponse"}}
        }
      }
    }
  },
  "definitions": {
    "CreateScanRequest": {
      "type": "object",
      "properties": {
        "target": {"type": "string", "example": "192.0.2.10"},
        "network": {"type": "string", "example": "10.0.0.0/24"},
        "ports": {"type": "string", "example": "1-1000"},
        "threads": {"type": "integer", "minimum": 1, "example": 100},
        "timeout_ms": {"type": "integer", "minimum": 1, "example": 1000}
      }
    },
    "ScanAcceptedResponse": {
      "type": "object",
      "properties": {
        "id": {"type": "string", "format": "uuid"},
        "status": {"type": "string", "enum": ["pending"]}
      }
    },
    "ErrorResponse": {
      "type": "object",
      "properties": {
        "error": {"type": "string", "example": "task not found"}
      }
    },
    "ProbeOutcome": {
      "type": "object",
      "properties": {
        "host": {"type": "string", "example": "127.0.0.1"},
        "port": {"type": "integer", "example": 22},
        "open": {"type": "boolean", "example": true},
        "service": {"type": "string", "example": "SSH"},
        "latency_ns": {"type": "integer", "example": 120000}
      }
    },
    "ScanReport": {
      "type": "object",
      "properties": {
        "results": {"type": "array", "items": {"$ref": "#/definitions/ProbeOutcome"}},
        "scanned": {"type": "integer", "example": 100},
        "open": {"type": "integer", "example": 2},
        "elapsed_ns": {"type": "integer", "example": 1500000000}
      }
    },
    "ScanTask": {
      "type": "object",
      "properties": {
        "id": {"type": "string", "format": "uuid"},
        "status": {"type": "string", "enum": ["pending", "running", "completed", "failed"]},
        "target": {"type": "string"},
        "network": {"type": "string"},
        "ports": {"type": "string", "example": "1-1000"},
        "threads": {"type": "integer"},
        "timeout_ms": {"type": "integer"},
        "report": {"$ref": "#/definitions/ScanReport"},
        "created_at": {"type": "string", "format": "date-time"},
        "started_at": {"type": "string", "format": "date-time"},
        "completed_at": {"type": "string", "format": "date-time"},
        "error": {"type": "string"}
      }
    }
  }
}
`

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

type swaggerDoc struct{}

func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}
