package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func registerSwaggerRoutes(r chi.Router) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	r.Get("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	r.Get("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>M-Pesa Ledger API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "M-Pesa Ledger API",
    "version": "1.0.0"
  },
  "security": [{"BearerAuth": []}],
  "paths": {
    "/transactions/send-money": {
      "post": {
        "summary": "Send money to another wallet by phone number",
        "parameters": [{"$ref": "#/components/parameters/IdempotencyKey"}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["recipientPhone", "amount"],
          "properties": {
            "requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."},
            "recipientPhone": {"type": "string"},
            "amount": {"type": "string", "example": "200.00"},
            "narration": {"type": "string"},
            "pin": {"type": "string"}
          }
        }}}},
        "responses": {"201": {"description": "Completed"}, "409": {"description": "Duplicate request"}, "422": {"description": "Insufficient funds"}}
      }
    },
    "/transactions/withdrawals": {
      "post": {
        "summary": "Withdraw cash at an agent",
        "parameters": [{"$ref": "#/components/parameters/IdempotencyKey"}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["agentNumber", "amount"],
          "properties": {
            "requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."},
            "agentNumber": {"type": "string"},
            "amount": {"type": "string"},
            "pin": {"type": "string"}
          }
        }}}},
        "responses": {"201": {"description": "Completed"}, "409": {"description": "Duplicate request"}, "422": {"description": "Insufficient funds or float"}}
      }
    },
    "/transactions/deposits": {
      "post": {
        "summary": "Agent deposits cash into a customer wallet",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["agentNumber", "customerPhone", "amount"],
          "properties": {
            "requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."},
            "agentNumber": {"type": "string"},
            "customerPhone": {"type": "string"},
            "amount": {"type": "string"}
          }
        }}}},
        "responses": {"201": {"description": "Completed"}, "403": {"description": "Caller does not operate the agent"}, "422": {"description": "Insufficient float"}}
      }
    },
    "/transactions/paybill": {
      "post": {
        "summary": "Pay a PayBill business number",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["businessNumber", "accountReference", "amount"],
          "properties": {
            "requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."},
            "businessNumber": {"type": "string"},
            "accountReference": {"type": "string"},
            "amount": {"type": "string"},
            "pin": {"type": "string"}
          }
        }}}},
        "responses": {"201": {"description": "Completed"}, "404": {"description": "Unknown business number"}}
      }
    },
    "/transactions/buy-goods": {
      "post": {
        "summary": "Pay a till number",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["tillNumber", "amount"],
          "properties": {
            "requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."},
            "tillNumber": {"type": "string"},
            "amount": {"type": "string"},
            "pin": {"type": "string"}
          }
        }}}},
        "responses": {"201": {"description": "Completed"}}
      }
    },
    "/transactions/airtime": {
      "post": {
        "summary": "Buy airtime for own or another line",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["network", "amount"],
          "properties": {
            "requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."},
            "phoneNumber": {"type": "string"},
            "network": {"type": "string", "enum": ["SAFARICOM", "AIRTEL", "TELKOM"]},
            "amount": {"type": "string"},
            "pin": {"type": "string"}
          }
        }}}},
        "responses": {"201": {"description": "Completed"}}
      }
    },
    "/transactions/{transactionID}": {
      "get": {
        "summary": "Get a transaction with its ledger entries",
        "parameters": [{"name": "transactionID", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
      }
    },
    "/wallets/me": {
      "get": {"summary": "Caller's wallet", "responses": {"200": {"description": "OK"}}}
    },
    "/wallets/me/transactions": {
      "get": {
        "summary": "Mini statement",
        "parameters": [{"name": "limit", "in": "query", "schema": {"type": "integer", "maximum": 100}}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/wallets/me/pin": {
      "put": {
        "summary": "Set the transaction PIN",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object", "required": ["pin"], "properties": {"pin": {"type": "string"}}
        }}}},
        "responses": {"200": {"description": "Updated"}, "400": {"description": "Validation error"}}
      }
    },
    "/agents/{agentNumber}/float": {
      "get": {
        "summary": "Agent float history",
        "parameters": [
          {"name": "agentNumber", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "limit", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {"200": {"description": "OK"}, "403": {"description": "Not the agent's operator"}}
      }
    },
    "/agents/{agentNumber}/commissions": {
      "get": {
        "summary": "Agent commission total and newest commission rows",
        "parameters": [
          {"name": "agentNumber", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "limit", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {"200": {"description": "OK"}, "403": {"description": "Not the agent's operator"}, "404": {"description": "Unknown agent"}}
      }
    },
    "/charges/quote": {
      "get": {
        "summary": "Charge calculator",
        "parameters": [
          {"name": "kind", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "amount", "in": "query", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "OK"}, "422": {"description": "Amount outside the charge bands"}}
      }
    },
    "/loan-products": {
      "get": {"summary": "Active loan products", "responses": {"200": {"description": "OK"}}}
    },
    "/loan-products/{productID}/quote": {
      "get": {
        "summary": "Price a loan before applying",
        "parameters": [
          {"name": "productID", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "amount", "in": "query", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "OK"}, "422": {"description": "Amount outside product range"}}
      }
    },
    "/loans": {
      "post": {
        "summary": "Apply for a loan",
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["productId", "amount"],
          "properties": {"productId": {"type": "string"}, "amount": {"type": "string"}, "purpose": {"type": "string"}}
        }}}},
        "responses": {"201": {"description": "Pending"}, "409": {"description": "Outstanding loan exists"}}
      }
    },
    "/loans/{loanID}": {
      "get": {
        "summary": "Loan with repayment history",
        "parameters": [{"name": "loanID", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
      }
    },
    "/loans/{loanID}/repay": {
      "post": {
        "summary": "Repay a disbursed loan",
        "parameters": [{"name": "loanID", "in": "path", "required": true, "schema": {"type": "string"}}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["amount"],
          "properties": {"requestId": {"type": "string", "maxLength": 64, "description": "Required unless the Idempotency-Key header is sent. Unique per caller."}, "amount": {"type": "string"}, "pin": {"type": "string"}}
        }}}},
        "responses": {"200": {"description": "OK"}, "409": {"description": "Loan not repayable"}}
      }
    },
    "/loans/{loanID}/approve": {
      "post": {
        "summary": "Approve and disburse (admin)",
        "parameters": [{"name": "loanID", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "Disbursed"}, "403": {"description": "Admin role required"}, "409": {"description": "Illegal transition"}}
      }
    },
    "/loans/{loanID}/reject": {
      "post": {
        "summary": "Reject a pending application (admin)",
        "parameters": [{"name": "loanID", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "Rejected"}}
      }
    },
    "/internal/charge-bands/reload": {
      "post": {"summary": "Reload charge bands", "security": [{"BasicAuth": []}], "responses": {"200": {"description": "OK"}}}
    },
    "/internal/loans/default-sweep": {
      "post": {
        "summary": "Mark overdue loans defaulted",
        "security": [{"BasicAuth": []}],
        "parameters": [{"name": "asOf", "in": "query", "schema": {"type": "string", "format": "date-time"}}],
        "responses": {"200": {"description": "OK"}}
      }
    }
  },
  "components": {
    "parameters": {
      "IdempotencyKey": {"name": "Idempotency-Key", "in": "header", "description": "Overrides requestId. Unique per caller.", "schema": {"type": "string", "maxLength": 64}}
    },
    "securitySchemes": {
      "BearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
      "BasicAuth": {"type": "http", "scheme": "basic"}
    }
  }
}`
