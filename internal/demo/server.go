package demo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SwaggerSpec is the OpenAPI document for the demo payments API. Feeding it
// to set_swagger_spec synthesizes tools that call this server.
const SwaggerSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Demo Payments API", "version": "1.0.0"},
  "paths": {
    "/payments/initiate": {
      "post": {
        "operationId": "initiatePayment",
        "summary": "Initiate a new payment",
        "requestBody": {
          "content": {"application/json": {"schema": {"type": "object"}}}
        },
        "responses": {"200": {"description": "The created payment"}}
      }
    },
    "/payments/{payment_id}/status": {
      "get": {
        "operationId": "getPaymentStatus",
        "summary": "Check the status of a payment",
        "parameters": [
          {"name": "payment_id", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "The payment"},
          "404": {"description": "Unknown payment"}
        }
      }
    },
    "/payouts/send": {
      "post": {
        "operationId": "sendPayout",
        "summary": "Send a payout",
        "requestBody": {
          "content": {"application/json": {"schema": {"type": "object"}}}
        },
        "responses": {"200": {"description": "The created payout"}}
      }
    }
  }
}`

// Server is the demo payments HTTP server.
type Server struct {
	store *PayStore
	http  *http.Server
}

// NewServer creates a demo server with an empty payment store.
func NewServer() *Server {
	return &Server{store: NewPayStore()}
}

// Handler returns the route mux, exported for httptest use.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)
	mux.HandleFunc("POST /payments/initiate", s.handleInitiatePayment)
	mux.HandleFunc("GET /payments/{payment_id}/status", s.handlePaymentStatus)
	mux.HandleFunc("POST /payouts/send", s.handleSendPayout)

	return mux
}

// Start begins serving on addr in a background goroutine.
func (s *Server) Start(_ context.Context, addr string) error {
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go s.http.ListenAndServe()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "demo payments api",
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "demo payments api",
		"spec":    "/openapi.json",
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(SwaggerSpec))
}

type initiatePaymentRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	payment := Payment{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreatePayment(payment); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("payment_id")

	payment, err := s.store.GetPayment(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown payment: "+id)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

type sendPayoutRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Recipient string  `json:"recipient"`
}

func (s *Server) handleSendPayout(w http.ResponseWriter, r *http.Request) {
	var req sendPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	payout := Payout{
		ID:        uuid.NewString(),
		Status:    StatusSent,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Recipient: req.Recipient,
		SentAt:    time.Now().UTC(),
	}
	if err := s.store.CreatePayout(payout); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, payout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
