// Package server exposes the pickup orchestration flow over HTTP JSON for
// the marketplace UI layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/pickup/internal/telemetry"
	"github.com/tournevent/pickup/pkg/carrier"
	"github.com/tournevent/pickup/pkg/pickup"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the pickup service.
type Server struct {
	port     int
	manager  *pickup.Manager
	registry *carrier.Registry
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	promReg  *prometheus.Registry
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, manager *pickup.Manager, registry *carrier.Registry, logger *otelzap.Logger) *Server {
	promReg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(promReg)

	return &Server{
		port:     cfg.Port,
		manager:  manager,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		promReg:  promReg,
	}
}

// Handler returns the route table, exposed for httptest use.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /v1/carriers", s.handleCarriers)

	mux.HandleFunc("POST /v1/orders/{id}/pickup/quote", s.handleQuote)
	mux.HandleFunc("POST /v1/orders/{id}/pickup/select", s.handleSelect)
	mux.HandleFunc("POST /v1/orders/{id}/pickup", s.handleSchedule)
	mux.HandleFunc("GET /v1/orders/{id}/pickup", s.handleGet)
	mux.HandleFunc("GET /v1/orders/{id}/pickup/status", s.handleStatus)
	mux.HandleFunc("DELETE /v1/orders/{id}/pickup", s.handleClear)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"carriers": s.registry.Names()})
}

// ============================================================================
// Request/response DTOs
// ============================================================================

type addressDTO struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

func (d *addressDTO) toModel() carrier.Address {
	return carrier.Address{
		Street:      d.Street,
		City:        d.City,
		Province:    d.Province,
		PostalCode:  d.PostalCode,
		CountryCode: d.CountryCode,
		ContactName: d.ContactName,
		Phone:       d.Phone,
	}
}

type quoteRequest struct {
	Address    *addressDTO `json:"address,omitempty"`
	FreeText   string      `json:"free_text,omitempty"`
	PickupDate string      `json:"pickup_date"`
	Window     string      `json:"window"`
}

type rateDTO struct {
	RateID      string  `json:"rate_id"`
	Carrier     string  `json:"carrier"`
	ServiceCode string  `json:"service_code"`
	ServiceName string  `json:"service_name,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	ReadyTime   string  `json:"ready_time"`
	CloseTime   string  `json:"close_time"`
}

func rateToDTO(r carrier.RateOption) rateDTO {
	return rateDTO{
		RateID:      r.RateID,
		Carrier:     r.Carrier,
		ServiceCode: r.ServiceCode,
		ServiceName: r.ServiceName,
		Amount:      r.Total.Amount,
		Currency:    r.Total.Currency,
		ReadyTime:   r.ReadyTime,
		CloseTime:   r.CloseTime,
	}
}

type selectRequest struct {
	RateID string `json:"rate_id"`
}

type confirmationDTO struct {
	PRN        string   `json:"prn"`
	Carrier    string   `json:"carrier"`
	PickupDate string   `json:"pickup_date"`
	Window     string   `json:"window"`
	Rate       rateDTO  `json:"rate"`
	Warnings   []string `json:"warnings,omitempty"`
}

type statusDTO struct {
	Code        string    `json:"code"`
	Message     string    `json:"message,omitempty"`
	ServiceDate string    `json:"service_date,omitempty"`
	ReadyTime   string    `json:"ready_time,omitempty"`
	CloseTime   string    `json:"close_time,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	start := time.Now()

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "quote", &carrier.ValidationError{Reason: "invalid JSON: " + err.Error()})
		return
	}

	var addr carrier.Address
	if req.Address != nil {
		addr = req.Address.toModel()
	}
	if req.FreeText != "" {
		addr = carrier.ParseAddress(req.FreeText, addr)
	}

	sess, err := s.manager.Session(r.Context(), orderID)
	if err != nil {
		s.writeError(w, "quote", err)
		return
	}

	rates, err := sess.QuoteRates(r.Context(), addr, req.PickupDate, carrier.TimeWindow(req.Window))
	if err != nil {
		s.metrics.RecordRequest("quote", s.carrierName(), "error", time.Since(start).Seconds())
		s.writeError(w, "quote", err)
		return
	}
	s.metrics.RecordRequest("quote", s.carrierName(), "ok", time.Since(start).Seconds())

	out := make([]rateDTO, len(rates))
	for i, rate := range rates {
		out[i] = rateToDTO(rate)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": sess.State().String(),
		"rates": out,
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "select", &carrier.ValidationError{Reason: "invalid JSON: " + err.Error()})
		return
	}

	sess, err := s.manager.Session(r.Context(), orderID)
	if err != nil {
		s.writeError(w, "select", err)
		return
	}
	if err := sess.SelectRate(req.RateID); err != nil {
		s.writeError(w, "select", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"state": sess.State().String()})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	start := time.Now()

	sess, err := s.manager.Session(r.Context(), orderID)
	if err != nil {
		s.writeError(w, "schedule", err)
		return
	}

	resp, err := sess.Schedule(r.Context())
	if err != nil {
		s.metrics.RecordRequest("schedule", s.carrierName(), "error", time.Since(start).Seconds())
		s.writeError(w, "schedule", err)
		return
	}
	s.metrics.RecordRequest("schedule", s.carrierName(), "ok", time.Since(start).Seconds())

	writeJSON(w, http.StatusCreated, confirmationDTO{
		PRN:        resp.Confirmation.PRN,
		Carrier:    resp.Confirmation.Carrier,
		PickupDate: resp.Confirmation.PickupDate,
		Window:     string(resp.Confirmation.Window),
		Rate:       rateToDTO(resp.Confirmation.Rate),
		Warnings:   resp.Warnings,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	sess, err := s.manager.Session(r.Context(), orderID)
	if err != nil {
		s.writeError(w, "get", err)
		return
	}

	body := map[string]any{"state": sess.State().String()}
	if conf := sess.Confirmation(); conf != nil {
		body["confirmation"] = confirmationDTO{
			PRN:        conf.PRN,
			Carrier:    conf.Carrier,
			PickupDate: conf.PickupDate,
			Window:     string(conf.Window),
			Rate:       rateToDTO(conf.Rate),
		}
	}
	if st := sess.Status(); st != nil {
		body["status"] = statusToDTO(st)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	start := time.Now()

	sess, err := s.manager.Session(r.Context(), orderID)
	if err != nil {
		s.writeError(w, "status", err)
		return
	}

	st, err := sess.RefreshStatus(r.Context())
	if err != nil {
		s.metrics.RecordRequest("status", s.carrierName(), "error", time.Since(start).Seconds())
		s.writeError(w, "status", err)
		return
	}
	s.metrics.RecordRequest("status", s.carrierName(), "ok", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, statusToDTO(st))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	sess, err := s.manager.Session(r.Context(), orderID)
	if err != nil {
		s.writeError(w, "clear", err)
		return
	}
	if err := sess.Clear(r.Context()); err != nil {
		s.writeError(w, "clear", err)
		return
	}
	s.manager.Drop(orderID)

	w.WriteHeader(http.StatusNoContent)
}

func statusToDTO(st *carrier.PickupStatus) statusDTO {
	return statusDTO{
		Code:        st.Code,
		Message:     st.Message,
		ServiceDate: st.ServiceDate,
		ReadyTime:   st.ReadyTime,
		CloseTime:   st.CloseTime,
		RetrievedAt: st.RetrievedAt,
	}
}

func (s *Server) carrierName() string {
	names := s.registry.Names()
	if len(names) == 1 {
		return names[0]
	}
	return "multi"
}

// ============================================================================
// Error rendering
// ============================================================================

type errorBody struct {
	Kind          string   `json:"kind"`
	Message       string   `json:"message"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Hint          string   `json:"hint,omitempty"`
	Retryable     bool     `json:"retryable,omitempty"`
}

// writeError renders the error taxonomy so the UI can route on kind:
// a missing-address failure should send the user to address entry, not to
// a generic failure banner.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	var (
		status int
		body   errorBody
	)

	var validationErr *carrier.ValidationError
	var inputErr *carrier.InputError
	var authErr *carrier.AuthError
	var timeoutErr *carrier.TimeoutError
	var protocolErr *carrier.ProtocolError
	var carrierErr *carrier.CarrierError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
		body = errorBody{Kind: "validation", Message: err.Error(), MissingFields: validationErr.MissingFields}
	case errors.Is(err, carrier.ErrMissingIdentifier):
		status = http.StatusBadRequest
		body = errorBody{Kind: "missing_identifier", Message: err.Error()}
	case errors.As(err, &inputErr):
		status = http.StatusUnprocessableEntity
		body = errorBody{Kind: "invalid_" + string(inputErr.Kind), Message: err.Error(), Hint: inputErr.Hint}
		s.metrics.RecordError(inputErr.Carrier, "invalid_input")
	case errors.As(err, &authErr):
		status = http.StatusBadGateway
		body = errorBody{Kind: "auth_failure", Message: err.Error()}
		s.metrics.RecordError(authErr.Carrier, "auth_failure")
	case errors.As(err, &timeoutErr):
		status = http.StatusGatewayTimeout
		body = errorBody{Kind: "timeout", Message: err.Error(), Retryable: timeoutErr.Retryable}
		s.metrics.RecordError(timeoutErr.Carrier, "timeout")
	case errors.As(err, &protocolErr):
		status = http.StatusBadGateway
		body = errorBody{Kind: "protocol", Message: err.Error()}
		s.metrics.RecordError(protocolErr.Carrier, "protocol")
	case errors.As(err, &carrierErr):
		status = http.StatusBadGateway
		body = errorBody{Kind: "carrier", Message: err.Error(), Retryable: carrierErr.Retryable}
		s.metrics.RecordError(carrierErr.Carrier, "carrier")
	default:
		status = http.StatusInternalServerError
		body = errorBody{Kind: "internal", Message: err.Error()}
	}

	s.logger.Warn("Request failed",
		zap.String("operation", op),
		zap.String("kind", body.Kind),
		zap.Error(err),
	)
	writeJSON(w, status, map[string]any{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
