package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bankdash/internal/core"
	"bankdash/internal/log"
	"bankdash/internal/middleware/trace"
)

const transferCompletedMessage = "Transfer completed successfully"

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name, reason string) {
		checks[name] = "failed: " + reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.bank == nil {
		fail("store", "not configured")
	} else if err := s.bank.Ping(ctx); err != nil {
		fail("store", err.Error())
	} else {
		checks["store"] = "ok"
	}

	if s.caches != nil {
		stats := s.caches.Stats()
		checks["cache"] = map[string]any{
			"entries": stats.Entries,
			"status":  "ok",
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus-like text format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_response_time_microseconds_avg Average response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_microseconds_avg gauge\n")
	fmt.Fprintf(w, "http_response_time_microseconds_avg %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP transfers_total Transfers handled over HTTP by outcome\n")
	fmt.Fprintf(w, "# TYPE transfers_total counter\n")
	fmt.Fprintf(w, "transfers_total{outcome=\"completed\"} %d\n", s.appMetrics.transfersCompleted.Load())
	fmt.Fprintf(w, "transfers_total{outcome=\"rejected\"} %d\n\n", s.appMetrics.transfersRejected.Load())

	if s.caches != nil {
		stats := s.caches.Stats()
		fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
		fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
		fmt.Fprintf(w, "cache_hits_total %d\n\n", stats.Hits)

		fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
		fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
		fmt.Fprintf(w, "cache_misses_total %d\n\n", stats.Misses)

		fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
		fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
		fmt.Fprintf(w, "cache_entries %d\n\n", stats.Entries)
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

// loadDashboard gathers everything the dashboard templates render.
func (s *Server) loadDashboard(ctx context.Context, tab, account string) (dashboardView, error) {
	sum, err := s.bank.Summary(ctx)
	if err != nil {
		return dashboardView{}, fmt.Errorf("load summary: %w", err)
	}
	if _, ok := core.FindAccount(sum.Accounts, account); !ok {
		account = ""
	}
	all, err := s.bank.Transactions(ctx, "")
	if err != nil {
		return dashboardView{}, fmt.Errorf("load transactions: %w", err)
	}
	filtered := core.FilterByAccount(all, account)
	return newDashboardView(sum, all, filtered, tab, account), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		MethodNotAllowedError("GET, HEAD").Write(w)
		return
	}
	s.render(w, r, "index.html", r.URL.Query().Get("tab"), r.URL.Query().Get("account"))
}

// handleDashboard renders the dashboard fragment swapped in by tabs, account
// filters and the refresh after a transfer.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard", r.URL.Query().Get("tab"), r.URL.Query().Get("account"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name, tab, account string) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	view, err := s.loadDashboard(r.Context(), tab, sanitizeInput(account))
	if err != nil {
		logger.ErrorContext(r.Context(), "Dashboard load failed", log.FieldError, err)
		InternalServerError("Unable to load accounts").Write(w)
		return
	}
	s.executeTemplate(w, r, name, view)
}

// handleTransferForm renders the transfer form; the destination list
// excludes the selected source account.
func (s *Server) handleTransferForm(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	sum, err := s.bank.Summary(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Summary load failed", log.FieldError, err)
		InternalServerError("Unable to load accounts").Write(w)
		return
	}
	q := r.URL.Query()
	form := newTransferForm(sum.Accounts, sanitizeInput(q.Get("from")), sanitizeInput(q.Get("to")))
	form.Amount = sanitizeInput(q.Get("amount"))
	s.executeTemplate(w, r, "transfer_form", form)
}

func (s *Server) executeTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	// a failing template must not leave a partial page behind
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldOperation, log.OpRender)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// handleTransfer applies a transfer posted by the form or as JSON. Rejections
// answer 422 with the user facing message; htmx clients receive it as a
// notification trigger.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	logger := log.FromContext(r.Context())

	in, isJSON, err := ParseTransferInput(r)
	if err != nil {
		logger.WarnContext(r.Context(), "Invalid transfer request body", log.FieldError, err)
		if isJSON || wantsJSON(r) {
			writeJSONError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		BadRequestError("Invalid request format").Write(w)
		return
	}
	jsonClient := isJSON || wantsJSON(r)

	transfer, err := s.bank.Transfer(r.Context(), in.FromAccountID, in.ToAccountID, in.Amount)
	if err != nil {
		if te, ok := core.IsTransferError(err); ok {
			s.appMetrics.transfersRejected.Add(1)
			if jsonClient {
				NewHTMXResponse().
					Status(http.StatusUnprocessableEntity).
					BodyJSON(map[string]string{"error": te.Message, "kind": string(te.Kind)}).
					Write(w)
				return
			}
			UnprocessableEntityError(te.Message).
				TriggerErrorNotification(te.Message).
				Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Transfer failed",
			log.FieldError, err,
			log.FieldFromAccount, in.FromAccountID,
			log.FieldToAccount, in.ToAccountID,
			log.FieldOperation, log.OpTransfer)
		if jsonClient {
			writeJSONError(w, r, http.StatusInternalServerError, "transfer failed")
			return
		}
		InternalServerError("Transfer failed, please try again").
			TriggerErrorNotification("Transfer failed, please try again").
			Write(w)
		return
	}
	s.appMetrics.transfersCompleted.Add(1)

	if jsonClient {
		NewHTMXResponse().BodyJSON(transfer).Write(w)
		return
	}
	NewHTMXResponse().
		TriggerTransferCompleted(transfer).
		TriggerFormReset().
		TriggerSuccessNotification(transferCompletedMessage).
		BodyHTML(`<div class="success">` + transferCompletedMessage + `</div>`).
		Write(w)
}

func (s *Server) handleAPIAccounts(w http.ResponseWriter, r *http.Request) {
	sum, err := s.bank.Summary(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Summary load failed", log.FieldError, err)
		writeJSONError(w, r, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	NewHTMXResponse().BodyJSON(sum).Write(w)
}

func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	account := sanitizeInput(r.URL.Query().Get("account"))
	txs, err := s.bank.Transactions(r.Context(), account)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transactions load failed",
			log.NewFields().WithAccount(account).WithError(err).ToSlice()...)
		writeJSONError(w, r, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	NewHTMXResponse().BodyJSON(map[string]any{"transactions": txs}).Write(w)
}

// writeJSONError answers API clients with the message and the request id
// under which the failure was logged.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	NewHTMXResponse().
		Status(status).
		BodyJSON(map[string]string{"error": msg, "requestId": trace.GetRequestID(r.Context())}).
		Write(w)
}

// wantsJSON reports whether a non-htmx client asked for JSON.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
