package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"bankdash/internal/cache"
	"bankdash/internal/core"
	"bankdash/internal/log"
	"bankdash/internal/middleware/ratelimit"
	"bankdash/internal/middleware/security"
	"bankdash/internal/middleware/trace"
	"bankdash/internal/services"
	appweb "bankdash/web"
)

// Bank is the part of the bank service the HTTP layer depends on.
type Bank interface {
	Summary(ctx context.Context) (services.Summary, error)
	Transactions(ctx context.Context, accountID string) ([]core.Transaction, error)
	Transfer(ctx context.Context, fromID, toID, amount string) (core.Transfer, error)
	Ping(ctx context.Context) error
}

// Options configures optional server collaborators.
type Options struct {
	Logger *log.Logger
	// RateLimitPerMinute bounds POST requests per client; zero uses the limiter default
	RateLimitPerMinute int
	// Caches, when set, is reported by /metrics and /readyz
	Caches *cache.Manager
	// Templates overrides the embedded templates
	Templates fs.FS
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For, on top of
	// loopback and private networks
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	bank      Bank
	caches    *cache.Manager
	logger    *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime             time.Time
	transfersCompleted atomic.Int64
	transfersRejected  atomic.Int64
}

func NewServer(addr string, bank Bank, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		bank:             bank,
		caches:           opts.Caches,
		logger:           logger,
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err, log.FieldComponent, log.ComponentSecurity)
		}
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}
	s.rateLimiter = ratelimit.NewLimiter(rlConfig)
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	templatesFS := opts.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	if t, err := template.New("").ParseFS(templatesFS, "templates/*.html"); err != nil {
		logger.Error("Failed to parse templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := security.StaticAssetMiddleware(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
		mux.Handle("GET /static/", static)
	} else {
		logger.Warn("Static assets unavailable", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/transfer-form", s.handleTransferForm)
	mux.HandleFunc("/transfers", s.handleTransfer)
	mux.HandleFunc("GET /api/accounts", s.handleAPIAccounts)
	mux.HandleFunc("GET /api/transactions", s.handleAPITransactions)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited, http.MethodPost)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = s.securityDetector.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldPath, r.URL.Path,
		log.FieldComponent, log.ComponentRateLimit)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerErrorNotification("Too many requests. Please try again later.").
		BodyHTML(`<div class="error">Too many requests</div>`).
		Write(w)
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
