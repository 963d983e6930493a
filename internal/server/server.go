// Package server exposes the intake forms and lookup views as a JSON HTTP
// API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/extrememax/expo-feria/internal/dedupe"
	"github.com/extrememax/expo-feria/internal/intake"
	"github.com/extrememax/expo-feria/internal/location"
	"github.com/extrememax/expo-feria/internal/report"
	"github.com/extrememax/expo-feria/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	CORSOrigins    []string
	WriteRate      float64 // sustained writes per second across all clients
	WriteBurst     int
	MaxUploadBytes int64
	TopN           int
}

func (o *Options) applyDefaults() {
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	if o.WriteRate <= 0 {
		o.WriteRate = 5
	}
	if o.WriteBurst <= 0 {
		o.WriteBurst = 10
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 32 << 20
	}
	if o.TopN <= 0 {
		o.TopN = report.DefaultTopN
	}
}

// Deps are the services the handlers call. Workbook is nil when the store
// is not backed by an xlsx file; the workbook endpoints then answer 404.
type Deps struct {
	Store     store.RowStore
	Intake    *intake.Service
	Locations *location.Cache
	Reports   *report.Cache
	Workbook  *store.WorkbookStore
}

// Server routes requests to the intake services.
type Server struct {
	deps    Deps
	opts    Options
	finder  *dedupe.Finder
	limiter *rate.Limiter
	router  chi.Router
}

// New builds the router.
func New(deps Deps, opts Options) *Server {
	opts.applyDefaults()
	s := &Server{
		deps:    deps,
		opts:    opts,
		finder:  dedupe.NewFinder(deps.Store),
		limiter: rate.NewLimiter(rate.Limit(opts.WriteRate), opts.WriteBurst),
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stands", s.handleStands)
		r.Get("/locations", s.handleLocations)
		r.Get("/duplicates", s.handleDuplicates)
		r.Get("/codes", s.handleCodes)
		r.Get("/codes/top", s.handleTopCodes)
		r.Get("/codes/ids", s.handleCodeIDs)
		r.Get("/prizes", s.handlePrizes)
		r.Get("/summary", s.handleSummary)
		r.Get("/report.xlsx", s.handleExport)
		r.Get("/workbook", s.handleDownload)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/submissions/{category}", s.handleSubmit)
			r.Post("/scores", s.handleScore)
			r.Post("/prizes", s.handlePrize)
			r.Put("/workbook", s.handleUpload)
		})
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "demasiadas solicitudes, intenta de nuevo"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zap.L().Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "error inesperado"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
