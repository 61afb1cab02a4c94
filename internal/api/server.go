package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/RowanDark/decoder/internal/logging"
	"github.com/RowanDark/decoder/internal/service"
)

// Config configures the REST API server.
type Config struct {
	Addr          string
	Service       *service.Service
	Audit         *logging.AuditLogger
	Logger        *slog.Logger
	MaxImageBytes int64
}

// Server exposes the transforms over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	cfg        Config
	httpServer *http.Server
	svc        *service.Service
	audit      *logging.AuditLogger
	logger     *slog.Logger
}

// NewServer constructs a REST API server using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("api address must be provided")
	}
	if cfg.Service == nil {
		return nil, errors.New("service is required")
	}
	if cfg.MaxImageBytes <= 0 {
		return nil, errors.New("max image bytes must be positive")
	}
	if cfg.Audit == nil {
		cfg.Audit = logging.Discard()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Server{
		cfg:    cfg,
		svc:    cfg.Service,
		audit:  cfg.Audit.WithComponent("api"),
		logger: cfg.Logger.With("component", "api"),
	}, nil
}

// Handler returns the routed handler with request tracking applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/v1/cipher/encrypt", s.handleEncrypt)
	mux.HandleFunc("POST /api/v1/cipher/decrypt", s.handleDecrypt)
	mux.HandleFunc("POST /api/v1/cipher/auto-decrypt", s.handleAutoDecrypt)
	mux.HandleFunc("POST /api/v1/cipher/detect", s.handleDetect)
	mux.HandleFunc("POST /api/v1/cipher/pipeline", s.handlePipeline)
	mux.HandleFunc("POST /api/v1/stego/merge", s.handleMerge)
	mux.HandleFunc("POST /api/v1/stego/unmerge", s.handleUnmerge)
	return s.track(mux)
}

// Run starts the HTTP server and blocks until the provided context is cancelled or a fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http api listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// track assigns a request ID, echoes it in X-Request-ID and audits the call.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(service.WithRequestID(r.Context(), id)))
		elapsed := time.Since(start)

		s.logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", elapsed, "request_id", id)
		outcome := logging.OutcomeSuccess
		if rec.status >= http.StatusBadRequest {
			outcome = logging.OutcomeFailure
		}
		_ = s.audit.Emit(logging.AuditEvent{
			EventType: logging.EventHTTPRequest,
			RequestID: id,
			Operation: r.Method + " " + r.URL.Path,
			Outcome:   outcome,
			Metadata: map[string]any{
				"status":     rec.status,
				"elapsed_ms": elapsed.Milliseconds(),
				"proto":      r.Proto,
			},
		})
	})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string       `json:"error"`
	Kind  service.Kind `json:"kind,omitempty"`
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindInvalidKey, service.KindSizeMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			http.Error(w, "request canceled", http.StatusRequestTimeout)
		} else {
			http.Error(w, "request timeout", http.StatusGatewayTimeout)
		}
		return
	}
	kind := service.Classify(err)
	s.writeJSON(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: service.KindInvalidInput})
}

// decode reads a JSON body of at most limit bytes into dst.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large", Kind: service.KindInvalidInput})
			return false
		}
		if errors.Is(err, io.EOF) {
			s.badRequest(w, "request body is required")
			return false
		}
		s.badRequest(w, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}
