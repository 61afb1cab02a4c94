// Package service is the single entry point the CLI, HTTP API and gRPC
// surfaces use to run steganography and cipher operations. It adds logging,
// auditing, panic recovery and error classification around the pure
// transforms in internal/stego and internal/cipher.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/logging"
	"github.com/RowanDark/decoder/internal/stego"
)

var (
	// ErrUnexpected wraps any failure that is neither a size mismatch nor a
	// key problem, including recovered panics.
	ErrUnexpected = errors.New("unexpected failure")
	// ErrUnknownCipher is returned when a cipher name is not recognised.
	ErrUnknownCipher = fmt.Errorf("%w: unknown cipher", cipher.ErrInvalidInput)
)

// Kind classifies a failure for the surfaces.
type Kind string

const (
	KindNone         Kind = ""
	KindSizeMismatch Kind = "size_mismatch"
	KindInvalidKey   Kind = "invalid_key"
	KindInvalidInput Kind = "invalid_input"
	KindUnexpected   Kind = "unexpected"
)

// Classify maps err onto one of the error kinds.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, stego.ErrSizeMismatch):
		return KindSizeMismatch
	case errors.Is(err, cipher.ErrInvalidKey):
		return KindInvalidKey
	case errors.Is(err, cipher.ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindUnexpected
	}
}

// Options configures a Service. Zero values fall back to a discarding
// logger, a discarding audit trail and the system random source.
type Options struct {
	Logger *slog.Logger
	Audit  *logging.AuditLogger
	Source cipher.Source
}

// Service runs operations. It is safe for concurrent use.
type Service struct {
	logger   *slog.Logger
	audit    *logging.AuditLogger
	rng      cipher.Source
	detector *cipher.SmartDetector
}

func New(opts Options) *Service {
	s := &Service{
		logger:   opts.Logger,
		audit:    opts.Audit,
		rng:      opts.Source,
		detector: cipher.NewSmartDetector(),
	}
	if s.logger == nil {
		s.logger = logging.NopLogger()
	}
	if s.audit == nil {
		s.audit = logging.Discard()
	}
	if s.rng == nil {
		s.rng = cipher.SystemSource{}
	} else if _, ok := s.rng.(cipher.SystemSource); !ok {
		s.rng = cipher.NewLockedSource(s.rng)
	}
	return s
}

// Ciphers lists the cipher names accepted by Encrypt and Decrypt.
func Ciphers() []string {
	return []string{"caesar", "vigenere", "vernam"}
}

func lookupCipher(name string) (cipher.Cipher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "caesar", "shift":
		return cipher.Caesar{}, nil
	case "vigenere":
		return cipher.Vigenere{}, nil
	case "vernam", "xor":
		return cipher.Vernam{}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCipher, name)
	}
}

// run executes fn, converting panics into ErrUnexpected and recording the
// outcome in the log and the audit trail.
func (s *Service) run(ctx context.Context, op string, meta map[string]any, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "operation panicked", "op", op, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %s: %v", ErrUnexpected, op, r)
		}
		if err != nil && Classify(err) == KindUnexpected && !errors.Is(err, ErrUnexpected) {
			err = fmt.Errorf("%w: %s: %w", ErrUnexpected, op, err)
		}
		s.record(ctx, op, meta, time.Since(start), err)
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

func (s *Service) record(ctx context.Context, op string, meta map[string]any, elapsed time.Duration, err error) {
	event := logging.AuditEvent{
		EventType: logging.EventTransform,
		Operation: op,
		RequestID: RequestID(ctx),
		Metadata:  meta,
		Outcome:   logging.OutcomeSuccess,
	}
	if err != nil {
		event.EventType = logging.EventTransformFailed
		event.Outcome = logging.OutcomeFailure
		event.Reason = err.Error()
		s.logger.WarnContext(ctx, "operation failed", "op", op, "kind", Classify(err), "error", err, "elapsed", elapsed)
	} else {
		s.logger.DebugContext(ctx, "operation complete", "op", op, "elapsed", elapsed)
	}
	if auditErr := s.audit.Emit(event); auditErr != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", auditErr)
	}
}

func (s *Service) keyGenerated(ctx context.Context, op, key string) {
	err := s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventKeyGenerated,
		Operation: op,
		RequestID: RequestID(ctx),
		Metadata:  map[string]any{"key": key, "key_length": len(key)},
		Outcome:   logging.OutcomeInfo,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err)
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request identifier that is copied into audit
// events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the identifier stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
