package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/decoder/internal/redact"
)

type EventType string

const (
	EventTransform       EventType = "transform"
	EventTransformFailed EventType = "transform_failed"
	EventKeyGenerated    EventType = "key_generated"
	EventRPCCall         EventType = "rpc_call"
	EventHTTPRequest     EventType = "http_request"
	EventLifecycle       EventType = "lifecycle"
)

type Outcome string

const (
	OutcomeInfo    Outcome = "info"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	RequestID string         `json:"request_id,omitempty"`
	EventType EventType      `json:"event_type"`
	Operation string         `json:"operation,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Outcome   Outcome        `json:"outcome,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// ErrClosed is returned by Emit once the logger's sinks have been closed.
var ErrClosed = errors.New("audit logger closed")

// Option adjusts where a new AuditLogger writes.
type Option func(*settings) error

type settings struct {
	stdout bool
	sinks  []io.Writer
	files  []*os.File
}

func (s *settings) closeFiles() {
	for _, f := range s.files {
		_ = f.Close()
	}
}

// WithWriter adds w as an audit sink.
func WithWriter(w io.Writer) Option {
	return func(s *settings) error {
		if w == nil {
			return errors.New("audit writer is nil")
		}
		s.sinks = append(s.sinks, w)
		return nil
	}
}

// WithFile appends audit lines to path, creating it with 0600 permissions.
func WithFile(path string) Option {
	return func(s *settings) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return errors.New("audit file path is empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit file: %w", err)
		}
		s.sinks = append(s.sinks, f)
		s.files = append(s.files, f)
		return nil
	}
}

// WithoutStdout drops the default stdout sink.
func WithoutStdout() Option {
	return func(s *settings) error {
		s.stdout = false
		return nil
	}
}

// sink serialises whole lines so concurrent emitters never interleave.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	files  []*os.File
	closed bool
}

func (k *sink) writeLine(line []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	_, err := k.out.Write(line)
	return err
}

func (k *sink) close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	var errs []error
	for _, f := range k.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// AuditLogger writes redacted JSON audit events, one per line. Loggers
// derived with WithComponent share the parent's sinks; only the root
// logger closes them.
type AuditLogger struct {
	component string
	sink      *sink
	root      bool
}

// NewAuditLogger builds a logger that writes to stdout plus any sinks added
// by opts.
func NewAuditLogger(component string, opts ...Option) (*AuditLogger, error) {
	s := &settings{stdout: true}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.closeFiles()
			return nil, err
		}
	}
	if s.stdout {
		s.sinks = append([]io.Writer{os.Stdout}, s.sinks...)
	}
	if len(s.sinks) == 0 {
		return nil, errors.New("audit logger has no sinks")
	}
	return &AuditLogger{
		component: component,
		sink:      &sink{out: io.MultiWriter(s.sinks...), files: s.files},
		root:      true,
	}, nil
}

// Discard returns a logger whose events go nowhere.
func Discard() *AuditLogger {
	return &AuditLogger{component: "discard", sink: &sink{out: io.Discard}, root: true}
}

// Close releases files opened by WithFile. Closing a derived logger is a
// no-op.
func (l *AuditLogger) Close() error {
	if l == nil || !l.root || l.sink == nil {
		return nil
	}
	return l.sink.close()
}

// Emit stamps, redacts and writes one event.
func (l *AuditLogger) Emit(event AuditEvent) error {
	if l == nil || l.sink == nil {
		return errors.New("audit logger is nil")
	}
	line, err := json.Marshal(event.prepared(l.component))
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return l.sink.writeLine(append(line, '\n'))
}

// WithComponent returns a logger that tags events with component and
// shares l's sinks.
func (l *AuditLogger) WithComponent(component string) *AuditLogger {
	if l == nil || l.sink == nil {
		return nil
	}
	return &AuditLogger{component: component, sink: l.sink}
}

func (e AuditEvent) prepared(component string) AuditEvent {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()
	if e.Component == "" {
		e.Component = component
	}
	e.Reason = redact.String(e.Reason)
	e.Metadata = redact.Map(e.Metadata)
	return e
}
