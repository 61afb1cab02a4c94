package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/RowanDark/decoder/internal/api"
	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/config"
	"github.com/RowanDark/decoder/internal/logging"
	"github.com/RowanDark/decoder/internal/rpc"
	"github.com/RowanDark/decoder/internal/service"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("decoderd %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// daemon holds the pieces shared by both listeners.
type daemon struct {
	cfg    config.Config
	logger *slog.Logger
	audit  *logging.AuditLogger
	svc    *service.Service
}

func newDaemon(cfg config.Config, logOut io.Writer) (*daemon, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(logOut, level)

	opts := []logging.Option{logging.WithoutStdout()}
	if cfg.AuditLog != "" {
		opts = append(opts, logging.WithFile(cfg.AuditLog))
	} else {
		opts = append(opts, logging.WithWriter(io.Discard))
	}
	audit, err := logging.NewAuditLogger("decoderd", opts...)
	if err != nil {
		return nil, fmt.Errorf("configure audit logger: %w", err)
	}

	var src cipher.Source
	if cfg.Seed != 0 {
		src = cipher.NewSeededSource(cfg.Seed)
		logger.Warn("using seeded key generation", "seed", cfg.Seed)
	}
	svc := service.New(service.Options{
		Logger: logger.With("component", "service"),
		Audit:  audit.WithComponent("service"),
		Source: src,
	})
	return &daemon{cfg: cfg, logger: logger, audit: audit, svc: svc}, nil
}

func run(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	d, err := newDaemon(cfg, logOut)
	if err != nil {
		return err
	}
	defer d.audit.Close()

	var httpLn, grpcLn net.Listener
	if addr := strings.TrimSpace(cfg.HTTPAddr); addr != "" {
		httpLn, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}
	if addr := strings.TrimSpace(cfg.GRPCAddr); addr != "" {
		grpcLn, err = net.Listen("tcp", addr)
		if err != nil {
			if httpLn != nil {
				_ = httpLn.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}
	return d.serve(ctx, httpLn, grpcLn)
}

// serve runs the HTTP API on httpLn and the gRPC service on grpcLn until ctx
// is cancelled or either server fails. A nil listener disables that server.
func (d *daemon) serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	if httpLn == nil && grpcLn == nil {
		return errors.New("no listeners configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 0

	if httpLn != nil {
		srv, err := api.NewServer(api.Config{
			Addr:          httpLn.Addr().String(),
			Service:       d.svc,
			Audit:         d.audit.WithComponent("api"),
			Logger:        d.logger.With("component", "api"),
			MaxImageBytes: d.cfg.MaxImageBytes,
		})
		if err != nil {
			_ = httpLn.Close()
			if grpcLn != nil {
				_ = grpcLn.Close()
			}
			return fmt.Errorf("configure http api: %w", err)
		}
		running++
		go func() {
			if err := srv.Serve(ctx, httpLn); err != nil {
				errCh <- fmt.Errorf("http api: %w", err)
				return
			}
			errCh <- nil
		}()
	}

	if grpcLn != nil {
		gs := rpc.NewGRPCServer(rpc.NewServer(d.svc,
			rpc.WithAuditLogger(d.audit),
			rpc.WithLogger(d.logger),
			rpc.WithMaxImageBytes(d.cfg.MaxImageBytes),
		))
		d.logger.Info("grpc listening", "addr", grpcLn.Addr().String())
		running++
		go func() {
			errCh <- serveGRPC(ctx, gs, grpcLn)
		}()
	}

	_ = d.audit.Emit(logging.AuditEvent{
		EventType: logging.EventLifecycle,
		Operation: "startup",
		Outcome:   logging.OutcomeInfo,
		Metadata:  map[string]any{"version": version, "servers": running},
	})

	// The first server to stop takes the other with it.
	firstErr := <-errCh
	cancel()
	for i := 1; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	outcome := logging.OutcomeSuccess
	reason := ""
	if firstErr != nil {
		outcome = logging.OutcomeFailure
		reason = firstErr.Error()
	}
	_ = d.audit.Emit(logging.AuditEvent{
		EventType: logging.EventLifecycle,
		Operation: "shutdown",
		Outcome:   outcome,
		Reason:    reason,
	})
	d.logger.Info("shutdown complete")
	return firstErr
}

func serveGRPC(ctx context.Context, srv *grpc.Server, lis net.Listener) error {
	go func() {
		<-ctx.Done()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			srv.Stop()
		}
	}()

	if err := srv.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("grpc: %w", err)
	}
	return nil
}
