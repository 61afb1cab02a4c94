package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/decoder/internal/imageio"
	"github.com/RowanDark/decoder/internal/logging"
	"github.com/RowanDark/decoder/internal/service"
	"github.com/RowanDark/decoder/internal/stego"
)

// Server implements TransformerServer on top of a service.Service.
type Server struct {
	svc           *service.Service
	audit         *logging.AuditLogger
	logger        *slog.Logger
	maxImageBytes int64
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithAuditLogger overrides the audit logger used for rpc_call events.
func WithAuditLogger(logger *logging.AuditLogger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithLogger overrides the operational logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxImageBytes caps the decoded size of each image argument.
func WithMaxImageBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// NewServer constructs a Transformer backed by svc.
func NewServer(svc *service.Service, opts ...ServerOption) *Server {
	if svc == nil {
		svc = service.New(service.Options{})
	}
	srv := &Server{
		svc:           svc,
		audit:         logging.Discard(),
		logger:        logging.NopLogger(),
		maxImageBytes: 32 << 20,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.audit = srv.audit.WithComponent("rpc")
	srv.logger = srv.logger.With("component", "rpc")
	return srv
}

// NewGRPCServer returns a grpc.Server with the Transformer registered and
// call auditing installed.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) *grpc.Server {
	// base64 adds a third on top of two images.
	maxMsg := int(min(srv.maxImageBytes*3, math.MaxInt32))
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.ChainUnaryInterceptor(srv.auditInterceptor),
	}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterTransformerServer(gs, srv)
	return gs
}

func (s *Server) auditInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-request-id"); len(vals) > 0 {
			id = strings.TrimSpace(vals[0])
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", id))

	start := time.Now()
	resp, err := handler(service.WithRequestID(ctx, id), req)
	code := status.Code(err)

	s.logger.Info("rpc call", "method", info.FullMethod, "code", code.String(), "elapsed", time.Since(start), "request_id", id)
	outcome := logging.OutcomeSuccess
	if err != nil {
		outcome = logging.OutcomeFailure
	}
	_ = s.audit.Emit(logging.AuditEvent{
		EventType: logging.EventRPCCall,
		RequestID: id,
		Operation: info.FullMethod,
		Outcome:   outcome,
		Metadata:  map[string]any{"code": code.String()},
	})
	return resp, err
}

// toStatus converts a service error into a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch service.Classify(err) {
	case service.KindInvalidInput, service.KindInvalidKey:
		return status.Error(codes.InvalidArgument, err.Error())
	case service.KindSizeMismatch:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		if ctxErr := status.FromContextError(err); ctxErr.Code() != codes.Unknown {
			return ctxErr.Err()
		}
		return status.Error(codes.Internal, "transform failed")
	}
}

func stringField(req *structpb.Struct, name string, required bool) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok || v.GetKind() == nil {
		if required {
			return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
		}
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		if required {
			return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
		}
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

// keyField reads "key" as a string or an integral number.
func keyField(req *structpb.Struct) (string, error) {
	v, ok := req.GetFields()["key"]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NumberValue:
		if k.NumberValue != math.Trunc(k.NumberValue) {
			return "", status.Errorf(codes.InvalidArgument, "key %v is not an integer", k.NumberValue)
		}
		return strconv.FormatInt(int64(k.NumberValue), 10), nil
	case *structpb.Value_NullValue, nil:
		return "", nil
	default:
		return "", status.Error(codes.InvalidArgument, "key must be a string or a number")
	}
}

func respond(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return out, nil
}

func (s *Server) Encrypt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := stringField(req, "cipher", true)
	if err != nil {
		return nil, err
	}
	input, err := stringField(req, "input", false)
	if err != nil {
		return nil, err
	}
	key, err := keyField(req)
	if err != nil {
		return nil, err
	}
	out, used, err := s.svc.Encrypt(ctx, name, input, key)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"output": out, "key": used})
}

func (s *Server) Decrypt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := stringField(req, "cipher", true)
	if err != nil {
		return nil, err
	}
	input, err := stringField(req, "input", false)
	if err != nil {
		return nil, err
	}
	key, err := keyField(req)
	if err != nil {
		return nil, err
	}
	out, err := s.svc.Decrypt(ctx, name, input, key)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"output": out})
}

func (s *Server) AutoDecrypt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := stringField(req, "input", false)
	if err != nil {
		return nil, err
	}
	out, err := s.svc.ShiftAutoDecrypt(ctx, input)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"output": out})
}

func (s *Server) Merge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	carrier, err := s.imageField(req, "carrier")
	if err != nil {
		return nil, err
	}
	payload, err := s.imageField(req, "payload")
	if err != nil {
		return nil, err
	}
	merged, err := s.svc.Merge(ctx, carrier, payload)
	if err != nil {
		return nil, toStatus(err)
	}
	return imageResponse(merged)
}

func (s *Server) Unmerge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	img, err := s.imageField(req, "image")
	if err != nil {
		return nil, err
	}
	payload, err := s.svc.Unmerge(ctx, img)
	if err != nil {
		return nil, toStatus(err)
	}
	return imageResponse(payload)
}

func (s *Server) imageField(req *structpb.Struct, name string) (*stego.PixelGrid, error) {
	encoded, err := stringField(req, name, true)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s is not valid base64: %v", name, err)
	}
	grid, _, err := imageio.DecodeImage(bytes.NewReader(raw), s.maxImageBytes)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
	}
	return grid, nil
}

func imageResponse(grid *stego.PixelGrid) (*structpb.Struct, error) {
	var buf bytes.Buffer
	if err := imageio.EncodePNG(&buf, grid); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode png: %v", err))
	}
	return respond(map[string]any{
		"image":  base64.StdEncoding.EncodeToString(buf.Bytes()),
		"width":  grid.Width,
		"height": grid.Height,
	})
}

var _ TransformerServer = (*Server)(nil)
