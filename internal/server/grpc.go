package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/medical-docs/internal/common"
)

const (
	ServiceName = "medocs.v1.DocumentProcessor"

	MethodProcessDocument        = "/" + ServiceName + "/ProcessDocument"
	MethodIndexDocument          = "/" + ServiceName + "/IndexDocument"
	MethodSearchSimilarDocuments = "/" + ServiceName + "/SearchSimilarDocuments"
	MethodHealth                 = "/" + ServiceName + "/Health"
	MethodExportRecords          = "/" + ServiceName + "/ExportRecords"

	// RequestIDHeader is the metadata key carrying a caller-supplied request ID.
	RequestIDHeader = "x-request-id"
)

// DocumentProcessorServer is the server API for medocs.v1.DocumentProcessor.
// Messages are google.protobuf.Struct on both sides.
type DocumentProcessorServer interface {
	ProcessDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IndexDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchSimilarDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(fullMethod string, call func(DocumentProcessorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentProcessorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentProcessorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DocumentProcessorServiceDesc describes medocs.v1.DocumentProcessor for grpc.Server.RegisterService.
var DocumentProcessorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentProcessorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessDocument", Handler: unaryHandler(MethodProcessDocument, DocumentProcessorServer.ProcessDocument)},
		{MethodName: "IndexDocument", Handler: unaryHandler(MethodIndexDocument, DocumentProcessorServer.IndexDocument)},
		{MethodName: "SearchSimilarDocuments", Handler: unaryHandler(MethodSearchSimilarDocuments, DocumentProcessorServer.SearchSimilarDocuments)},
		{MethodName: "Health", Handler: unaryHandler(MethodHealth, DocumentProcessorServer.Health)},
		{MethodName: "ExportRecords", Handler: unaryHandler(MethodExportRecords, DocumentProcessorServer.ExportRecords)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medocs/v1/document_processor.proto",
}

// RegisterDocumentProcessorServer registers srv on s.
func RegisterDocumentProcessorServer(s grpc.ServiceRegistrar, srv DocumentProcessorServer) {
	s.RegisterService(&DocumentProcessorServiceDesc, srv)
}

// UnaryLoggingInterceptor attaches a request ID to the context and logs each call.
func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
				ctx = common.WithRequestID(ctx, v[0])
			}
		}
		ctx, rid := common.EnsureRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"request_id", rid,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.call", append(attrs, "err", err)...)
		} else {
			logger.Info("grpc.call", attrs...)
		}
		return resp, err
	}
}

// NewGRPCServer builds a server with the document service, the standard health
// service and reflection registered.
func NewGRPCServer(svc DocumentProcessorServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(logger))}, opts...)
	s := grpc.NewServer(opts...)
	RegisterDocumentProcessorServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(s)
	return s, hs
}

// Client calls medocs.v1.DocumentProcessor over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProcessDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessDocument, in, opts...)
}

func (c *Client) IndexDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodIndexDocument, in, opts...)
}

func (c *Client) SearchSimilarDocuments(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSearchSimilarDocuments, in, opts...)
}

func (c *Client) Health(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodHealth, nil, opts...)
}

func (c *Client) ExportRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodExportRecords, in, opts...)
}
