// Package grpc exposes the platform records over gRPC for internal readers.
//
// The service is registered from a hand-written descriptor and speaks the
// well-known protobuf types, so no generated stubs are needed:
//
//	platforms.v1.PlatformReader/GetAllPlatforms(google.protobuf.Empty) returns (google.protobuf.ListValue)
//
// Each list element is a Struct with id, name, publisher and cost fields.
package grpc

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "platforms.v1.PlatformReader"

	// GetAllPlatformsMethod is the full method path of the list RPC.
	GetAllPlatformsMethod = "/" + ServiceName + "/GetAllPlatforms"
)

// PlatformLister is the application surface the reader needs.
type PlatformLister interface {
	GetAll(ctx context.Context) ([]domain.PlatformView, error)
}

// PlatformReaderServer is the server API for the PlatformReader service.
type PlatformReaderServer interface {
	GetAllPlatforms(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
}

// PlatformReaderServiceDesc describes the PlatformReader service for
// grpc.Server.RegisterService.
var PlatformReaderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlatformReaderServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAllPlatforms",
			Handler:    getAllPlatformsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "platforms/v1/platforms.proto",
}

func getAllPlatformsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	reader, ok := srv.(PlatformReaderServer)
	if !ok {
		return nil, status.Error(codes.Internal, "platform reader is not configured")
	}

	if interceptor == nil {
		return reader.GetAllPlatforms(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetAllPlatformsMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		empty, _ := req.(*emptypb.Empty)
		return reader.GetAllPlatforms(ctx, empty)
	}

	return interceptor(ctx, in, info, handler)
}

// Reader implements PlatformReaderServer on top of the application service.
type Reader struct {
	platforms PlatformLister
	logger    *slog.Logger
}

// NewReader creates a Reader. It panics if platforms is nil.
func NewReader(platforms PlatformLister, logger *slog.Logger) *Reader {
	if platforms == nil {
		panic("grpc: platform lister is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		platforms: platforms,
		logger:    logger.With(slog.String("component", "grpc_reader")),
	}
}

// GetAllPlatforms returns every stored platform.
func (r *Reader) GetAllPlatforms(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	views, err := r.platforms.GetAll(ctx)
	if err != nil {
		logging.FromContextOr(ctx, r.logger).ErrorContext(ctx, "list platforms failed",
			slog.String("error", err.Error()),
		)

		return nil, statusFromError(err)
	}

	list, err := EncodePlatforms(views)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode platforms")
	}

	return list, nil
}

// EncodePlatforms converts platform views into a ListValue of Structs.
func EncodePlatforms(views []domain.PlatformView) (*structpb.ListValue, error) {
	items := make([]any, 0, len(views))
	for _, v := range views {
		items = append(items, map[string]any{
			"id":        v.ID,
			"name":      v.Name,
			"publisher": v.Publisher,
			"cost":      v.Cost,
		})
	}

	return structpb.NewList(items)
}

// DecodePlatforms is the inverse of EncodePlatforms.
func DecodePlatforms(list *structpb.ListValue) ([]domain.PlatformView, error) {
	views := make([]domain.PlatformView, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		fields := value.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("platform %d: not a struct", i)
		}

		views = append(views, domain.PlatformView{
			ID:        int(fields["id"].GetNumberValue()),
			Name:      fields["name"].GetStringValue(),
			Publisher: fields["publisher"].GetStringValue(),
			Cost:      fields["cost"].GetNumberValue(),
		})
	}

	return views, nil
}

// GetAllPlatforms calls the list RPC over conn.
func GetAllPlatforms(ctx context.Context, conn grpc.ClientConnInterface, opts ...grpc.CallOption) ([]domain.PlatformView, error) {
	out := new(structpb.ListValue)
	if err := conn.Invoke(ctx, GetAllPlatformsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	return DecodePlatforms(out)
}

func statusFromError(err error) error {
	switch {
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, "platform not found")
	case domain.IsUnavailable(err):
		return status.Error(codes.Unavailable, "a dependency is temporarily unavailable")
	default:
		return status.Error(codes.Internal, "an internal error occurred")
	}
}
