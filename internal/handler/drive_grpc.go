package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"localdrive/internal/domain"
	"localdrive/internal/service"
)

// Внутренний gRPC-сервис диска. Сообщения - well-known типы protobuf,
// поэтому сгенерированный код не нужен.
const DriveServiceName = "drive.v1.DriveService"

const (
	methodResolveShare = "/" + DriveServiceName + "/ResolveShare"
	methodGetQuota     = "/" + DriveServiceName + "/GetQuota"
	methodListChildren = "/" + DriveServiceName + "/ListChildren"
)

// DriveServiceServer - серверная часть drive.v1.DriveService
type DriveServiceServer interface {
	ResolveShare(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	GetQuota(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ListChildren(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var DriveServiceDesc = grpc.ServiceDesc{
	ServiceName: DriveServiceName,
	HandlerType: (*DriveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ResolveShare", Handler: resolveShareHandler},
		{MethodName: "GetQuota", Handler: getQuotaHandler},
		{MethodName: "ListChildren", Handler: listChildrenHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "drive/v1/drive.proto",
}

func RegisterDriveServiceServer(s grpc.ServiceRegistrar, srv DriveServiceServer) {
	s.RegisterService(&DriveServiceDesc, srv)
}

func resolveShareHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DriveServiceServer).ResolveShare(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodResolveShare}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DriveServiceServer).ResolveShare(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getQuotaHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DriveServiceServer).GetQuota(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetQuota}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DriveServiceServer).GetQuota(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listChildrenHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DriveServiceServer).ListChildren(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListChildren}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DriveServiceServer).ListChildren(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type DriveHandler struct {
	shareService     *service.ShareService
	quotaService     *service.StorageQuotaService
	hierarchyService *service.HierarchyService
}

func NewDriveHandler(
	shareService *service.ShareService,
	quotaService *service.StorageQuotaService,
	hierarchyService *service.HierarchyService,
) *DriveHandler {
	return &DriveHandler{
		shareService:     shareService,
		quotaService:     quotaService,
		hierarchyService: hierarchyService,
	}
}

func (h *DriveHandler) ResolveShare(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	log.Printf("[DriveGRPC] resolve share %s", req.GetValue())

	item, err := h.shareService.Resolve(ctx, req.GetValue())
	if err != nil {
		return nil, grpcError(err)
	}
	return itemStruct(item)
}

func (h *DriveHandler) GetQuota(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	info, err := h.quotaService.GetQuotaInfo(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	s, err := structpb.NewStruct(map[string]interface{}{
		"total_space":     info.TotalSpace,
		"used_space":      info.UsedSpace,
		"available_space": info.AvailableSpace,
		"usage_percent":   info.UsagePercent,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode quota: %v", err)
	}
	return s, nil
}

// ListChildren: пустое значение - корень
func (h *DriveHandler) ListChildren(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	var parentID *string
	if v := req.GetValue(); v != "" {
		parentID = &v
	}

	items, err := h.hierarchyService.ListChildren(ctx, parentID)
	if err != nil {
		return nil, grpcError(err)
	}

	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(items))}
	for i := range items {
		s, err := itemStruct(&items[i])
		if err != nil {
			return nil, err
		}
		list.Values = append(list.Values, structpb.NewStructValue(s))
	}
	return list, nil
}

// itemStruct - метаданные элемента без содержимого
func itemStruct(item *domain.Item) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":        item.ID,
		"name":      item.Name,
		"size":      item.SizeBytes,
		"type":      item.MediaType,
		"isFolder":  item.IsFolder,
		"parentId":  nil,
		"createdAt": item.CreatedAt.Format(time.RFC3339Nano),
	}
	if item.ParentID != nil {
		fields["parentId"] = *item.ParentID
	}
	if item.ShareID != nil {
		fields["shareId"] = *item.ShareID
	}
	if item.SharedAt != nil {
		fields["sharedAt"] = item.SharedAt.Format(time.RFC3339Nano)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode item: %v", err)
	}
	return s, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrExternalService):
		return status.Error(codes.Unavailable, err.Error())
	default:
		log.Error().Err(err).Msg("drive grpc request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

// DriveClient - клиент drive.v1.DriveService
type DriveClient struct {
	cc grpc.ClientConnInterface
}

func NewDriveClient(cc grpc.ClientConnInterface) *DriveClient {
	return &DriveClient{cc: cc}
}

func (c *DriveClient) ResolveShare(ctx context.Context, shareID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodResolveShare, wrapperspb.String(shareID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DriveClient) GetQuota(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetQuota, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DriveClient) ListChildren(ctx context.Context, parentID string, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListChildren, wrapperspb.String(parentID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
