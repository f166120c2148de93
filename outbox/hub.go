package outbox

import (
	"context"
	"encoding/json"

	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	"github.com/angzarr-io/pos/storage"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Error messages raised by the hub.
const (
	ErrMsgEnvelopeInvalid = "Sync envelope is malformed"
	ErrMsgEndpointUnknown = "Unknown sync endpoint"
	ErrMsgOrderIDMissing  = "Synced order has no id"
)

// OrderSyncServer is the hub side of the sync service.
type OrderSyncServer interface {
	Push(ctx context.Context, envelope *structpb.Struct) (*emptypb.Empty, error)
}

var orderSyncServiceDesc = grpc.ServiceDesc{
	ServiceName: SyncServiceName,
	HandlerType: (*OrderSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pos/sync/v1/order_sync.proto",
}

func pushHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderSyncServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PushMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderSyncServer).Push(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterOrderSync registers the sync service on a gRPC server.
func RegisterOrderSync(s grpc.ServiceRegistrar, srv OrderSyncServer) {
	s.RegisterService(&orderSyncServiceDesc, srv)
}

// OrderSaver is where the engine writes orders locally.
type OrderSaver interface {
	SaveOrder(ctx context.Context, o order.SavedOrder) error
}

// OrderStore is where the hub lands synced orders, keyed by
// storage.OrderKey.
type OrderStore interface {
	OrderSaver
	GetOrder(ctx context.Context, key string) (order.SavedOrder, bool, error)
}

// Hub receives pushes from tills and upserts them.
type Hub struct {
	orders OrderStore
	logger *zap.Logger
}

// NewHub creates a Hub.
func NewHub(orders OrderStore, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{orders: orders, logger: logger}
}

// Push upserts the order carried by the envelope. A push that would move a
// stored order back to an earlier status is acknowledged and dropped.
func (h *Hub) Push(ctx context.Context, envelope *structpb.Struct) (*emptypb.Empty, error) {
	req, err := DecodeEnvelope(envelope)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, ErrMsgEnvelopeInvalid)
	}
	if req.Endpoint != OrdersEndpoint {
		return nil, pos.MapCommandError(pos.NewInvalidArgumentf("%s: %s", ErrMsgEndpointUnknown, req.Endpoint))
	}
	var o order.SavedOrder
	if err := json.Unmarshal(req.Payload, &o); err != nil {
		return nil, status.Error(codes.InvalidArgument, ErrMsgEnvelopeInvalid)
	}
	if o.ID == "" {
		return nil, pos.MapCommandError(pos.NewInvalidArgument(ErrMsgOrderIDMissing))
	}
	key := storage.OrderKey(o)
	stored, found, err := h.orders.GetOrder(ctx, key)
	if err != nil {
		h.logger.Error("failed to load synced order", zap.String("order_key", key), zap.Error(err))
		return nil, pos.MapCommandError(err)
	}
	if found && o.Status.Rank() < stored.Status.Rank() {
		h.logger.Warn("stale order push dropped",
			zap.String("order_id", o.ID),
			zap.String("order_key", key),
			zap.String("status", string(o.Status)),
			zap.String("stored_status", string(stored.Status)),
			zap.Time("pushed_at", req.Timestamp))
		return &emptypb.Empty{}, nil
	}
	if err := h.orders.SaveOrder(ctx, o); err != nil {
		h.logger.Error("failed to store synced order", zap.String("order_key", key), zap.Error(err))
		return nil, pos.MapCommandError(err)
	}
	h.logger.Info("order synced",
		zap.String("order_id", o.ID),
		zap.String("order_key", key),
		zap.String("store_id", o.SystemInfo.StoreID),
		zap.String("terminal_id", o.SystemInfo.TerminalID),
		zap.Int("retry_count", req.RetryCount))
	return &emptypb.Empty{}, nil
}
