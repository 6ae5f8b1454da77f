package handler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/core/service"
)

const (
	inventoryServiceName = "fulfillment.v1.InventoryService"
	JSONCodecName        = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets the inventory service speak plain JSON messages over gRPC,
// selected by clients with the "json" content subtype.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

type StockRequest struct {
	Items []domain.StockItem `json:"items"`
}

type StockResponse struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Shortfalls []domain.Shortfall `json:"shortfalls,omitempty"`
}

type InventoryServer interface {
	CheckStock(ctx context.Context, req *StockRequest) (*StockResponse, error)
	ReduceStock(ctx context.Context, req *StockRequest) (*StockResponse, error)
}

type GRPCHandler struct {
	checker *service.AvailabilityChecker
	ledger  *service.StockLedger
	logger  *zap.Logger
}

func NewGRPCHandler(checker *service.AvailabilityChecker, ledger *service.StockLedger, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{checker: checker, ledger: ledger, logger: logger}
}

func (h *GRPCHandler) CheckStock(ctx context.Context, req *StockRequest) (*StockResponse, error) {
	if err := h.checker.Validate(ctx, req.Items); err != nil {
		return h.failure(err)
	}
	return &StockResponse{Success: true, Message: "stock validation passed"}, nil
}

func (h *GRPCHandler) ReduceStock(ctx context.Context, req *StockRequest) (*StockResponse, error) {
	if err := h.ledger.CommitReduction(ctx, req.Items); err != nil {
		return h.failure(err)
	}
	return &StockResponse{Success: true, Message: "stock reduced successfully"}, nil
}

// failure answers a shortfall in-band with the per-item detail; everything
// else becomes a status error.
func (h *GRPCHandler) failure(err error) (*StockResponse, error) {
	var shortage *domain.InsufficientStockError
	if errors.As(err, &shortage) {
		return &StockResponse{Success: false, Message: err.Error(), Shortfalls: shortage.Items}, nil
	}
	return nil, toStatus(h.logger, err)
}

func toStatus(logger *zap.Logger, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrStockReduction):
		return status.Error(codes.Aborted, err.Error())
	default:
		logger.Error("grpc request failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckStock", Handler: checkStockHandler},
		{MethodName: "ReduceStock", Handler: reduceStockHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fulfillment/v1/inventory",
}

func checkStockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).CheckStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/CheckStock"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).CheckStock(ctx, req.(*StockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func reduceStockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).ReduceStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/ReduceStock"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).ReduceStock(ctx, req.(*StockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InventoryClient calls the inventory service with the JSON codec.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) CheckStock(ctx context.Context, req *StockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	return c.invoke(ctx, "CheckStock", req, opts)
}

func (c *InventoryClient) ReduceStock(ctx context.Context, req *StockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	return c.invoke(ctx, "ReduceStock", req, opts)
}

func (c *InventoryClient) invoke(ctx context.Context, method string, req *StockRequest, opts []grpc.CallOption) (*StockResponse, error) {
	out := new(StockResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+inventoryServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
