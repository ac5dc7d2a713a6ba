// ============================================================================
// schedsim gRPC service
// ============================================================================
//
// Package: internal/server
// File: grpc.go
// Purpose: expose Simulate and Compare over gRPC
//
// Service: schedsim.v1.SimulationService
//   rpc Simulate(google.protobuf.Struct) returns (google.protobuf.Struct)
//   rpc Compare(google.protobuf.Struct)  returns (google.protobuf.Struct)
//
// The Struct payloads carry the same JSON documents as the HTTP API
// (SimulateRequest, CompareRequest, ...), so both transports share one
// schema and one code path (API). Core errors become gRPC status codes via
// classify.
//
// ============================================================================

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "schedsim.v1.SimulationService"
	SimulateMethod  = "/" + ServiceName + "/Simulate"
	CompareMethod   = "/" + ServiceName + "/Compare"
	serviceMetadata = "schedsim/v1/simulation.proto"
)

// SimulationServiceServer is the server API for SimulationService.
type SimulationServiceServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Compare(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes SimulationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: unaryHandler(SimulateMethod, SimulationServiceServer.Simulate)},
		{MethodName: "Compare", Handler: unaryHandler(CompareMethod, SimulationServiceServer.Compare)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: serviceMetadata,
}

type structMethod func(SimulationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SimulationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SimulationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterSimulationServiceServer registers srv on s.
func RegisterSimulationServiceServer(s grpc.ServiceRegistrar, srv SimulationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GRPCServer implements SimulationServiceServer on top of API.
type GRPCServer struct {
	api    *API
	logger *slog.Logger
}

// NewGRPCServer creates the gRPC service implementation.
func NewGRPCServer(api *API, logger *slog.Logger) *GRPCServer {
	return &GRPCServer{api: api, logger: logger.With("component", "grpc")}
}

// Simulate handles SimulationService/Simulate.
func (s *GRPCServer) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SimulateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, toStatus(err)
	}
	resp, err := s.api.Simulate(ctx, req)
	if err != nil {
		s.logger.Debug("simulate rejected", "error", err)
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

// Compare handles SimulationService/Compare.
func (s *GRPCServer) Compare(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CompareRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, toStatus(err)
	}
	resp, err := s.api.Compare(ctx, req)
	if err != nil {
		s.logger.Debug("compare rejected", "error", err)
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

// Serve registers srv on a new grpc.Server and serves lis until ctx ends.
func Serve(ctx context.Context, lis net.Listener, srv SimulationServiceServer, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	RegisterSimulationServiceServer(gs, srv)

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	if err := gs.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// --- client ---

// Client calls SimulationService.
type Client struct {
	conn grpc.ClientConnInterface
	cc   *grpc.ClientConn // set when the Client owns the connection
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial opens a plaintext connection to target.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: cc, cc: cc}, nil
}

// Close closes the connection if the Client opened it.
func (c *Client) Close() error {
	if c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Simulate runs one simulation remotely.
func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResponse, error) {
	var resp SimulateResponse
	if err := c.invoke(ctx, SimulateMethod, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compare runs a quantum sweep remotely.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	var resp CompareResponse
	if err := c.invoke(ctx, CompareMethod, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// --- Struct <-> JSON ---

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	s := new(structpb.Struct)
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = new(structpb.Struct)
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
