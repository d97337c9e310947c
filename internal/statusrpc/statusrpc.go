// Package statusrpc serves a running sync engine's activity over gRPC on the
// local IPC socket, and queries it from "cbportal status".
//
// The service has a single unary method, /cbportal.Status/Get, taking
// google.protobuf.Empty and returning a google.protobuf.Struct. Using the
// well-known types keeps the service free of generated code. The standard
// grpc.health.v1 service is registered alongside it.
package statusrpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"go.klb.dev/cbportal/internal/engine"
)

const (
	serviceName = "cbportal.Status"
	getMethod   = "/" + serviceName + "/Get"
)

// Info describes the daemon; it does not change while it runs.
type Info struct {
	Version string
	Broker  string
	Topic   string
}

// Status is what Get returns.
type Status struct {
	Info
	engine.Stats
}

type statusServer interface {
	Get(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type server struct {
	info  Info
	stats func() engine.Stats
}

func (s *server) Get(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(Status{Info: s.info, Stats: s.stats()})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*statusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
	},
	Metadata: "cbportal/status",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(statusServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(statusServer).Get(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// NewServer returns a gRPC server exposing the status and health services.
// stats is called once per request.
func NewServer(info Info, stats func() engine.Stats) *grpc.Server {
	srv := grpc.NewServer()
	srv.RegisterService(&serviceDesc, &server{info: info, stats: stats})

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// Dial returns a client connection to the socket at path. No auth: the
// socket is local and owner-only.
func Dial(path string) (*grpc.ClientConn, error) {
	return grpc.NewClient("unix://"+path, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// dialContext dials through a custom dialer, e.g. an in-memory listener.
func dialContext(dialer func(context.Context, string) (net.Conn, error)) (*grpc.ClientConn, error) {
	return grpc.NewClient("passthrough:///cbportal",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

// Get queries the daemon behind conn.
func Get(ctx context.Context, conn *grpc.ClientConn) (*Status, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, getMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return fromStruct(out)
}

// Healthy reports whether the daemon's status service is serving.
func Healthy(ctx context.Context, conn *grpc.ClientConn) (bool, error) {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func toStruct(s Status) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"version":      s.Version,
		"broker":       s.Broker,
		"topic":        s.Topic,
		"backend":      s.Backend,
		"started":      s.Started.UTC().Format(time.RFC3339Nano),
		"interval":     s.Interval.String(),
		"published":    s.Published,
		"applied":      s.Applied,
		"rejected":     s.Rejected,
		"duplicates":   s.Duplicates,
		"last_sent":    s.LastSent,
		"last_applied": s.LastApplied,
	})
}

func fromStruct(pb *structpb.Struct) (*Status, error) {
	f := pb.GetFields()
	str := func(k string) string { return f[k].GetStringValue() }
	num := func(k string) int64 { return int64(f[k].GetNumberValue()) }

	var s Status
	s.Version = str("version")
	s.Broker = str("broker")
	s.Topic = str("topic")
	s.Backend = str("backend")
	s.Published = num("published")
	s.Applied = num("applied")
	s.Rejected = num("rejected")
	s.Duplicates = num("duplicates")
	s.LastSent = str("last_sent")
	s.LastApplied = str("last_applied")

	var err error
	if v := str("started"); v != "" {
		if s.Started, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("status: started: %w", err)
		}
	}
	if v := str("interval"); v != "" {
		if s.Interval, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("status: interval: %w", err)
		}
	}
	return &s, nil
}
