package outbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Sync service names on the wire.
const (
	SyncServiceName = "pos.sync.v1.OrderSync"
	PushMethod      = "/" + SyncServiceName + "/Push"
)

// Remote delivers one request to the hub.
type Remote interface {
	Push(ctx context.Context, req Request) error
}

// formatTarget converts an endpoint to gRPC target format. Socket paths
// become unix:// URIs.
func formatTarget(endpoint string) string {
	if strings.HasPrefix(endpoint, "/") || strings.HasPrefix(endpoint, "./") {
		return "unix://" + endpoint
	}
	return endpoint
}

// GRPCRemote pushes requests to a hub's OrderSync service.
type GRPCRemote struct {
	conn *grpc.ClientConn
}

// NewGRPCRemote connects to a hub at the given endpoint.
func NewGRPCRemote(endpoint string) (*GRPCRemote, error) {
	conn, err := grpc.NewClient(formatTarget(endpoint), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, Unreachable(err)
	}
	return &GRPCRemote{conn: conn}, nil
}

// RemoteFromConn creates a remote from an existing connection.
func RemoteFromConn(conn *grpc.ClientConn) *GRPCRemote {
	return &GRPCRemote{conn: conn}
}

// Push sends the request as a structpb envelope.
func (r *GRPCRemote) Push(ctx context.Context, req Request) error {
	envelope, err := EncodeEnvelope(req)
	if err != nil {
		return err
	}
	if err := r.conn.Invoke(ctx, PushMethod, envelope, &emptypb.Empty{}); err != nil {
		return HubError(err)
	}
	return nil
}

// Close closes the underlying connection.
func (r *GRPCRemote) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// EncodeEnvelope wraps a request's JSON payload in a Struct with its routing
// fields.
func EncodeEnvelope(req Request) (*structpb.Struct, error) {
	payload := &structpb.Struct{}
	if err := protojson.Unmarshal(req.Payload, payload); err != nil {
		return nil, EncodingError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(req.ID),
		"endpoint":   structpb.NewStringValue(req.Endpoint),
		"method":     structpb.NewStringValue(req.Method),
		"timestamp":  structpb.NewStringValue(req.Timestamp.UTC().Format(time.RFC3339Nano)),
		"retryCount": structpb.NewNumberValue(float64(req.RetryCount)),
		"payload":    structpb.NewStructValue(payload),
	}}, nil
}

// DecodeEnvelope reverses EncodeEnvelope.
func DecodeEnvelope(envelope *structpb.Struct) (Request, error) {
	fields := envelope.GetFields()
	payload := fields["payload"].GetStructValue()
	if payload == nil {
		return Request{}, EncodingError(errors.New("envelope has no payload"))
	}
	data, err := protojson.Marshal(payload)
	if err != nil {
		return Request{}, EncodingError(err)
	}
	ts, err := time.Parse(time.RFC3339Nano, fields["timestamp"].GetStringValue())
	if err != nil {
		return Request{}, EncodingError(err)
	}
	return Request{
		ID:         fields["id"].GetStringValue(),
		Endpoint:   fields["endpoint"].GetStringValue(),
		Method:     fields["method"].GetStringValue(),
		Payload:    data,
		Timestamp:  ts,
		RetryCount: int(fields["retryCount"].GetNumberValue()),
	}, nil
}
