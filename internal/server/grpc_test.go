package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ChuLiYu/schedsim/internal/logging"
	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// startGRPC serves api on an in-memory listener and returns a connected
// client.
func startGRPC(t *testing.T, api *API) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis, NewGRPCServer(api, logging.Discard())) }()

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("grpc server did not stop")
		}
	})
	return client
}

func TestGRPCSimulate(t *testing.T) {
	client := startGRPC(t, testAPI(t, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := 2
	resp, err := client.Simulate(ctx, SimulateRequest{
		Processes: scenarioProcesses(),
		Algorithm: "rr",
		Quantum:   &q,
	})
	require.NoError(t, err)

	assert.Equal(t, scheduler.Config{Algorithm: scheduler.RoundRobin, Quantum: 2}, resp.Config)
	assert.Equal(t, types.Timeline{
		{ProcessID: "A", Start: 0, End: 2},
		{ProcessID: "B", Start: 2, End: 4},
		{ProcessID: "C", Start: 4, End: 5},
		{ProcessID: "A", Start: 5, End: 7},
		{ProcessID: "B", Start: 7, End: 8},
		{ProcessID: "A", Start: 8, End: 9},
	}, resp.Timeline)
	assert.InDelta(t, 13.0/3, resp.Aggregate.MeanWait, 1e-9)
	assert.Equal(t, 5, resp.Summary.ContextSwitches)
}

func TestGRPCCompareUsesRepository(t *testing.T) {
	client := startGRPC(t, testAPI(t, scenarioProcesses()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Compare(ctx, CompareRequest{Quanta: []int{1, 100}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, resp.Results[0].Result.Timeline, resp.Results[2].Result.Timeline)
	assert.Len(t, resp.Results[1].Result.Timeline, 9)
}

func TestGRPCErrorsMapToInvalidArgument(t *testing.T) {
	client := startGRPC(t, testAPI(t, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, req := range []SimulateRequest{
		{Algorithm: "fcfs"}, // empty repository
		{Algorithm: "lottery", Processes: scenarioProcesses()},
		{Algorithm: "fcfs", Processes: []types.Process{{ID: "", Duration: 3}}},
	} {
		_, err := client.Simulate(ctx, req)
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err), err.Error())
	}
}

func TestGRPCMalformedPayload(t *testing.T) {
	client := startGRPC(t, testAPI(t, scenarioProcesses()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// a payload whose types do not fit SimulateRequest
	in, err := structpb.NewStruct(map[string]any{"algorithm": 42})
	require.NoError(t, err)
	err = client.conn.Invoke(ctx, SimulateMethod, in, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatusKeepsExistingStatus(t *testing.T) {
	orig := status.Error(codes.Unavailable, "down")
	assert.Equal(t, orig, toStatus(orig))
	assert.Nil(t, toStatus(nil))
}
