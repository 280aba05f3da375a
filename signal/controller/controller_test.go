package controller_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker"
	"github.com/ashwaniclecvdoc/vc-backend-scale/coordinator"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database/memory"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/pkg/socket"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/controller"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/request"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

// run feeds the requests to a controller through a mock socket and returns
// everything the controller wrote.
func run(t *testing.T, engine media.Engine, requests ...request.Common) []any {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := socket.NewMockSocket(ctrl)

	var mu sync.Mutex
	var written []any
	next := 0
	s.EXPECT().ReadJSON(gomock.Any()).DoAndReturn(func(v any) error {
		if next == len(requests) {
			return io.EOF
		}
		*v.(*request.Common) = requests[next]
		next++
		return nil
	}).AnyTimes()
	s.EXPECT().WriteJSON(gomock.Any()).DoAndReturn(func(data any) error {
		mu.Lock()
		defer mu.Unlock()
		written = append(written, data)
		return nil
	}).AnyTimes()
	s.EXPECT().Close().Return(nil).AnyTimes()

	db := memory.New(database.Config{})
	b := broker.New(broker.Config{})
	coord := coordinator.New(coordinator.Config{}, db, engine, b)
	c := controller.New(b, coord, metric.New(metric.Config{}))

	require.NoError(t, c.Process(context.Background(), s))

	peers, err := db.FindAllPeerInfos()
	require.NoError(t, err)
	assert.Empty(t, peers)

	mu.Lock()
	defer mu.Unlock()
	return written
}

func replies(written []any) []response.Reply {
	var out []response.Reply
	for _, msg := range written {
		if reply, ok := msg.(response.Reply); ok {
			out = append(out, reply)
		}
	}
	return out
}

func TestProcessSendsConnectedFirst(t *testing.T) {
	written := run(t, media.NewMockEngine(gomock.NewController(t)))
	require.Len(t, written, 1)
	n, ok := written[0].(response.Notification)
	require.True(t, ok)
	assert.Equal(t, response.Connected, n.Type)
	assert.NotEmpty(t, n.Payload.(response.ConnectedPayload).PeerID)
}

func TestProcessReplies(t *testing.T) {
	tests := []struct {
		name     string
		req      request.Common
		setup    func(e *media.MockEngine)
		wantCode string
	}{
		{
			name: "given engine not ready when capabilities requested then reply engine not ready",
			req:  request.Common{RequestID: 1, Type: request.GetRTPCapabilities},
			setup: func(e *media.MockEngine) {
				e.EXPECT().Capabilities().Return(nil, media.ErrNotReady)
			},
			wantCode: response.CodeEngineNotReady,
		},
		{
			name:     "given unknown type when requested then reply invalid request",
			req:      request.Common{RequestID: 2, Type: "unknown"},
			wantCode: response.CodeInvalidRequest,
		},
		{
			name:     "given malformed payload when requested then reply invalid request",
			req:      request.Common{RequestID: 3, Type: request.Join, Payload: json.RawMessage(`{"room_id":1}`)},
			wantCode: response.CodeInvalidRequest,
		},
		{
			name:     "given missing field when requested then reply invalid request",
			req:      request.Common{RequestID: 4, Type: request.Consume, Payload: json.RawMessage(`{}`)},
			wantCode: response.CodeInvalidRequest,
		},
		{
			name:     "given unknown transport when produced then reply resource not found",
			req:      request.Common{RequestID: 5, Type: request.Produce, Payload: json.RawMessage(`{"transport_id":"t1","kind":"audio"}`)},
			wantCode: response.CodeResourceNotFound,
		},
		{
			name: "given engine failure when transport created then reply engine call failed",
			req:  request.Common{RequestID: 6, Type: request.CreateTransport},
			setup: func(e *media.MockEngine) {
				e.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).Return(nil, io.ErrUnexpectedEOF)
			},
			wantCode: response.CodeEngineCallFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := media.NewMockEngine(gomock.NewController(t))
			if tt.setup != nil {
				tt.setup(engine)
			}
			got := replies(run(t, engine, tt.req))
			require.Len(t, got, 1)
			assert.Equal(t, tt.req.RequestID, got[0].RequestID)
			assert.Equal(t, tt.req.Type, got[0].Type)
			assert.Nil(t, got[0].Payload)
			require.NotNil(t, got[0].Error)
			assert.Equal(t, tt.wantCode, got[0].Error.Code)
		})
	}
}

func TestProcessRoomFlow(t *testing.T) {
	engine := media.NewMockEngine(gomock.NewController(t))
	engine.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).Return(&media.TransportDescriptor{ID: "t1"}, nil)
	engine.EXPECT().CloseTransport("t1").Return(nil)

	written := run(t, engine,
		request.Common{RequestID: 1, Type: request.Join, Payload: json.RawMessage(`{"room_id":"r1","name":"alice"}`)},
		request.Common{RequestID: 2, Type: request.CheckName, Payload: json.RawMessage(`{"room_id":"r1","name":"alice"}`)},
		request.Common{RequestID: 3, Type: request.TogglePresence, Payload: json.RawMessage(`{"room_id":"r1","target":"video"}`)},
		request.Common{RequestID: 4, Type: request.CreateTransport},
	)

	got := replies(written)
	require.Len(t, got, 4)
	for _, reply := range got {
		assert.Nil(t, reply.Error)
	}
	members := got[0].Payload.(response.MembersPayload)
	require.Len(t, members.Members, 1)
	assert.Equal(t, "alice", members.Members[0].Name)
	assert.Equal(t, response.CheckNamePayload{Taken: true}, got[1].Payload)
	assert.False(t, got[2].Payload.(response.PresencePayload).Enabled)
	assert.Equal(t, "t1", got[3].Payload.(*media.TransportDescriptor).ID)

	var notified bool
	for _, msg := range written {
		if n, ok := msg.(response.Notification); ok && n.Type == response.Members {
			notified = true
		}
	}
	assert.True(t, notified)
}

// blockingSocket serves the requests and then blocks reads until the socket
// is closed. Writes wait for release.
func blockingSocket(t *testing.T, release <-chan struct{}, requests ...request.Common) (*socket.MockSocket, <-chan struct{}) {
	t.Helper()
	s := socket.NewMockSocket(gomock.NewController(t))
	closed := make(chan struct{})
	var once sync.Once
	next := 0
	s.EXPECT().ReadJSON(gomock.Any()).DoAndReturn(func(v any) error {
		if next < len(requests) {
			*v.(*request.Common) = requests[next]
			next++
			return nil
		}
		select {
		case <-closed:
			return net.ErrClosed
		case <-time.After(time.Second):
			return io.EOF
		}
	}).AnyTimes()
	s.EXPECT().WriteJSON(gomock.Any()).DoAndReturn(func(any) error {
		<-release
		return nil
	}).AnyTimes()
	s.EXPECT().Close().DoAndReturn(func() error {
		once.Do(func() { close(closed) })
		return nil
	}).AnyTimes()
	return s, closed
}

func TestProcessCancelsRequestInFlight(t *testing.T) {
	release := make(chan struct{})
	close(release)
	s, closed := blockingSocket(t, release, request.Common{RequestID: 1, Type: request.CreateTransport})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := media.NewMockEngine(gomock.NewController(t))
	var seen error
	engine.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).DoAndReturn(
		func(reqCtx context.Context, _ func(media.ClosedTransport)) (*media.TransportDescriptor, error) {
			cancel()
			select {
			case <-reqCtx.Done():
				seen = reqCtx.Err()
			case <-time.After(time.Second):
			}
			return nil, reqCtx.Err()
		})

	db := memory.New(database.Config{})
	b := broker.New(broker.Config{})
	c := controller.New(b, coordinator.New(coordinator.Config{}, db, engine, b), metric.New(metric.Config{}))

	require.NoError(t, c.Process(ctx, s))
	assert.ErrorIs(t, seen, context.Canceled)
	select {
	case <-closed:
	default:
		assert.Fail(t, "socket was not closed")
	}
	peers, err := db.FindAllPeerInfos()
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestProcessClosesSocketWhenReplyQueueIsFull(t *testing.T) {
	release := make(chan struct{})
	requests := make([]request.Common, 4)
	for i := range requests {
		requests[i] = request.Common{RequestID: i + 1, Type: "unknown"}
	}
	s, closed := blockingSocket(t, release, requests...)
	go func() {
		<-closed
		close(release)
	}()

	db := memory.New(database.Config{})
	b := broker.New(broker.Config{QueueSize: 1})
	engine := media.NewMockEngine(gomock.NewController(t))
	c := controller.New(b, coordinator.New(coordinator.Config{}, db, engine, b), metric.New(metric.Config{}))

	require.NoError(t, c.Process(context.Background(), s))
	select {
	case <-closed:
	default:
		assert.Fail(t, "socket was not closed")
	}
	peers, err := db.FindAllPeerInfos()
	require.NoError(t, err)
	assert.Empty(t, peers)
}
