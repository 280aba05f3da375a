package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker"
	"github.com/ashwaniclecvdoc/vc-backend-scale/broker/subscription"
	"github.com/ashwaniclecvdoc/vc-backend-scale/coordinator"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database/memory"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

var errEngine = errors.New("engine exploded")

type fixture struct {
	engine *media.MockEngine
	db     database.Database
	broker broker.Broker
	coord  *coordinator.Coordinator
	subs   map[string]*subscription.Subscription
}

func newFixture(t *testing.T, config coordinator.Config, peers ...string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		engine: media.NewMockEngine(ctrl),
		db:     memory.New(database.Config{}),
		broker: broker.New(broker.Config{}),
		subs:   make(map[string]*subscription.Subscription),
	}
	f.coord = coordinator.New(config, f.db, f.engine, f.broker)
	for _, peer := range peers {
		f.subs[peer] = f.broker.Subscribe(broker.Topic(peer))
		require.NoError(t, f.coord.Connect(peer))
	}
	return f
}

// next returns the next notification queued for the peer.
func (f *fixture) next(t *testing.T, peer string) response.Notification {
	t.Helper()
	select {
	case msg := <-f.subs[peer].Receive():
		n, ok := msg.(response.Notification)
		require.Truef(t, ok, "unexpected message %v", msg)
		return n
	case <-time.After(time.Second):
		require.FailNowf(t, "no notification", "peer %s", peer)
		return response.Notification{}
	}
}

// silent asserts that nothing is queued for the peer.
func (f *fixture) silent(t *testing.T, peer string) {
	t.Helper()
	select {
	case msg := <-f.subs[peer].Receive():
		assert.Failf(t, "unexpected notification", "peer %s got %v", peer, msg)
	default:
	}
}

func (f *fixture) createTransport(t *testing.T, peer, transportID string) {
	t.Helper()
	f.engine.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).
		Return(&media.TransportDescriptor{ID: transportID}, nil)
	_, err := f.coord.CreateTransport(context.Background(), peer)
	require.NoError(t, err)
}

func (f *fixture) produce(t *testing.T, peer, transportID, producerID string) {
	t.Helper()
	f.engine.EXPECT().Produce(gomock.Any(), transportID, media.KindVideo, gomock.Any()).Return(producerID, nil)
	got, err := f.coord.Produce(context.Background(), peer, transportID, media.KindVideo, media.RTPParameters{})
	require.NoError(t, err)
	require.Equal(t, producerID, got)
}

func TestGetCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		caps    *media.RTPCapabilities
		err     error
		wantErr error
	}{
		{
			name: "given ready engine when asked then return capabilities",
			caps: &media.RTPCapabilities{Codecs: []media.RTPCodecCapability{{Kind: media.KindAudio, MimeType: "audio/opus"}}},
		},
		{
			name:    "given engine not ready when asked then return nil and engine not ready",
			err:     media.ErrNotReady,
			wantErr: coordinator.ErrEngineNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, coordinator.Config{})
			f.engine.EXPECT().Capabilities().Return(tt.caps, tt.err)

			got, err := f.coord.GetCapabilities()
			if tt.wantErr != nil {
				assert.Nil(t, got)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.caps, got)
		})
	}
}

func TestCreateTransport(t *testing.T) {
	t.Run("given connected peer when created then register transport", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a")
		f.createTransport(t, "a", "t1")

		peer, err := f.db.FindPeerInfoByID("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, peer.Transports)
		resource, err := f.db.FindResourceInfoByID("t1")
		require.NoError(t, err)
		assert.Equal(t, database.Transport, resource.Kind)
	})

	t.Run("given engine failure when created then register nothing", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a")
		f.engine.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).Return(nil, errEngine)

		got, err := f.coord.CreateTransport(context.Background(), "a")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, coordinator.ErrEngineCallFailed)
		assert.ErrorIs(t, err, errEngine)

		peer, err := f.db.FindPeerInfoByID("a")
		require.NoError(t, err)
		assert.Empty(t, peer.Transports)
	})

	t.Run("given peer gone during engine call when created then close transport", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a")
		f.engine.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, func(media.ClosedTransport)) (*media.TransportDescriptor, error) {
				require.NoError(t, f.db.DeletePeerInfoByID("a"))
				return &media.TransportDescriptor{ID: "t1"}, nil
			})
		f.engine.EXPECT().CloseTransport("t1").Return(nil)

		_, err := f.coord.CreateTransport(context.Background(), "a")
		assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
		_, err = f.db.FindResourceInfoByID("t1")
		assert.ErrorIs(t, err, database.ErrResourceNotFound)
	})

	t.Run("given transport closed when notified then remove it and its objects once", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b")
		var onClose func(media.ClosedTransport)
		f.engine.EXPECT().CreateTransport(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cb func(media.ClosedTransport)) (*media.TransportDescriptor, error) {
				onClose = cb
				return &media.TransportDescriptor{ID: "t1"}, nil
			})
		_, err := f.coord.CreateTransport(context.Background(), "a")
		require.NoError(t, err)
		require.NotNil(t, onClose)
		f.produce(t, "a", "t1", "p1")
		f.produce(t, "a", "t1", "p2")
		_, err = f.db.CreateResourceInfo("b", "c1", database.Consumer)
		require.NoError(t, err)

		event := media.ClosedTransport{TransportID: "t1", ProducerIDs: []string{"p1"}, ConsumerIDs: []string{"c1"}}
		onClose(event)
		onClose(event)

		for _, id := range []string{"t1", "p1", "c1"} {
			_, err = f.db.FindResourceInfoByID(id)
			assert.ErrorIs(t, err, database.ErrResourceNotFound)
		}
		a, err := f.db.FindPeerInfoByID("a")
		require.NoError(t, err)
		assert.Empty(t, a.Transports)
		assert.Equal(t, []string{"p2"}, a.Producers)
		b, err := f.db.FindPeerInfoByID("b")
		require.NoError(t, err)
		assert.Empty(t, b.Consumers)
	})
}

func TestConnectTransport(t *testing.T) {
	f := newFixture(t, coordinator.Config{}, "a", "b")
	f.createTransport(t, "a", "t1")
	remote := media.RemoteParameters{DTLSParameters: media.DTLSParameters{Role: "client"}}

	f.engine.EXPECT().ConnectTransport(gomock.Any(), "t1", remote).Return(nil)
	assert.NoError(t, f.coord.ConnectTransport(context.Background(), "a", "t1", remote))

	err := f.coord.ConnectTransport(context.Background(), "b", "t1", remote)
	assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)

	f.engine.EXPECT().ConnectTransport(gomock.Any(), "t1", remote).Return(media.ErrTransportConnected)
	err = f.coord.ConnectTransport(context.Background(), "a", "t1", remote)
	assert.ErrorIs(t, err, coordinator.ErrEngineCallFailed)
}

func TestProduce(t *testing.T) {
	t.Run("given unknown transport when produced then return resource not found", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a")
		_, err := f.coord.Produce(context.Background(), "a", "missing", media.KindAudio, media.RTPParameters{})
		assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
	})

	t.Run("given invalid kind when produced then return invalid request", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a")
		f.createTransport(t, "a", "t1")
		_, err := f.coord.Produce(context.Background(), "a", "t1", media.Kind("screen"), media.RTPParameters{})
		assert.ErrorIs(t, err, coordinator.ErrInvalidRequest)
	})

	t.Run("given engine rejects parameters when produced then return engine call failed", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b")
		f.createTransport(t, "a", "t1")
		f.engine.EXPECT().Produce(gomock.Any(), "t1", media.KindAudio, gomock.Any()).Return("", media.ErrInvalidRTPParameters)

		_, err := f.coord.Produce(context.Background(), "a", "t1", media.KindAudio, media.RTPParameters{})
		assert.ErrorIs(t, err, coordinator.ErrEngineCallFailed)
		assert.ErrorIs(t, err, media.ErrInvalidRTPParameters)
		f.silent(t, "b")
	})

	t.Run("given producer created when produced then announce to every other peer", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b", "c")
		f.createTransport(t, "a", "t1")
		f.produce(t, "a", "t1", "p1")

		for _, peer := range []string{"b", "c"} {
			n := f.next(t, peer)
			assert.Equal(t, response.NewProducer, n.Type)
			assert.Equal(t, response.NewProducerPayload{ProducerID: "p1"}, n.Payload)
		}
		f.silent(t, "a")

		peer, err := f.db.FindPeerInfoByID("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, peer.Producers)
	})
}

func TestConsume(t *testing.T) {
	caps := media.RTPCapabilities{Codecs: []media.RTPCodecCapability{{Kind: media.KindVideo, MimeType: "video/VP8", ClockRate: 90000}}}

	t.Run("given unknown producer when consumed then return resource not found", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "b")
		_, err := f.coord.Consume(context.Background(), "b", "missing", caps)
		assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
	})

	t.Run("given incompatible capabilities when consumed then stop", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b")
		f.createTransport(t, "a", "t1")
		f.produce(t, "a", "t1", "p1")
		f.createTransport(t, "b", "t2")
		f.engine.EXPECT().CanConsume("p1", caps).Return(false)

		_, err := f.coord.Consume(context.Background(), "b", "p1", caps)
		assert.ErrorIs(t, err, coordinator.ErrIncompatibleCapabilities)
	})

	t.Run("given producer removed after lookup when consumed then return resource not found", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b")
		f.createTransport(t, "a", "t1")
		f.produce(t, "a", "t1", "p1")
		f.createTransport(t, "b", "t2")
		f.engine.EXPECT().CanConsume("p1", caps).DoAndReturn(func(string, media.RTPCapabilities) bool {
			_, err := f.db.DeleteResourceInfoByID("p1")
			require.NoError(t, err)
			return false
		})

		_, err := f.coord.Consume(context.Background(), "b", "p1", caps)
		assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
		assert.NotErrorIs(t, err, coordinator.ErrIncompatibleCapabilities)
	})

	t.Run("given peer without transport when consumed then return resource not found", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b")
		f.createTransport(t, "a", "t1")
		f.produce(t, "a", "t1", "p1")
		f.engine.EXPECT().CanConsume("p1", caps).Return(true)

		_, err := f.coord.Consume(context.Background(), "b", "p1", caps)
		assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
	})

	t.Run("given producer closed during consume when consumed then return failure", func(t *testing.T) {
		f := newFixture(t, coordinator.Config{}, "a", "b")
		f.createTransport(t, "a", "t1")
		f.produce(t, "a", "t1", "p1")
		f.createTransport(t, "b", "t2")
		f.engine.EXPECT().CanConsume("p1", caps).Return(true)
		f.engine.EXPECT().Consume(gomock.Any(), "t2", "p1", caps).Return(nil, media.ErrProducerNotFound)

		_, err := f.coord.Consume(context.Background(), "b", "p1", caps)
		assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
	})
}

func TestProduceThenConsume(t *testing.T) {
	f := newFixture(t, coordinator.Config{}, "a", "b")
	caps := media.RTPCapabilities{Codecs: []media.RTPCodecCapability{{Kind: media.KindVideo, MimeType: "video/VP8", ClockRate: 90000}}}

	f.createTransport(t, "a", "t1")
	f.produce(t, "a", "t1", "p1")
	n := f.next(t, "b")
	announced := n.Payload.(response.NewProducerPayload).ProducerID

	f.createTransport(t, "b", "t2")
	f.createTransport(t, "b", "t3")
	f.engine.EXPECT().CanConsume(announced, caps).Return(true)
	f.engine.EXPECT().Consume(gomock.Any(), "t2", announced, caps).Return(&media.ConsumerDescriptor{
		ID:         "c1",
		ProducerID: announced,
		Kind:       media.KindVideo,
	}, nil)

	got, err := f.coord.Consume(context.Background(), "b", announced, caps)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "p1", got.ProducerID)

	peer, err := f.db.FindPeerInfoByID("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, peer.Consumers)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t, coordinator.Config{}, "a", "b")
	_, err := f.coord.Join("a", "r1", "alice")
	require.NoError(t, err)
	f.next(t, "a")
	_, err = f.coord.Join("b", "r1", "bob")
	require.NoError(t, err)
	f.next(t, "a")
	f.next(t, "b")

	f.createTransport(t, "a", "t1")
	f.produce(t, "a", "t1", "p1")
	f.produce(t, "a", "t1", "p2")
	f.next(t, "b")
	f.next(t, "b")

	gomock.InOrder(
		f.engine.EXPECT().CloseProducer("p1").Return(errEngine),
		f.engine.EXPECT().CloseProducer("p2").Return(nil),
		f.engine.EXPECT().CloseTransport("t1").Return(nil),
	)
	f.coord.Disconnect("a")

	for _, id := range []string{"t1", "p1", "p2"} {
		_, err := f.db.FindResourceInfoByID(id)
		assert.ErrorIs(t, err, database.ErrResourceNotFound)
	}
	room, err := f.db.FindRoomInfoByID("r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, room.Members)
	_, err = f.db.FindPeerInfoByID("a")
	assert.ErrorIs(t, err, database.ErrPeerNotFound)

	n := f.next(t, "b")
	assert.Equal(t, response.UserLeft, n.Type)
	assert.Equal(t, response.UserLeftPayload{RoomID: "r1", PeerID: "a"}, n.Payload)

	f.coord.Disconnect("a")
	f.silent(t, "b")
}

func TestTransportClosedByEngine(t *testing.T) {
	config := media.DefaultConfig()
	config.ICEServers = nil
	engine := media.New(config)
	require.NoError(t, engine.Init())
	t.Cleanup(engine.Close)

	db := memory.New(database.Config{})
	b := broker.New(broker.Config{})
	coord := coordinator.New(coordinator.Config{}, db, engine, b)
	for _, peer := range []string{"a", "b"} {
		b.Subscribe(broker.Topic(peer))
		require.NoError(t, coord.Connect(peer))
	}
	ctx := context.Background()

	transport, err := coord.CreateTransport(ctx, "a")
	require.NoError(t, err)
	producerID, err := coord.Produce(ctx, "a", transport.ID, media.KindVideo, media.RTPParameters{
		Codecs:    []media.RTPCodecParameters{{MimeType: "video/VP8", ClockRate: 90000, PayloadType: 101}},
		Encodings: []media.RTPEncodingParameters{{SSRC: 3333}},
	})
	require.NoError(t, err)
	_, err = coord.CreateTransport(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, engine.CloseTransport(transport.ID))

	for _, id := range []string{transport.ID, producerID} {
		_, err := db.FindResourceInfoByID(id)
		assert.ErrorIs(t, err, database.ErrResourceNotFound)
	}
	peer, err := db.FindPeerInfoByID("a")
	require.NoError(t, err)
	assert.Empty(t, peer.Transports)
	assert.Empty(t, peer.Producers)

	caps, err := coord.GetCapabilities()
	require.NoError(t, err)
	_, err = coord.Consume(ctx, "b", producerID, *caps)
	assert.ErrorIs(t, err, coordinator.ErrResourceNotFound)
}
