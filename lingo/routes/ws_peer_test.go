package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lingo/lingo/utils/logging"
	"lingo/lingo/utils/types"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func filler(i int) types.Event {
	return types.Event{Name: types.EventUserOnline, Payload: types.OK(types.EventUserOnline, i)}
}

func TestWSPeer_OverflowCutsOffPeer(t *testing.T) {
	req := require.New(t)
	peer := newWSPeer(nil)
	for i := 0; i < outboundQueue; i++ {
		req.NoError(peer.Send(filler(i)))
	}

	// Given the echo for m1 does not fit
	echo := types.Event{Name: types.EventGroupTranslateMessage, Payload: types.OK("", map[string]any{"id": "m1"})}
	req.ErrorIs(peer.Send(echo), errSlowConsumer)

	// When the writer catches up by one frame
	<-peer.out

	// Then the update for m1 is refused too
	update := types.Event{
		Name:    types.EventGroupTranslateMessage,
		Payload: types.OK("", types.TranslationUpdate{TContent: "Hi", ID: "m1"}),
	}
	req.ErrorIs(peer.Send(update), errPeerClosed)
	req.True(peer.stopped())
	for len(peer.out) > 0 {
		ev := <-peer.out
		req.Equal(types.EventUserOnline, ev.Name)
	}
}

func TestWSPeer_SlowConsumerIsDisconnected(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		peer := newWSPeer(conn)
		for i := 0; i <= outboundQueue; i++ {
			peer.Send(filler(i))
		}
		peer.writeLoop(r.Context(), "slow")
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	req.NoError(err)
	defer c.CloseNow()

	// Then not a single queued frame arrives after the gap, only the close
	_, _, err = c.Read(ctx)
	req.Equal(websocket.StatusTryAgainLater, websocket.CloseStatus(err))
}

func TestWSPeer_StopWithoutOverflowLeavesConnection(t *testing.T) {
	peer := newWSPeer(nil)
	peer.stop()

	require.ErrorIs(t, peer.Send(filler(1)), errPeerClosed)
	require.False(t, peer.slow.Load())
	// nil conn: closeIfSlow must not touch it
	peer.closeIfSlow("c1")
}

func TestReply_LogsDroppedFrame(t *testing.T) {
	req := require.New(t)
	core, logs := observer.New(zap.ErrorLevel)
	prev := logging.ErrorLogger
	logging.ErrorLogger = zap.New(core)
	t.Cleanup(func() { logging.ErrorLogger = prev })

	peer := newWSPeer(nil)
	peer.stop()
	reply(peer, "c1", exception(errPeerClosed))

	dropped := logs.FilterMessage("reply dropped").All()
	req.Len(dropped, 1)
	req.Equal("c1", dropped[0].ContextMap()["conn_id"])
	req.Equal(types.EventException, dropped[0].ContextMap()["event"])
}
