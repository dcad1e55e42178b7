package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"lingo/lingo/controllers"
	lerrors "lingo/lingo/errors"
	"lingo/lingo/services/hub"
	"lingo/lingo/utils/logging"
	"lingo/lingo/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	outboundQueue = 256
	writeTimeout  = 10 * time.Second
)

var (
	errPeerClosed   = errors.New("peer closed")
	errSlowConsumer = errors.New("outbound queue full")
)

// wsPeer is the hub.Sink of one websocket. A single writer goroutine drains
// the queue, so frames reach the client in the order they were sent. A peer
// that falls a full queue behind is cut off rather than skipping frames:
// after a gap nothing more is delivered.
type wsPeer struct {
	conn *websocket.Conn
	out  chan types.Event
	done chan struct{}
	once sync.Once
	slow atomic.Bool
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		conn: conn,
		out:  make(chan types.Event, outboundQueue),
		done: make(chan struct{}),
	}
}

func (p *wsPeer) Send(ev types.Event) error {
	select {
	case <-p.done:
		return errPeerClosed
	default:
	}
	select {
	case p.out <- ev:
		return nil
	default:
		p.slow.Store(true)
		p.stop()
		return errSlowConsumer
	}
}

func (p *wsPeer) writeLoop(ctx context.Context, connID string) {
	for {
		select {
		case <-p.done:
			p.closeIfSlow(connID)
			return
		case ev := <-p.out:
			if p.stopped() {
				p.closeIfSlow(connID)
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, p.conn, ev.Frame())
			cancel()
			if err != nil {
				logging.ErrorLogger.Error("websocket write failed",
					zap.String("conn_id", connID), zap.String("event", ev.Name), zap.Error(err))
				p.stop()
				return
			}
		}
	}
}

func (p *wsPeer) closeIfSlow(connID string) {
	if !p.slow.Load() {
		return
	}
	logging.ErrorLogger.Error("slow consumer disconnected", zap.String("conn_id", connID))
	p.conn.Close(websocket.StatusTryAgainLater, "outbound queue full")
}

func (p *wsPeer) stopped() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *wsPeer) stop() {
	p.once.Do(func() { close(p.done) })
}

// reply sends a frame to one peer outside of any room broadcast.
func reply(peer *wsPeer, connID string, ev types.Event) {
	if err := peer.Send(ev); err != nil {
		logging.ErrorLogger.Error("reply dropped",
			zap.String("conn_id", connID), zap.String("event", ev.Name), zap.Error(err))
	}
}

// Gateway speaks the chat protocol over websocket: connect with ?token=,
// then exchange {event, data} frames.
type Gateway struct {
	registry *hub.Registry
	presence *hub.Presence
	chat     *controllers.ChatController
}

func NewGateway(registry *hub.Registry, presence *hub.Presence, chat *controllers.ChatController) *Gateway {
	return &Gateway{registry: registry, presence: presence, chat: chat}
}

func WSRoutes(gw *Gateway) chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/", gw.serve)
	return r
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	query := r.URL.Query()
	connID := uuid.NewString()
	ctx := logging.WithTraceID(r.Context(), connID)
	peer := newWSPeer(conn)
	g.registry.Connect(connID, peer)
	logging.RequestLogger.Info("connection", zap.String("conn_id", connID), zap.String("remote", r.RemoteAddr))

	user, err := g.registry.Admit(ctx, connID, query.Get("token"))
	if err != nil {
		g.registry.Remove(connID)
		_ = wsjson.Write(ctx, conn, exception(err).Frame())
		conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}
	go peer.writeLoop(ctx, connID)
	defer peer.stop()
	g.presence.AnnounceOnline(connID, user.ID)
	defer g.disconnect(connID, query.Get("userId"))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				logging.AppLogger.Info("connection read ended", zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			reply(peer, connID, exception(fmt.Errorf("%w: text frames only", lerrors.ErrValidation)))
			continue
		}
		var frame types.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			reply(peer, connID, exception(fmt.Errorf("%w: invalid json", lerrors.ErrValidation)))
			continue
		}
		g.dispatch(ctx, connID, peer, frame)
	}
}

func (g *Gateway) dispatch(ctx context.Context, connID string, peer *wsPeer, frame types.InboundFrame) {
	logging.RequestLogger.Info("event", zap.String("conn_id", connID), zap.String("event", frame.Event))
	var err error
	switch frame.Event {
	case types.EventGroupTranslateEnMessage:
		var req types.TranslateRequest
		if err = json.Unmarshal(frame.Data, &req); err != nil {
			err = fmt.Errorf("%w: %v", lerrors.ErrValidation, err)
			break
		}
		_, err = g.chat.Submit(ctx, connID, req)
	case types.EventJoinRoom, types.EventLeaveRoom:
		err = g.moveRoom(connID, frame)
	default:
		err = fmt.Errorf("%w: unknown event %q", lerrors.ErrValidation, frame.Event)
	}
	if err != nil {
		reply(peer, connID, exception(err))
	}
}

func (g *Gateway) moveRoom(connID string, frame types.InboundFrame) error {
	if _, err := g.registry.Authenticated(connID); err != nil {
		return err
	}
	var req types.RoomRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil || req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", lerrors.ErrValidation)
	}
	if frame.Event == types.EventJoinRoom {
		return g.registry.Join(connID, req.RoomID)
	}
	return g.registry.Leave(connID, req.RoomID)
}

// disconnect broadcasts the userId the client handed over at handshake. It
// is unverified; the resolved id is only used when the client sent none.
func (g *Gateway) disconnect(connID, hint string) {
	user, ok := g.registry.Remove(connID)
	var offline any = hint
	if hint == "" && ok {
		offline = user.ID
	}
	g.presence.AnnounceOffline(connID, offline)
}

func exception(err error) types.Event {
	msg := err.Error()
	switch {
	case errors.Is(err, lerrors.ErrAuth):
		msg = "unauthorized"
	case errors.Is(err, lerrors.ErrPersistence):
		msg = "message could not be saved"
	}
	return types.Event{Name: types.EventException, Payload: types.Error(msg)}
}
