package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lingo/lingo/controllers"
	"lingo/lingo/middlewares"
	"lingo/lingo/services/hub"
	"lingo/lingo/services/translate"
	"lingo/lingo/sources/psql"
	"lingo/lingo/sources/psql/dao"
	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const testSecret = "ws-secret"

// echoProvider streams the upper-cased content one word per line.
type echoProvider struct{}

func (echoProvider) StreamTranslate(_ context.Context, _ string, content string) (io.ReadCloser, error) {
	var b strings.Builder
	for _, w := range strings.Fields(strings.ToUpper(content)) {
		fmt.Fprintf(&b, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n", w)
	}
	b.WriteString("data: [DONE]\n")
	return io.NopCloser(strings.NewReader(b.String())), nil
}

type wsFixture struct {
	srv        *httptest.Server
	registry   *hub.Registry
	messages   *dao.TranslateMessageDAO
	translator *translate.Translator
	tokens     map[string]string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	ctx := context.Background()
	db, err := psql.Open(ctx, sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	users := dao.NewUserDAO(db.DB)
	messages := dao.NewTranslateMessageDAO(db.DB)
	tokens := map[string]string{}
	for _, name := range []string{"alice", "bob"} {
		u, err := users.CreateUser(ctx, name, nil)
		require.NoError(t, err)
		tokens[name], err = middlewares.IssueToken(testSecret, u.ID, time.Hour)
		require.NoError(t, err)
	}

	registry := hub.NewRegistry(middlewares.NewJWTVerifier(testSecret, users), "1")
	tr := translate.NewTranslator(echoProvider{}, messages, registry, "sys")
	gw := NewGateway(registry, hub.NewPresence(registry), controllers.NewChatController(registry, messages, tr))

	r := chi.NewRouter()
	r.Mount("/ws", WSRoutes(gw))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(tr.Wait)

	return &wsFixture{srv: srv, registry: registry, messages: messages, translator: tr, tokens: tokens}
}

func (f *wsFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?" + query
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

// join dials as name and waits until the server admitted the connection.
func (f *wsFixture) join(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	before := len(f.registry.Members("1"))
	c := f.dial(t, "token="+f.tokens[name])
	require.Eventually(t, func() bool { return len(f.registry.Members("1")) == before+1 },
		2*time.Second, 5*time.Millisecond)
	return c
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type envelope struct {
	Code types.RCode     `json:"code"`
	Msg  *string         `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func read(t *testing.T, c *websocket.Conn) (string, envelope) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var frame received
	require.NoError(t, wsjson.Read(ctx, c, &frame))
	var env envelope
	require.NoError(t, json.Unmarshal(frame.Data, &env))
	return frame.Event, env
}

func send(t *testing.T, c *websocket.Conn, event string, data any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, types.Frame{Event: event, Data: data}))
}

func TestGateway_RejectsInvalidToken(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	c := f.dial(t, "token=forged")

	event, env := read(t, c)

	req.Equal(types.EventException, event)
	req.Equal(types.RCodeError, env.Code)
	req.Equal("unauthorized", *env.Msg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	req.Equal(websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	req.Eventually(func() bool { return f.registry.ConnectionCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestGateway_PresenceAndTranslationFlow(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	alice := f.join(t, "alice")
	bob := f.join(t, "bob")

	// alice hears that bob came online
	event, env := read(t, alice)
	req.Equal(types.EventUserOnline, event)
	req.Equal("userOnline", *env.Msg)
	var onlineID int
	req.NoError(json.Unmarshal(env.Data, &onlineID))

	// When alice posts a message
	send(t, alice, types.EventGroupTranslateEnMessage, map[string]any{"content": "hello world"})

	// Then bob's first frame is the echo, not his own online notice
	for _, c := range []*websocket.Conn{bob, alice} {
		event, env = read(t, c)
		req.Equal(types.EventGroupTranslateMessage, event)
		var echo map[string]any
		req.NoError(json.Unmarshal(env.Data, &echo))
		req.Equal("hello world", echo["content"])
		req.Equal("alice", echo["username"])
		id := echo["id"].(string)
		req.NotEmpty(id)

		// followed by updates until the full translation
		for {
			event, env = read(t, c)
			req.Equal(types.EventGroupTranslateMessage, event)
			var u types.TranslationUpdate
			req.NoError(json.Unmarshal(env.Data, &u))
			req.Equal(id, u.ID)
			if u.TContent == "HELLOWORLD" {
				break
			}
		}
	}

	f.translator.Wait()
	msgs, err := f.messages.ListRecent(context.Background(), "1", 10)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal(models.StatusComplete, msgs[0].Status)
	req.Equal("HELLOWORLD", msgs[0].TContent)
}

func TestGateway_InvalidPayloadGetsException(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	alice := f.join(t, "alice")

	send(t, alice, types.EventGroupTranslateEnMessage, map[string]any{"content": ""})
	event, env := read(t, alice)
	req.Equal(types.EventException, event)
	req.Equal(types.RCodeError, env.Code)

	send(t, alice, "dance", nil)
	event, _ = read(t, alice)
	req.Equal(types.EventException, event)

	msgs, err := f.messages.ListRecent(context.Background(), "1", 10)
	req.NoError(err)
	req.Empty(msgs)
}

func TestGateway_DisconnectAnnouncesOffline(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	alice := f.join(t, "alice")
	bob := f.dial(t, "token="+f.tokens["bob"]+"&userId=bob-hint")

	event, _ := read(t, alice)
	req.Equal(types.EventUserOnline, event)

	bob.Close(websocket.StatusNormalClosure, "")

	event, env := read(t, alice)
	req.Equal(types.EventUserOffline, event)
	var hint string
	req.NoError(json.Unmarshal(env.Data, &hint))
	req.Equal("bob-hint", hint)
}

func TestGateway_JoinRoom(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	alice := f.join(t, "alice")

	send(t, alice, types.EventJoinRoom, types.RoomRequest{RoomID: "lobby"})
	req.Eventually(func() bool { return len(f.registry.Members("lobby")) == 1 }, 2*time.Second, 5*time.Millisecond)

	send(t, alice, types.EventLeaveRoom, types.RoomRequest{RoomID: "lobby"})
	req.Eventually(func() bool { return len(f.registry.Members("lobby")) == 0 }, 2*time.Second, 5*time.Millisecond)
}
