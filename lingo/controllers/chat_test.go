package controllers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/services/hub"
	"lingo/lingo/services/translate"
	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/types"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *recordingSink) Send(ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Event(nil), s.events...)
}

type tokenVerifier map[string]hub.User

func (v tokenVerifier) Verify(_ context.Context, token string) (hub.User, error) {
	u, ok := v[token]
	if !ok {
		return hub.User{}, fmt.Errorf("bad token")
	}
	return u, nil
}

type memoryStore struct {
	mu        sync.Mutex
	next      int
	createErr error
	records   map[string]*models.TranslateMessage
	finalized int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*models.TranslateMessage)}
}

func (s *memoryStore) Create(_ context.Context, msg *models.TranslateMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.next++
	id := fmt.Sprintf("msg-%d", s.next)
	cp := *msg
	cp.ID = id
	s.records[id] = &cp
	return id, nil
}

func (s *memoryStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return lerrors.ErrPersistence
	}
	if v, ok := fields[models.ColumnStatus].(string); ok {
		rec.Status = v
		if v == models.StatusComplete {
			s.finalized++
		}
	}
	if v, ok := fields[models.ColumnTContent].(string); ok {
		rec.TContent = v
	}
	return nil
}

func (s *memoryStore) Get(id string) models.TranslateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[id]
}

func (s *memoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// gatedStream hands out one chunk per Read, each after a tick on gate.
type gatedStream struct {
	chunks []string
	gate   chan struct{}
}

func (g *gatedStream) Read(p []byte) (int, error) {
	<-g.gate
	if len(g.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, g.chunks[0])
	g.chunks = g.chunks[1:]
	return n, nil
}

func (g *gatedStream) Close() error { return nil }

type gatedProvider struct {
	gate chan struct{}
}

func (p gatedProvider) StreamTranslate(_ context.Context, _ string, content string) (io.ReadCloser, error) {
	var chunks []string
	for _, w := range strings.Fields(strings.ToUpper(content)) {
		chunks = append(chunks, "data: {\"choices\":[{\"delta\":{\"content\":\""+w+"\"}}]}\n")
	}
	return &gatedStream{chunks: append(chunks, "data: [DONE]\n"), gate: p.gate}, nil
}

type relayFixture struct {
	registry   *hub.Registry
	store      *memoryStore
	translator *translate.Translator
	chat       *ChatController
	gate       chan struct{}
	sinks      map[string]*recordingSink
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	registry := hub.NewRegistry(tokenVerifier{
		"tok-alice": {ID: 1, Username: "alice"},
		"tok-bob":   {ID: 2, Username: "bob"},
	}, "1")
	store := newMemoryStore()
	gate := make(chan struct{})
	tr := translate.NewTranslator(gatedProvider{gate: gate}, store, registry, "sys")
	f := &relayFixture{
		registry:   registry,
		store:      store,
		translator: tr,
		chat:       NewChatController(registry, store, tr),
		gate:       gate,
		sinks:      make(map[string]*recordingSink),
	}
	f.chat.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

func (f *relayFixture) connect(t *testing.T, connID, token string) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	f.registry.Connect(connID, sink)
	if token != "" {
		_, err := f.registry.Admit(context.Background(), connID, token)
		require.NoError(t, err)
	}
	f.sinks[connID] = sink
	return sink
}

func (f *relayFixture) drain() {
	close(f.gate)
	f.translator.Wait()
}

func TestChatController_Submit_RejectsAnonymous(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	observer := f.connect(t, "c-bob", "tok-bob")
	f.connect(t, "c-anon", "")

	_, err := f.chat.Submit(context.Background(), "c-anon", types.TranslateRequest{Content: "hola"})

	req.ErrorIs(err, lerrors.ErrAuth)
	req.Zero(f.store.Count())
	req.Empty(observer.Events())
	f.drain()
}

func TestChatController_Submit_RejectsEmptyContent(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	observer := f.connect(t, "c-alice", "tok-alice")

	_, err := f.chat.Submit(context.Background(), "c-alice", types.TranslateRequest{Content: ""})

	req.ErrorIs(err, lerrors.ErrValidation)
	req.Zero(f.store.Count())
	req.Empty(observer.Events())
	f.drain()
}

func TestChatController_Submit_CreateFailureBroadcastsNothing(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	observer := f.connect(t, "c-alice", "tok-alice")
	f.store.createErr = fmt.Errorf("disk full")

	_, err := f.chat.Submit(context.Background(), "c-alice", types.TranslateRequest{Content: "hola"})

	req.ErrorIs(err, lerrors.ErrPersistence)
	req.Empty(observer.Events())
	f.drain()
}

func TestChatController_Submit_EchoPrecedesTranslation(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	aliceSink := f.connect(t, "c-alice", "tok-alice")
	bobSink := f.connect(t, "c-bob", "tok-bob")

	echo, err := f.chat.Submit(context.Background(), "c-alice", types.TranslateRequest{
		Content: "hola mundo",
		Fields:  map[string]any{"content": "hola mundo", "clientTag": "x1"},
	})
	req.NoError(err)
	id := echo["id"].(string)

	// Then the echo carries the input fields plus the resolved author
	req.Equal("x1", echo["clientTag"])
	req.Equal(1, echo["userId"])
	req.Equal("alice", echo["username"])
	req.Equal(int64(1700000000000), echo["createTime"])

	// And the message is streaming while the provider is held back
	req.Equal(models.StatusStreaming, f.store.Get(id).Status)

	f.drain()

	for name, sink := range map[string]*recordingSink{"alice": aliceSink, "bob": bobSink} {
		events := sink.Events()
		req.NotEmpty(events, name)
		first, ok := events[0].Payload.Data.(map[string]any)
		req.True(ok, "%s: first event is not the echo", name)
		req.Equal(id, first["id"])

		echoes := 0
		var last string
		for _, ev := range events {
			req.Equal(types.EventGroupTranslateMessage, ev.Name)
			switch d := ev.Payload.Data.(type) {
			case map[string]any:
				echoes++
			case types.TranslationUpdate:
				req.Equal(id, d.ID)
				last = d.TContent
			}
		}
		req.Equal(1, echoes, name)
		req.Equal("HOLAMUNDO", last, name)
	}

	stored := f.store.Get(id)
	req.Equal(models.StatusComplete, stored.Status)
	req.Equal("HOLAMUNDO", stored.TContent)
	req.Equal("hola mundo", stored.Content)
	req.Equal(models.MessageTypeText, stored.MessageType)
	req.Equal(1, f.store.finalized)
}

func TestChatController_Submit_AuthorDisconnectDoesNotStopTranslation(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	f.connect(t, "c-alice", "tok-alice")
	bobSink := f.connect(t, "c-bob", "tok-bob")

	echo, err := f.chat.Submit(context.Background(), "c-alice", types.TranslateRequest{Content: "buenos dias"})
	req.NoError(err)
	id := echo["id"].(string)

	// When alice leaves after the first chunk
	f.gate <- struct{}{}
	f.registry.Remove("c-alice")
	f.drain()

	// Then bob still gets the whole translation and it is persisted
	var last types.TranslationUpdate
	for _, ev := range bobSink.Events() {
		if u, ok := ev.Payload.Data.(types.TranslationUpdate); ok {
			last = u
		}
	}
	req.Equal(types.TranslationUpdate{TContent: "BUENOSDIAS", ID: id}, last)
	req.Equal(models.StatusComplete, f.store.Get(id).Status)
	req.Equal(1, f.store.finalized)
}
