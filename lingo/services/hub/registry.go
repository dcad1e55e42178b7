package hub

import (
	"context"
	"fmt"
	"sync"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/utils/logging"
	"lingo/lingo/utils/types"

	"go.uber.org/zap"
)

// User is the identity a credential token resolves to.
type User struct {
	ID       int
	Username string
}

// AuthVerifier resolves an opaque credential token to a user.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// Sink delivers events to one connection. Send must not block.
type Sink interface {
	Send(ev types.Event) error
}

type connection struct {
	id    string
	user  *User
	rooms map[string]struct{}
	sink  Sink
}

// Registry tracks live connections, who they belong to and which rooms they
// joined. One instance is shared by the gateway, presence and chat relay.
type Registry struct {
	mu          sync.RWMutex
	verifier    AuthVerifier
	defaultRoom string
	conns       map[string]*connection
	rooms       map[string]map[string]struct{}
}

func NewRegistry(verifier AuthVerifier, defaultRoom string) *Registry {
	return &Registry{
		verifier:    verifier,
		defaultRoom: defaultRoom,
		conns:       make(map[string]*connection),
		rooms:       make(map[string]map[string]struct{}),
	}
}

func (r *Registry) DefaultRoom() string {
	return r.defaultRoom
}

// PersonalRoom is the room every admitted connection of a user joins.
func PersonalRoom(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}

// Connect records a freshly handshaken, still anonymous connection.
func (r *Registry) Connect(connID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &connection{
		id:    connID,
		rooms: make(map[string]struct{}),
		sink:  sink,
	}
}

// Admit verifies the token and, on success, binds the user to the
// connection and joins the default and personal rooms.
func (r *Registry) Admit(ctx context.Context, connID, token string) (User, error) {
	if token == "" {
		return User{}, fmt.Errorf("missing token: %w", lerrors.ErrAuth)
	}
	user, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return User{}, fmt.Errorf("verify token: %w: %v", lerrors.ErrAuth, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return User{}, lerrors.ErrUnknownConnection
	}
	c.user = &user
	r.joinLocked(c, r.defaultRoom)
	r.joinLocked(c, PersonalRoom(user.ID))
	logging.AppLogger.Info("user logon",
		zap.String("conn_id", connID), zap.Int("user_id", user.ID))
	return user, nil
}

func (r *Registry) Join(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return lerrors.ErrUnknownConnection
	}
	r.joinLocked(c, roomID)
	return nil
}

func (r *Registry) Leave(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return lerrors.ErrUnknownConnection
	}
	r.leaveLocked(c, roomID)
	return nil
}

// Remove forgets the connection and returns the user it was bound to, if any.
func (r *Registry) Remove(connID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return User{}, false
	}
	for roomID := range c.rooms {
		r.leaveLocked(c, roomID)
	}
	delete(r.conns, connID)
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// Authenticated is the guard used by every operation that needs a user.
func (r *Registry) Authenticated(connID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", lerrors.ErrAuth, lerrors.ErrUnknownConnection)
	}
	if c.user == nil {
		return User{}, fmt.Errorf("anonymous connection: %w", lerrors.ErrAuth)
	}
	return *c.user, nil
}

// Members returns the connection ids currently joined to roomID.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast sends ev to every connection in roomID.
func (r *Registry) Broadcast(roomID string, ev types.Event) {
	r.BroadcastExcept(roomID, "", ev)
}

// BroadcastExcept sends ev to every connection in roomID but exceptConnID.
// Delivery is best effort: a failing sink is logged and skipped.
func (r *Registry) BroadcastExcept(roomID, exceptConnID string, ev types.Event) {
	r.mu.RLock()
	targets := make(map[string]Sink, len(r.rooms[roomID]))
	for id := range r.rooms[roomID] {
		if id == exceptConnID {
			continue
		}
		targets[id] = r.conns[id].sink
	}
	r.mu.RUnlock()

	for id, sink := range targets {
		if err := sink.Send(ev); err != nil {
			logging.ErrorLogger.Error("broadcast dropped",
				zap.String("conn_id", id), zap.String("event", ev.Name), zap.Error(err))
		}
	}
}

func (r *Registry) joinLocked(c *connection, roomID string) {
	c.rooms[roomID] = struct{}{}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][c.id] = struct{}{}
}

func (r *Registry) leaveLocked(c *connection, roomID string) {
	delete(c.rooms, roomID)
	if members, ok := r.rooms[roomID]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}
