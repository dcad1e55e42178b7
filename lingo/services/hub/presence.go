package hub

import (
	"lingo/lingo/utils/logging"
	"lingo/lingo/utils/types"

	"go.uber.org/zap"
)

// Presence announces users coming and going to the default room.
type Presence struct {
	registry *Registry
}

func NewPresence(registry *Registry) *Presence {
	return &Presence{registry: registry}
}

// AnnounceOnline tells every other member of the default room that userID
// connected. The connection that just joined never receives it.
func (p *Presence) AnnounceOnline(connID string, userID int) {
	p.registry.BroadcastExcept(p.registry.DefaultRoom(), connID, types.Event{
		Name:    types.EventUserOnline,
		Payload: types.OK(types.EventUserOnline, userID),
	})
}

// AnnounceOffline broadcasts userID as given. On disconnect that value comes
// from the client handshake and is not verified.
func (p *Presence) AnnounceOffline(connID string, userID any) {
	logging.AppLogger.Info("user offline", zap.String("conn_id", connID), zap.Any("user_id", userID))
	p.registry.BroadcastExcept(p.registry.DefaultRoom(), connID, types.Event{
		Name:    types.EventUserOffline,
		Payload: types.OK(types.EventUserOffline, userID),
	})
}
