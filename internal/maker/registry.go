package maker

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rfq-router/pkg/model"
)

// ConnectionDirectory reports whether a maker currently has a live, registered
// channel. Implemented by the websocket hub.
type ConnectionDirectory interface {
	IsConnected(pubkey string) bool
}

// Registry is the source of truth for which maker identities may quote.
// Allowlist membership is independent of connection state: a maker can be
// allowlisted but disconnected, or connected but not yet registered.
type Registry struct {
	mu        sync.RWMutex
	allowlist map[string]struct{}
	order     []string // insertion order, for stable listings
	conns     ConnectionDirectory
	logger    *zap.Logger
}

// NewRegistry creates an empty maker registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		allowlist: make(map[string]struct{}),
		logger:    logger,
	}
}

// Allow adds a maker identity to the allowlist. Idempotent.
func (r *Registry) Allow(pubkey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allowlist[pubkey]; ok {
		return
	}
	r.allowlist[pubkey] = struct{}{}
	r.order = append(r.order, pubkey)

	r.logger.Info("maker.allowlisted", zap.String("pubkey", pubkey))
}

// IsAllowed reports whether the identity may participate at all.
func (r *Registry) IsAllowed(pubkey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.allowlist[pubkey]
	return ok
}

// SetConnections wires the live-connection directory after the hub exists
// (the hub needs the registry first, for its allowlist checks).
func (r *Registry) SetConnections(conns ConnectionDirectory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = conns
}

// List returns every allowlisted maker with its live-connection flag, in
// allowlist insertion order.
func (r *Registry) List() []model.MakerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	makers := make([]model.MakerInfo, 0, len(r.order))
	for _, pubkey := range r.order {
		connected := false
		if r.conns != nil {
			connected = r.conns.IsConnected(pubkey)
		}
		makers = append(makers, model.MakerInfo{Pubkey: pubkey, Connected: connected})
	}
	return makers
}
