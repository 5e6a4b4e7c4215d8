package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/engine/webhook"
	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
	"github.com/nftbarter/discovery-engine/infrastructure/logging"
)

// CycleFeed fans newly admitted cycles out to per-tenant websocket
// subscribers (GET /ws/cycles), fed by the same hook the webhook
// dispatcher uses (engine/dispatcher.Config.OnAdmitted) so a connected
// tenant observes discovery live instead of only polling
// /discovery/trades. Supplementary feature, enriching the retrieved
// spec rather than restoring anything dropped from it. Built before the
// dispatcher so cmd/discoveryserver can wire CycleFeed.OnAdmitted into
// dispatcher.Config and then hand the same feed to NewHandler.
type CycleFeed struct {
	upgrader websocket.Upgrader
	log      *logging.Logger

	mu          sync.Mutex
	subscribers map[identity.TenantID]map[*wsConn]struct{}
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func NewCycleFeed(log *logging.Logger) *CycleFeed {
	return &CycleFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:         log,
		subscribers: make(map[identity.TenantID]map[*wsConn]struct{}),
	}
}

// OnAdmitted is wired into engine/dispatcher.Config so every newly
// admitted cycle reaches connected subscribers for that tenant.
func (f *CycleFeed) OnAdmitted(tenant identity.TenantID, payload webhook.Payload) {
	f.mu.Lock()
	conns := make([]*wsConn, 0, len(f.subscribers[tenant]))
	for c := range f.subscribers[tenant] {
		conns = append(conns, c)
	}
	f.mu.Unlock()

	for _, c := range conns {
		if err := c.writeJSON(payload); err != nil {
			f.remove(tenant, c)
		}
	}
}

func (f *CycleFeed) add(tenant identity.TenantID, c *wsConn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.subscribers[tenant]
	if !ok {
		set = make(map[*wsConn]struct{})
		f.subscribers[tenant] = set
	}
	set[c] = struct{}{}
}

func (f *CycleFeed) remove(tenant identity.TenantID, c *wsConn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscribers[tenant], c)
	_ = c.conn.Close()
}

// handleWS implements GET /ws/cycles: upgrades the connection and keeps
// it registered until the client disconnects.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	if h.deps.Feed == nil {
		h.fail(w, r, svcerrors.DependencyUnavailable("cycle feed", nil))
		return
	}
	handle, ok := tenantFromContext(r.Context())
	if !ok {
		h.fail(w, r, svcerrors.Unauthorized("missing tenant context"))
		return
	}

	raw, err := h.deps.Feed.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.deps.Log != nil {
			h.deps.Log.Error(r.Context(), "websocket upgrade failed", err, nil)
		}
		return
	}

	conn := &wsConn{conn: raw}
	h.deps.Feed.add(handle.Tenant.ID, conn)
	defer h.deps.Feed.remove(handle.Tenant.ID, conn)

	// Drain and discard inbound frames; this feed is push-only. Reading
	// is still required so the connection notices client-initiated
	// closes promptly.
	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			return
		}
	}
}
