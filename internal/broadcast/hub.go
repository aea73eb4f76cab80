// Package broadcast fans persisted solutions out to connected viewers.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

// Session is one viewer connection watching a problem.
// ViewerID selects the display panel; several sessions may share it.
type Session struct {
	ViewerID  string
	ProblemID int64
	Send      func(ctx context.Context, payload []byte) error
}

// Hub keeps the local sessions of this process.
type Hub struct {
	panels ports.PanelStore
	geo    ports.GeoPort

	mu       sync.RWMutex
	nextID   uint64
	sessions map[uint64]Session

	sent    tally.Counter
	dropped tally.Counter
}

func NewHub(panels ports.PanelStore, geo ports.GeoPort, scope tally.Scope) *Hub {
	if scope == nil {
		scope = tally.NoopScope
	}
	scope = scope.SubScope("broadcast")
	return &Hub{
		panels:   panels,
		geo:      geo,
		sessions: make(map[uint64]Session),
		sent:     scope.Counter("sent"),
		dropped:  scope.Counter("dropped"),
	}
}

// Register adds s and returns the function that removes it. Calling the
// returned function more than once is harmless.
func (h *Hub) Register(s Session) (unregister func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.sessions[id] = s
	h.mu.Unlock()

	log.WithFields(log.Fields{"viewer": s.ViewerID, "problem_id": s.ProblemID}).Debug("viewer connected")
	return func() { h.remove(id) }
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// Len is the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) watchers(problemID int64) map[uint64]Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[uint64]Session)
	for id, s := range h.sessions {
		if s.ProblemID == problemID {
			out[id] = s
		}
	}
	return out
}

// Broadcast sends cmd to every session watching its problem. Viewers with a
// detailed panel receive routes expanded to road geometry. Each detail level
// is encoded at most once. Sessions whose send fails are dropped.
func (h *Hub) Broadcast(ctx context.Context, cmd domain.SolutionCommand) {
	req := cmd.SolutionRequest
	problemID := req.Solution.Problem.ID

	watchers := h.watchers(problemID)
	if len(watchers) == 0 {
		return
	}

	payloads := make(map[bool][]byte, 2)
	for id, s := range watchers {
		detailed := false
		if h.panels != nil {
			panel, err := h.panels.Get(ctx, s.ViewerID)
			if err != nil {
				log.WithError(err).WithField("viewer", s.ViewerID).Warn("panel lookup failed, sending plain routes")
			}
			detailed = panel.IsDetailedPath
		}

		payload, ok := payloads[detailed]
		if !ok {
			var err error
			payload, err = h.encode(ctx, req, detailed)
			if err != nil {
				log.WithError(err).WithField("problem_id", problemID).Error("encode solution failed")
				return
			}
			payloads[detailed] = payload
		}

		if err := s.Send(ctx, payload); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"viewer":     s.ViewerID,
				"problem_id": problemID,
			}).Warn("could not send solution to viewer, dropping session")
			h.remove(id)
			h.dropped.Inc(1)
			continue
		}
		h.sent.Inc(1)
	}
}

func (h *Hub) encode(ctx context.Context, req domain.VrpSolutionRequest, detailed bool) ([]byte, error) {
	if detailed && h.geo != nil {
		routes, err := h.geo.DetailedPaths(ctx, req.Solution.Routes)
		if err != nil {
			log.WithError(err).Warn("detailed paths failed, sending plain routes")
		} else {
			req.Solution = req.Solution.WithRoutes(routes)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode solution request: %w", err)
	}
	return payload, nil
}
