package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/broadcast"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// SessionHub registers viewer sessions. broadcast.Hub satisfies it.
type SessionHub interface {
	Register(s broadcast.Session) (unregister func())
}

// SolutionStateHandler streams the solutions of one problem over a WebSocket.
type SolutionStateHandler struct {
	Service  SolverService
	Hub      SessionHub
	Upgrader websocket.Upgrader
}

func (h *SolutionStateHandler) Serve(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	viewer := viewerIDFrom(r)
	if viewer == "" {
		viewer = uuid.NewString()
	}
	logger := log.WithFields(log.Fields{"viewer": viewer, "problem_id": problemID})

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		logger.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var mu sync.Mutex
	send := func(_ context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	if current, err := h.Service.CurrentSolutionRequest(r.Context(), problemID); err == nil {
		if payload, err := json.Marshal(current); err == nil {
			if err := send(r.Context(), payload); err != nil {
				logger.WithError(err).Debug("could not send current solution")
				return
			}
		}
	}

	unregister := h.Hub.Register(broadcast.Session{ViewerID: viewer, ProblemID: problemID, Send: send})
	defer unregister()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Viewers only listen; reading keeps control frames flowing and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logger.Debug("viewer disconnected")
			return
		}
	}
}
