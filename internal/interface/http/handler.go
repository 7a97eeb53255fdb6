package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harvesta/companion/internal/domain/capability"
	"github.com/harvesta/companion/internal/domain/session"
	"github.com/harvesta/companion/internal/domain/viewstate"
)

// SessionRegistry is the session lifecycle as the transport needs it.
type SessionRegistry interface {
	Create(ctx context.Context) (*session.Session, session.Token, error)
	Resolve(token string) (*session.Session, error)
	Close(id string) error
}

// Handler wires the HTTP transport to the per-session screen controllers.
type Handler struct {
	sessions SessionRegistry
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(sessions SessionRegistry, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger.With("component", "http.handler"),
	}
}

type triggerRequest struct {
	Reason    string   `json:"reason"`
	Wait      bool     `json:"wait"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type triggerResponse struct {
	Generation uint64 `json:"generation"`
	Started    bool   `json:"started"`
	State      any    `json:"state"`
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateSession opens a session and returns its bearer token.
func (h *Handler) CreateSession(c *gin.Context) {
	sess, token, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":   sess.ID,
		"token":     token.Value,
		"expiresAt": token.ExpiresAt,
	})
}

// CloseSession ends the caller's session.
func (h *Handler) CloseSession(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(sess.ID); err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard returns the dashboard state.
func (h *Handler) Dashboard(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Dashboard.State())
}

// TriggerDashboard (re)loads the weather card.
func (h *Handler) TriggerDashboard(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	req, reason, ok := bindTrigger(c)
	if !ok {
		return
	}
	pos, err := positionOf(req)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}
	if req.Wait {
		c.JSON(http.StatusOK, sess.Dashboard.Load(c.Request.Context(), reason, pos))
		return
	}
	gen, started := sess.Dashboard.Trigger(reason, pos)
	c.JSON(http.StatusAccepted, triggerResponse{Generation: gen, Started: started, State: sess.Dashboard.State()})
}

// Harvest returns the harvest summary state.
func (h *Handler) Harvest(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Summary.State())
}

// TriggerHarvest (re)loads the latest prediction.
func (h *Handler) TriggerHarvest(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	req, reason, ok := bindTrigger(c)
	if !ok {
		return
	}
	if req.Wait {
		c.JSON(http.StatusOK, sess.Summary.Load(c.Request.Context(), reason))
		return
	}
	gen := sess.Summary.Trigger(reason)
	c.JSON(http.StatusAccepted, triggerResponse{Generation: gen, Started: true, State: sess.Summary.State()})
}

// History returns the history screen state.
func (h *Handler) History(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.History.State())
}

// TriggerHistory (re)loads the historical series.
func (h *Handler) TriggerHistory(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	req, reason, ok := bindTrigger(c)
	if !ok {
		return
	}
	if req.Wait {
		c.JSON(http.StatusOK, sess.History.Load(c.Request.Context(), reason))
		return
	}
	gen := sess.History.Trigger(reason)
	c.JSON(http.StatusAccepted, triggerResponse{Generation: gen, Started: true, State: sess.History.State()})
}

// Notices drains the caller's pending notices.
func (h *Handler) Notices(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": sess.Notices()})
}

func (h *Handler) requireSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := getSession(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing session", nil))
		return nil, false
	}
	return sess, true
}

func bindTrigger(c *gin.Context) (triggerRequest, viewstate.Trigger, bool) {
	var req triggerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return req, "", false
		}
	}
	reason, err := viewstate.ParseTrigger(req.Reason)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return req, "", false
	}
	return req, reason, true
}

func positionOf(req triggerRequest) (*capability.Coordinates, error) {
	if req.Latitude == nil && req.Longitude == nil {
		return nil, nil
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, errLatLonPair
	}
	pos := capability.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	return &pos, nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
