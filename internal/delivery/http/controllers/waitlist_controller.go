package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"eventlottery/internal/delivery/http/helpers"
	"eventlottery/internal/delivery/http/middleware"
	"eventlottery/internal/domain"
)

type WaitlistController struct {
	Logger  *slog.Logger
	Service domain.WaitlistService
	Watcher domain.WaitlistWatcher
}

func NewWaitlistController(logger *slog.Logger, svc domain.WaitlistService, watcher domain.WaitlistWatcher) *WaitlistController {
	return &WaitlistController{
		Logger:  logger,
		Service: svc,
		Watcher: watcher,
	}
}

// JoinRequest is the request body for joining or signing up.
type JoinRequest struct {
	UserName string `json:"user_name"`
}

// Validate implements helpers.Validator.
func (r *JoinRequest) Validate() []string {
	if strings.TrimSpace(r.UserName) == "" {
		return []string{"user_name is required"}
	}
	return nil
}

// joinResponse wraps an entry with whether this call created it.
type joinResponse struct {
	Entry   *domain.WaitlistEntry `json:"entry"`
	Created bool                  `json:"created"`
}

// Join godoc
// @Summary Join an event's waitlist
// @Description Adds the authenticated user to the queue. Idempotent: rejoining while an active entry exists returns that entry.
// @Tags waitlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.JoinRequest true "Entrant details"
// @Success 200 {object} helpers.APIResponse "data.created is false; data.entry is the existing entry"
// @Success 201 {object} helpers.APIResponse "data.created is true; data.entry is the new entry"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded when the waitlist is full"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [post]
func (c *WaitlistController) Join(w http.ResponseWriter, r *http.Request) {
	c.enroll(w, r, c.Service.Join)
}

// SignUpDirect godoc
// @Summary Sign up for an event directly
// @Description Confirms the authenticated user immediately, bypassing the lottery. Used for events without a draw step.
// @Tags waitlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body controllers.JoinRequest true "Entrant details"
// @Success 200 {object} helpers.APIResponse "data.created is false; data.entry is the existing entry"
// @Success 201 {object} helpers.APIResponse "data.created is true; data.entry is the new ACCEPTED entry"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_exceeded when the event is full"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/signup [post]
func (c *WaitlistController) SignUpDirect(w http.ResponseWriter, r *http.Request) {
	c.enroll(w, r, c.Service.SignUpDirect)
}

// Leave godoc
// @Summary Leave a waitlist
// @Description Cancels the caller's entry. Valid only while WAITING or INVITED.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param entryID path string true "Waitlist entry ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_transition"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /waitlist/{entryID} [delete]
func (c *WaitlistController) Leave(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathUUID(w, r, "entryID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Leave(r.Context(), entryID, userID); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// ListWaiting godoc
// @Summary List an event's waiting entrants
// @Description Returns WAITING entries in queue order.
// @Tags waitlist
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of waitlist entries"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [get]
func (c *WaitlistController) ListWaiting(w http.ResponseWriter, r *http.Request) {
	c.listByEvent(w, r, c.Service.ListWaiting)
}

// ListChosen godoc
// @Summary List an event's chosen entrants
// @Description Returns INVITED and ACCEPTED entries.
// @Tags waitlist
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of waitlist entries"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/chosen [get]
func (c *WaitlistController) ListChosen(w http.ResponseWriter, r *http.Request) {
	c.listByEvent(w, r, c.Service.ListChosen)
}

// MyHistory godoc
// @Summary List the authenticated user's waitlist entries
// @Description Returns every entry for the caller across events, newest first.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of waitlist entries"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/waitlist [get]
func (c *WaitlistController) MyHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	entries, err := c.Service.MyHistory(r.Context(), userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, entries)
}

// RenameRequest is the request body for renaming the caller across entries.
type RenameRequest struct {
	UserName string `json:"user_name"`
}

// Validate implements helpers.Validator.
func (r *RenameRequest) Validate() []string {
	if strings.TrimSpace(r.UserName) == "" {
		return []string{"user_name is required"}
	}
	return nil
}

// Rename godoc
// @Summary Update the caller's display name on their entries
// @Description Rewrites the denormalized name on every entry the caller holds. Best-effort.
// @Tags waitlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.RenameRequest true "New display name"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/name [post]
func (c *WaitlistController) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.RenameEntrant(r.Context(), userID, req.UserName); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// PurgeMe godoc
// @Summary Remove all of the caller's waitlist entries
// @Description Hard-deletes every entry the caller holds and reconciles event counters. Idempotent.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/waitlist [delete]
func (c *WaitlistController) PurgeMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.PurgeEntrant(r.Context(), userID); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// PurgeEvent godoc
// @Summary Remove all waitlist entries for an event
// @Description Hard-deletes every entry for the event. Owner only. Idempotent.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [delete]
func (c *WaitlistController) PurgeEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.PurgeEvent(r.Context(), eventID, userID); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, nil)
}

// Watch godoc
// @Summary Stream an event's waitlist
// @Description Server-sent events stream of full waitlist snapshots: one on connect and one after every change. Each message's data line is a JSON array of waitlist entries. The stream ends when the client disconnects.
// @Tags waitlist
// @Produce text/event-stream
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist/watch [get]
func (c *WaitlistController) Watch(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "streaming unsupported")
		return
	}
	sub, err := c.Watcher.Watch(r.Context(), eventID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for entries := range sub.Updates() {
		payload, err := json.Marshal(entries)
		if err != nil {
			c.Logger.ErrorContext(r.Context(), "failed to encode waitlist snapshot", "event_id", eventID, "err", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
	if err := sub.Err(); err != nil && !errors.Is(err, context.Canceled) {
		c.Logger.ErrorContext(r.Context(), "waitlist stream ended", "event_id", eventID, "err", err)
	}
}

type enrollFunc func(ctx context.Context, eventID, userID, userName string) (*domain.WaitlistEntry, bool, error)

func (c *WaitlistController) enroll(w http.ResponseWriter, r *http.Request, fn enrollFunc) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req JoinRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	entry, created, err := fn(r.Context(), eventID, userID, req.UserName)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, joinResponse{Entry: entry, Created: created})
}

func (c *WaitlistController) listByEvent(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error)) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	entries, err := fn(r.Context(), eventID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, entries)
}

func (c *WaitlistController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrCapacityExceeded):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeCapacityExceeded, "capacity exceeded")
	case errors.Is(err, domain.ErrInvalidTransition):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrConflict):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "temporary conflict, retry")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
