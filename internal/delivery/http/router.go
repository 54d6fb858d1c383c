package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventlottery/internal/delivery/http/controllers"
	"eventlottery/internal/delivery/http/helpers"
	"eventlottery/internal/delivery/http/middleware"
	"eventlottery/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	eventController *controllers.EventController,
	waitlistController *controllers.WaitlistController,
	lotteryController *controllers.LotteryController,
	invitationController *controllers.InvitationController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /events", eventController.ListActiveEvents)
	mux.HandleFunc("GET /events/mine", auth(eventController.ListMyEvents))
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEvent)
	mux.HandleFunc("DELETE /events/{eventID}", auth(eventController.RemoveEvent))
	mux.HandleFunc("POST /events/{eventID}/reset", auth(eventController.ResetAttendance))
	mux.HandleFunc("POST /events/{eventID}/broadcast", auth(eventController.Broadcast))

	// Waitlist
	mux.HandleFunc("POST /events/{eventID}/waitlist", auth(waitlistController.Join))
	mux.HandleFunc("GET /events/{eventID}/waitlist", waitlistController.ListWaiting)
	mux.HandleFunc("DELETE /events/{eventID}/waitlist", auth(waitlistController.PurgeEvent))
	mux.HandleFunc("POST /events/{eventID}/signup", auth(waitlistController.SignUpDirect))
	mux.HandleFunc("GET /events/{eventID}/waitlist/watch", waitlistController.Watch)
	mux.HandleFunc("GET /events/{eventID}/chosen", waitlistController.ListChosen)
	mux.HandleFunc("DELETE /waitlist/{entryID}", auth(waitlistController.Leave))
	mux.HandleFunc("GET /me/waitlist", auth(waitlistController.MyHistory))
	mux.HandleFunc("DELETE /me/waitlist", auth(waitlistController.PurgeMe))
	mux.HandleFunc("POST /me/name", auth(waitlistController.Rename))

	// Lottery
	mux.HandleFunc("POST /events/{eventID}/lottery", auth(lotteryController.RunLottery))

	// Invitations
	mux.HandleFunc("POST /invitations/{invitationID}/accept", auth(invitationController.Accept))
	mux.HandleFunc("POST /invitations/{invitationID}/decline", auth(invitationController.Decline))
	mux.HandleFunc("POST /invitations/expire-overdue", auth(invitationController.ExpireOverdue))
	mux.HandleFunc("GET /me/invitations", auth(invitationController.ListMine))
	mux.HandleFunc("GET /events/{eventID}/invitations", auth(invitationController.ListForEvent))

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
