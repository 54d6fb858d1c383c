package domain

import "context"

// WinnerSelector picks n entries from the eligible WAITING pool. The
// default selector is uniform without replacement; tests inject a
// deterministic one. Selection must not weight by wait time or position.
type WinnerSelector func(waiting []*WaitlistEntry, n int) []*WaitlistEntry

// DrawResult reports one lottery wave.
type DrawResult struct {
	EventID string `json:"event_id"`
	// Wave is the wave number stamped on the created invitations (the
	// event's draw_wave before the post-draw increment).
	Wave int `json:"wave"`
	// Invitations created for the selected entrants, in selection order.
	Invitations []*EventInvitation `json:"invitations"`
	// RemainingUserIDs are the entrants still WAITING after the wave; they
	// receive the once-per-wave "not selected" notification.
	RemainingUserIDs []string `json:"remaining_user_ids"`
	// NoOp is true when n = min(winners, waiting, capacity-enrolled) was
	// zero or less: nothing changed, the wave counter was not bumped.
	NoOp bool `json:"no_op"`
}

// DrawRepository runs the draw transaction: it reads the event and its
// WAITING entries under a row lock, applies the selector, flips the chosen
// entries to INVITED, creates PENDING invitations stamped with the current
// wave, and increments draw_wave, all atomically. A concurrent join that
// invalidates the read causes the whole transaction to be retried from the
// read step.
type DrawRepository interface {
	RunDraw(ctx context.Context, eventID string, numberOfWinners int, selector WinnerSelector) (*DrawResult, error)
}

// LotteryService runs lottery waves for organizers.
type LotteryService interface {
	// RunLottery draws up to numberOfWinners entrants for the event; a
	// non-positive numberOfWinners falls back to the event's
	// SamplingCount. Only the event owner may draw.
	RunLottery(ctx context.Context, eventID, ownerID string, numberOfWinners int) (*DrawResult, error)
}
