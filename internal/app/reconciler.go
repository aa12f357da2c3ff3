package app

import (
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

// Reconciler keeps the durable meeting record in step with room membership.
// RoomManager calls it under the room lock, in the order transitions are
// decided, so implementations must only enqueue.
type Reconciler interface {
	MeetingStarted(room domain.RoomID, by *domain.UserID, at time.Time)
	MeetingEnded(room domain.RoomID, at time.Time)
	ParticipantJoined(room domain.RoomID, conn domain.Connection, at time.Time)
	ParticipantLeft(room domain.RoomID, conn domain.Connection, at time.Time)
	ChatPosted(room domain.RoomID, conn domain.Connection, message string, at time.Time)
	Forget(room domain.RoomID)
}

type nopReconciler struct{}

func (nopReconciler) MeetingStarted(domain.RoomID, *domain.UserID, time.Time) {}
func (nopReconciler) MeetingEnded(domain.RoomID, time.Time) {}
func (nopReconciler) ParticipantJoined(domain.RoomID, domain.Connection, time.Time) {}
func (nopReconciler) ParticipantLeft(domain.RoomID, domain.Connection, time.Time) {}
func (nopReconciler) ChatPosted(domain.RoomID, domain.Connection, string, time.Time) {}
func (nopReconciler) Forget(domain.RoomID) {}
