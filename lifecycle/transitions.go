package lifecycle

import (
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

type Event string

const (
	EventCreate        Event = "create"
	EventApprove       Event = "approve"
	EventReject        Event = "reject"
	EventEdit          Event = "edit"
	EventDelete        Event = "delete"
	EventRegister      Event = "registerParticipant"
	EventSubmit        Event = "submitTask"
	EventDeclareWinner Event = "declareWinner"
)

// Transition is one edge of the contest state machine. To is empty for delete.
type Transition struct {
	From  models.ContestStatus
	Event Event
	To    models.ContestStatus
}

const statusNone models.ContestStatus = ""

var transitions = []Transition{
	{statusNone, EventCreate, models.StatusPending},
	{models.StatusPending, EventApprove, models.StatusApproved},
	{models.StatusPending, EventReject, models.StatusRejected},
	{models.StatusPending, EventEdit, models.StatusPending},
	{models.StatusPending, EventDelete, statusNone},
	{models.StatusApproved, EventRegister, models.StatusApproved},
	{models.StatusApproved, EventSubmit, models.StatusApproved},
	{models.StatusApproved, EventDeclareWinner, models.StatusWinnerDeclared},
	// admin only, see authorize
	{models.StatusApproved, EventDelete, statusNone},
	{models.StatusRejected, EventDelete, statusNone},
	{models.StatusWinnerDeclared, EventDelete, statusNone},
}

// Transitions returns the full edge list.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Next returns the status event leads to from, and whether the edge exists.
func Next(from models.ContestStatus, event Event) (models.ContestStatus, bool) {
	for _, t := range transitions {
		if t.From == from && t.Event == event {
			return t.To, true
		}
	}
	return "", false
}

// statusEvents maps a requested target status to the event that reaches it.
var statusEvents = map[models.ContestStatus]Event{
	models.StatusApproved:       EventApprove,
	models.StatusRejected:       EventReject,
	models.StatusWinnerDeclared: EventDeclareWinner,
}

func isOwner(actor Actor, c models.Contest) bool {
	return actor.ID == c.CreatorID
}

// authorize is the single capability check for every lifecycle event.
func authorize(event Event, actor Actor, c models.Contest) error {
	switch event {
	case EventCreate:
		if actor.Role == models.RoleCreator || actor.Role == models.RoleAdmin {
			return nil
		}
		return errs.NewInsufficientRoleError("creator")
	case EventApprove, EventReject:
		if actor.Role == models.RoleAdmin {
			return nil
		}
		return errs.NewInsufficientRoleError("admin")
	case EventEdit:
		if isOwner(actor, c) {
			return nil
		}
		return errs.NewForbiddenError("only the contest creator can edit it")
	case EventDelete:
		if actor.Role == models.RoleAdmin {
			return nil
		}
		if isOwner(actor, c) && c.Status == models.StatusPending {
			return nil
		}
		return errs.NewForbiddenError("only an admin can delete a contest once it left pending")
	case EventDeclareWinner:
		if actor.Role == models.RoleAdmin {
			return nil
		}
		if actor.Role == models.RoleCreator && isOwner(actor, c) {
			return nil
		}
		return errs.NewForbiddenError("only an admin or the contest creator can declare a winner")
	case EventRegister, EventSubmit:
		if actor.ID != c.CreatorID {
			return nil
		}
		return errs.NewForbiddenError("creators cannot take part in their own contest")
	}
	return errs.NewForbiddenError("unknown event")
}
