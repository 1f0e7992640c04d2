package domain

import "time"

// HistoryAction captures what a history entry records.
type HistoryAction string

const (
	HistoryActionCreated      HistoryAction = "created"
	HistoryActionStatusChange HistoryAction = "status_change"
	HistoryActionNoteAdded    HistoryAction = "note_added"
	HistoryActionAssignment   HistoryAction = "assignment"
	HistoryActionUpdated      HistoryAction = "updated"
)

// Public reports whether submitters may see entries of this action.
func (a HistoryAction) Public() bool {
	return a == HistoryActionCreated || a == HistoryActionStatusChange
}

// HistoryEvent is an immutable audit trail entry.
type HistoryEvent struct {
	ID          string
	TicketID    string
	ActionType  HistoryAction
	FieldName   *string
	OldValue    *string
	NewValue    *string
	Description string
	ActorID     *string
	CreatedAt   time.Time
}

// PublicHistory filters entries down to what the tracking view may show.
func PublicHistory(entries []HistoryEvent) []HistoryEvent {
	out := make([]HistoryEvent, 0, len(entries))
	for _, entry := range entries {
		if entry.ActionType.Public() {
			out = append(out, entry)
		}
	}
	return out
}
