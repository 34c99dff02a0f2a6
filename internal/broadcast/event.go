package broadcast

// EventKind is the wire name of a broadcast event.
type EventKind string

const (
	PollCreated     EventKind = "POLL_REGISTER"
	PollUpdated     EventKind = "VOTED"
	PresenceChanged EventKind = "USER_LIST"
)

// Event is the envelope written to every observer. Actor names the user whose
// request caused the event, so a client can recognise its own vote.
type Event struct {
	Kind  EventKind `json:"event"`
	Data  any       `json:"data"`
	Actor string    `json:"actor,omitempty"`
}

type Presence struct {
	ActiveUsers int `json:"activeUsers"`
}
