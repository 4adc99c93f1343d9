package store

// EventOp identifies which mutation an Event reports.
type EventOp int

const (
	EventInsert EventOp = iota
	EventRemove
)

// Event is what the router broadcasts to subscribers: the mutation kind,
// the key it touched, and — for inserts — the document after the
// mutation.
type Event[K comparable, D any] struct {
	Op  EventOp
	Key K
	Doc D
}
