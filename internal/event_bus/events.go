package event_bus

import "encoding/json"

const EntitiesChangedType EventType = "entities.changed"

// EntitiesChanged carries the full post-mutation snapshot of one entity kind
// for one session owner. Version orders changes of the same store; a change
// with a smaller version is older.
type EntitiesChanged struct {
	Owner   string
	Kind    string
	Op      string
	Version uint64
	Records []Record
}

type Record struct {
	Key     string
	Payload json.RawMessage
}
