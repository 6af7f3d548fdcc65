package events

import "encoding/json"

// Event name constants
const (
	TableReloaded     = "table.reloaded"
	TableReloadFailed = "table.reload_failed"
	ReloadUpcoming    = "table.reload_upcoming"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// TableReloadedEvent is the payload of table.reloaded.
type TableReloadedEvent struct {
	Path      string `json:"path"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Trigger   string `json:"trigger"`
	Timestamp int64  `json:"ts"`
}

// TableReloadFailedEvent is the payload of table.reload_failed. The
// previously loaded table stays in service.
type TableReloadFailedEvent struct {
	Path      string `json:"path"`
	Error     string `json:"error"`
	Trigger   string `json:"trigger"`
	Timestamp int64  `json:"ts"`
}

// ReloadUpcomingEvent is the payload of table.reload_upcoming, sent shortly
// before a scheduled reload.
type ReloadUpcomingEvent struct {
	Path      string `json:"path"`
	DueAt     int64  `json:"dueAt"`
	Timestamp int64  `json:"ts"`
}

// DecodeAs decodes the event payload into T. Empty payloads yield the zero
// value of T.
//
//	payload, err := events.DecodeAs[events.TableReloadedEvent](ev)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
