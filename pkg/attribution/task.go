package attribution

import (
	"encoding/json"

	"github.com/dmitrymomot/attribution/pkg/trackapi"
)

// TaskKind names a call that may be queued before initialization.
type TaskKind string

const (
	TaskTrackClick TaskKind = "trackClick"
	TaskTrackLead  TaskKind = "trackLead"
	TaskTrackSale  TaskKind = "trackSale"
)

// Task is a queued call. Done, when set, receives the result; click tasks
// report a nil response.
type Task struct {
	Kind  TaskKind
	Key   string
	Event trackapi.Event
	Done  func(resp json.RawMessage, err error)
}

func ClickTask(key string) Task {
	return Task{Kind: TaskTrackClick, Key: key}
}

func LeadTask(ev trackapi.Event) Task {
	return Task{Kind: TaskTrackLead, Event: ev}
}

func SaleTask(ev trackapi.Event) Task {
	return Task{Kind: TaskTrackSale, Event: ev}
}

func (t Task) done(resp json.RawMessage, err error) {
	if t.Done != nil {
		t.Done(resp, err)
	}
}
