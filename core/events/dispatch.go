package events

import "time"

// Dispatched is published once per proxy invocation.
type Dispatched struct {
	ID         string        `json:"id"`
	Interface  string        `json:"interface"`
	Method     string        `json:"method"`
	Tag        string        `json:"tag,omitempty"`
	Candidates int           `json:"candidates"`
	Invoked    int           `json:"invoked"`
	Fallback   bool          `json:"fallback"`
	Broken     bool          `json:"broken"`
	Sticky     bool          `json:"sticky"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
	Time       time.Time     `json:"time"`
}

func (Dispatched) Kind() string { return "dispatched" }

// DefaultCreated is published when the default factory builds a new
// fallback stream instead of reusing a cached one.
type DefaultCreated struct {
	Interface      string    `json:"interface"`
	Implementation string    `json:"implementation"`
	Time           time.Time `json:"time"`
}

func (DefaultCreated) Kind() string { return "default_created" }

// StickyReplayed is published after recorded sticky calls were replayed.
type StickyReplayed struct {
	Stream    string    `json:"stream"`
	Interface string    `json:"interface"`
	Calls     int       `json:"calls"`
	Time      time.Time `json:"time"`
}

func (StickyReplayed) Kind() string { return "sticky_replayed" }
