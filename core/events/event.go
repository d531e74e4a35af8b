package events

import "time"

// Event is implemented by every hub event. Kind is a stable, lower case
// identifier usable as a topic segment.
type Event interface {
	Kind() string
}

// StreamRegistered is published when a stream joins the registry.
type StreamRegistered struct {
	Stream     string    `json:"stream"`
	Interfaces []string  `json:"interfaces"`
	Time       time.Time `json:"time"`
}

func (StreamRegistered) Kind() string { return "registered" }

// StreamUnregistered is published when a stream leaves the registry.
type StreamUnregistered struct {
	Stream     string    `json:"stream"`
	Interfaces []string  `json:"interfaces"`
	Time       time.Time `json:"time"`
}

func (StreamUnregistered) Kind() string { return "unregistered" }

// PriorityChanged is published when a connection priority changes.
type PriorityChanged struct {
	Stream    string    `json:"stream"`
	Interface string    `json:"interface"`
	Priority  int       `json:"priority"`
	Time      time.Time `json:"time"`
}

func (PriorityChanged) Kind() string { return "priority" }
