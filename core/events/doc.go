// Package events defines the stream hub events emitted on the event bus.
//
// Available event types:
//   - StreamRegistered / StreamUnregistered: registry membership changes
//   - PriorityChanged: a connection priority was updated
//   - Dispatched: one proxy invocation finished its fan-out
//   - DefaultCreated: a fallback stream was instantiated
//   - StickyReplayed: recorded sticky calls were replayed to a stream
package events
