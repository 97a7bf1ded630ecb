// Package events defines the room event types shared across the chat
// subsystem and an in-process emitter that lets other modules push events
// into live rooms without depending on the transport layer.
package events
