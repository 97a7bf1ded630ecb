// Package ws is the realtime transport: it upgrades authenticated HTTP
// requests to websocket connections, tracks which connection is in which
// task room, and delivers room broadcasts and per-user pushes. All chat
// semantics live in the chat service; this package only moves events.
package ws
