// Package domain contains the core entities of the task chat subsystem:
// chat messages, notifications, and task memberships. Entities validate
// themselves and carry no persistence or transport concerns.
package domain
