// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of work like fanning
// out chat notifications to task members, ensuring delivery never blocks
// the message send path.
package task
