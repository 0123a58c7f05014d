// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose
// coupling between the task-mutation code paths and the calendar sync engine.
// Mutation handlers emit events without knowing which handlers will process
// them, so a task update never blocks on, or fails because of, sync work.
//
// The primary components are:
// - SyncRequestEvent: Represents a request to sync or unsync an item
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
