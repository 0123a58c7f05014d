// Package calsync implements one-way mirroring of scheduled tasks and
// recurring-task instances into an external calendar. The sync engine
// reconciles local items against the calendar using change hashes so that
// unchanged items cost no API calls; the orchestrator owns per-user
// exclusion, progress counters and cooperative cancellation, and runs
// every pass as background work that never blocks a user request.
package calsync
