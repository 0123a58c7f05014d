// Package mocks provides in-memory implementations of the store and
// calendar client interfaces for testing. Each mock keeps state in maps
// guarded by a mutex, tracks calls for verification, and lets individual
// methods be overridden with Fn fields when a test needs custom behavior
// or injected failures.
package mocks
