// Package store keeps rendered frames and raised alerts in memory and
// publishes frames to subscribers.
//
// The main components are:
//
//   - [Store]: interface for frame storage, alert history and subscriptions
//   - [MemoryStore]: bounded in-memory implementation with pub/sub
//   - [Frame]: one rendered view-model with its sequence number
//
// Subscribers receive frames via channels with non-blocking sends (slow
// subscribers miss frames rather than block the poll session).
package store
