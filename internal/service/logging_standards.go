package service

// Logging Standards for InspiraNet
//
// This file defines standard field names and sweep names used by the
// scheduler and the ops server.

// Standard Field Names
const (
	// Core identifiers
	LogFieldMessageID      = "message_id"
	LogFieldConversationID = "conversation_id"
	LogFieldUserID         = "user_id"

	// Sweep fields
	LogFieldRunID     = "run_id"
	LogFieldSweep     = "sweep"
	LogFieldOperation = "operation"

	// Performance and results
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldWarnings = "warnings"
)

// Sweep names accepted by the manual trigger endpoint.
const (
	SweepAutoDelete = "autoDelete"
	SweepCleanup    = "cleanup"
)

// Log Level Usage Guidelines
//
// DEBUG: sweep start, per-blob deletions.
// INFO:  sweep completion with counts, scheduler start/stop.
// WARN:  blob deletions that failed or were rejected by the breaker.
// ERROR: store failures that aborted a sweep.
