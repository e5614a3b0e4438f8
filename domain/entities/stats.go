package entities

import (
	"time"
)

// MemoryInfo holds advisory counters reported by an interpreter.
// The values guide health and optimization decisions only.
type MemoryInfo struct {
	// ObjectCount is the number of user-visible globals and imported modules.
	ObjectCount int `json:"object_count"`

	// ActiveReferences is the number of host handles reachable from globals.
	ActiveReferences int `json:"active_references"`

	// ExecutionSteps is the cumulative number of runtime steps executed.
	ExecutionSteps uint64 `json:"execution_steps"`

	// CachedPrograms is the number of compiled programs held in the cache.
	CachedPrograms int `json:"cached_programs"`

	// ImportedModules is the number of modules imported since the last reset.
	ImportedModules int `json:"imported_modules"`
}

// PoolStats is a point-in-time snapshot of the interpreter pool.
// Available+Busy always equals Total within one snapshot.
type PoolStats struct {
	LastResetAt    time.Time     `json:"last_reset_at"`
	Capacity       int           `json:"capacity"`
	Total          int           `json:"total"`
	Available      int           `json:"available"`
	Busy           int           `json:"busy"`
	Waiting        int           `json:"waiting"`
	Generation     uint64        `json:"generation"`
	TotalCreated   uint64        `json:"total_created"`
	TotalDestroyed uint64        `json:"total_destroyed"`
	TotalRentals   uint64        `json:"total_rentals"`
	TotalTimeouts  uint64        `json:"total_timeouts"`
	Uptime         time.Duration `json:"uptime_ns"`
	Disposed       bool          `json:"disposed"`
}

// ConverterStats reports type conversion activity.
type ConverterStats struct {
	Conversions uint64 `json:"conversions"`
	Failures    uint64 `json:"failures"`
}

// TransactionStats reports transaction manager activity.
type TransactionStats struct {
	Active     int    `json:"active"`
	Total      uint64 `json:"total"`
	Committed  uint64 `json:"committed"`
	RolledBack uint64 `json:"rolled_back"`
	Failures   uint64 `json:"failures"`
}

// SubBridgeStats reports the activity of one sub-bridge.
type SubBridgeStats struct {
	Operations uint64 `json:"operations"`
	Failures   uint64 `json:"failures"`
}

// BridgeStats merges every component's statistics into one snapshot.
// Snapshots of different components are individually consistent but are not
// causally ordered with each other.
type BridgeStats struct {
	CapturedAt      time.Time        `json:"captured_at"`
	Pool            PoolStats        `json:"pool"`
	TypeConversion  ConverterStats   `json:"type_conversion"`
	Transactions    TransactionStats `json:"transactions"`
	Element         SubBridgeStats   `json:"element"`
	Geometry        SubBridgeStats   `json:"geometry"`
	Parameter       SubBridgeStats   `json:"parameter"`
	Executions      uint64           `json:"executions"`
	Evaluations     uint64           `json:"evaluations"`
	FunctionCalls   uint64           `json:"function_calls"`
	Imports         uint64           `json:"imports"`
	ScriptFailures  uint64           `json:"script_failures"`
	Failures        uint64           `json:"failures"`
	TotalOperations uint64           `json:"total_operations"`
}

// InstanceHealth is the probe result for one pool slot.
type InstanceHealth struct {
	InterpreterID string `json:"interpreter_id"`
	Error         string `json:"error,omitempty"`
	Slot          int    `json:"slot"`
	// Checked is false when the instance was rented and could not be probed.
	Checked bool `json:"checked"`
	Healthy bool `json:"healthy"`
}

// HealthReport is the result of probing every pool member outside of rental.
type HealthReport struct {
	CheckedAt time.Time        `json:"checked_at"`
	Instances []InstanceHealth `json:"instances"`
	Healthy   bool             `json:"healthy"`
}
