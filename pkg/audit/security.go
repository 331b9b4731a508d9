// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionSignal is logged when libinjection flags a string literal
	// inside a generated query. The query still runs; this is a signal, not a block.
	EventInjectionSignal SecurityEventType = "injection_signal"
	// EventDestructiveQueryBlocked is logged when screening refuses a mutating
	// statement outside the reset flow.
	EventDestructiveQueryBlocked SecurityEventType = "destructive_query_blocked"
	// EventDatabaseReset is logged when a confirmed reset wipes the database.
	EventDatabaseReset SecurityEventType = "database_reset"
	// EventQueryExecution is logged for query execution (optional, can be high volume).
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SessionID uuid.UUID         `json:"session_id"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a flagged string literal.
type InjectionDetails struct {
	Literal     string `json:"literal"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	Query       string `json:"query"`
	Language    string `json:"language"`
}

// DestructiveQueryDetails describes a mutating statement refused by screening.
type DestructiveQueryDetails struct {
	Query    string `json:"query"`
	Language string `json:"language"`
	Matched  string `json:"matched"` // the operation that triggered the block
}

// QueryExecutionDetails records one query execution for the audit trail.
type QueryExecutionDetails struct {
	Query        string `json:"query"`
	Language     string `json:"language"`
	RowCount     int    `json:"row_count"`
	DurationMs   int64  `json:"duration_ms"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	// Create a child logger with security-specific namespace for SIEM parsing
	securityLogger := logger.Named("security_audit")
	return &SecurityAuditor{logger: securityLogger}
}

// LogInjectionSignal records a string literal that matched an injection
// signature. This is logged at ERROR level with "critical" severity for
// immediate alerting even though the query is not blocked.
//
// Example usage:
//
//	auditor.LogInjectionSignal(sessionID, audit.InjectionDetails{
//	    Literal:     "'; DROP TABLE users--",
//	    Fingerprint: "s&1c",
//	    Query:       "MATCH (n {name: \"'; DROP TABLE users--\"}) RETURN n",
//	    Language:    "cypher",
//	})
func (a *SecurityAuditor) LogInjectionSignal(sessionID uuid.UUID, details InjectionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventInjectionSignal,
		SessionID: sessionID,
		Details:   details,
		Severity:  "critical",
	}

	// Serialize event to JSON for SIEM ingestion
	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	// Log at ERROR level to ensure visibility in monitoring systems
	a.logger.Error("Injection signature in query literal",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID.String()),
		zap.String("literal", details.Literal),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("language", details.Language),
		zap.String("severity", "critical"),
	)
}

// LogDestructiveBlocked records a mutating statement refused before execution.
// This is logged at WARN level as the block itself worked as intended.
func (a *SecurityAuditor) LogDestructiveBlocked(sessionID uuid.UUID, details DestructiveQueryDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventDestructiveQueryBlocked,
		SessionID: sessionID,
		Details:   details,
		Severity:  "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Destructive query blocked",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID.String()),
		zap.String("matched", details.Matched),
		zap.String("language", details.Language),
		zap.String("severity", "warning"),
	)
}

// LogDatabaseReset records a confirmed database wipe. A successful reset is
// logged at WARN level; a failed reset is a critical event because the
// database may be left in a partial state.
func (a *SecurityAuditor) LogDatabaseReset(sessionID uuid.UUID, success bool, errorMessage string) {
	severity := "warning"
	if !success {
		severity = "critical"
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventDatabaseReset,
		SessionID: sessionID,
		Details: map[string]any{
			"success":       success,
			"error_message": errorMessage,
		},
		Severity: severity,
	}

	eventJSON, _ := json.Marshal(event)

	if success {
		a.logger.Warn("Database reset executed",
			zap.String("event_json", string(eventJSON)),
			zap.String("session_id", sessionID.String()),
			zap.String("severity", severity),
		)
		return
	}

	a.logger.Error("Database reset failed",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID.String()),
		zap.String("error", errorMessage),
		zap.String("severity", severity),
	)
}

// LogQueryExecution records a query execution for the audit trail.
// Successful executions log at INFO level, failures at WARN.
// Note: This can generate high log volume with a chatty agent.
func (a *SecurityAuditor) LogQueryExecution(sessionID uuid.UUID, details QueryExecutionDetails) {
	severity := "info"
	if !details.Success {
		severity = "warning"
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventQueryExecution,
		SessionID: sessionID,
		Details:   details,
		Severity:  severity,
	}

	eventJSON, _ := json.Marshal(event)

	if details.Success {
		a.logger.Info("Query executed",
			zap.String("event_json", string(eventJSON)),
			zap.String("session_id", sessionID.String()),
			zap.String("language", details.Language),
			zap.Int("row_count", details.RowCount),
			zap.Int64("duration_ms", details.DurationMs),
			zap.String("severity", severity),
		)
		return
	}

	a.logger.Warn("Query failed",
		zap.String("event_json", string(eventJSON)),
		zap.String("session_id", sessionID.String()),
		zap.String("language", details.Language),
		zap.String("error", details.ErrorMessage),
		zap.Int64("duration_ms", details.DurationMs),
		zap.String("severity", severity),
	)
}
