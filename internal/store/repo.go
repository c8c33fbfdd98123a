package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// where renders the options as a SQL condition list and its arguments.
func (o QueryOpts) where(conds []string, args []any) (string, []any) {
	if o.After > 0 {
		conds = append(conds, "sequence > ?")
		args = append(args, o.After)
	}
	if o.Before > 0 {
		conds = append(conds, "sequence < ?")
		args = append(args, o.Before)
	}
	if !o.From.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, o.From.UnixMilli())
	}
	if !o.To.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, o.To.UnixMilli())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// limit renders the LIMIT clause.
func (o QueryOpts) limit() string {
	if o.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", o.Limit)
}

// Session actions.
const (
	SessionStarted   = "start"
	SessionFinished  = "finish"
	SessionAbandoned = "abandon"
)

// SessionEventData captures one lifecycle event of a practice session.
type SessionEventData struct {
	SessionID      string
	Action         string
	DialogueID     string
	DialogueTitle  string
	Mode           string
	SegmentsTotal  int
	SegmentsScored int

	// TotalScore is the aggregate score; nil when none was computed.
	TotalScore   *float64
	Feedback     string
	Degraded     bool
	DurationSecs int
}

// SessionRecord is a stored session event.
type SessionRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// AttemptEventData captures one scoring attempt for a segment, successful
// or not.
type AttemptEventData struct {
	SessionID    string
	DialogueID   string
	SegmentID    string
	SegmentIndex int
	RepeatCount  int
	AnswerID     string
	TotalScore   float64

	// Scores maps dimension names to sub-scores.
	Scores         map[string]float64
	Feedback       string
	Success        bool
	ErrorMessage   string
	RecordingBytes int
	RecordingMs    int64
}

// AttemptRecord is a stored attempt event.
type AttemptRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	AttemptEventData
}

// LLMRequestEventData records one call to the LLM scorer.
type LLMRequestEventData struct {
	Provider string
	Model    string

	// Purpose is "segment-scoring" or "session-feedback".
	Purpose string

	// Subject locates the call in practice history, as
	// "<session>/<dialogue>/<segment>" or "<session>/<dialogue>".
	Subject string

	InputTokens     int
	OutputTokens    int
	LatencyMs       int64
	Success         bool
	ErrorMessage    string
	AttachmentBytes int
	RequestBody     string
	ResponseBody    string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates LLM usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int
}

// ModelUsage aggregates LLM usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendSessionEvent records a session lifecycle event.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// AppendAttemptEvent records one scoring attempt.
	AppendAttemptEvent(ctx context.Context, data AttemptEventData) error

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QuerySessions returns session events with the given action, newest
	// first. An empty action matches all.
	QuerySessions(ctx context.Context, action string, opts QueryOpts) ([]SessionRecord, error)

	// QueryAttempts returns a session's attempts in sequence order.
	QueryAttempts(ctx context.Context, sessionID string) ([]AttemptRecord, error)

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, q LLMQuery) ([]LLMEventRecord, error)

	// GetLLMEvent returns one LLM event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)

	// LLMUsageByPurpose aggregates token usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates token usage per model, over every call
	// or, when sessionID is set, over one practice session's calls.
	LLMUsageByModel(ctx context.Context, sessionID string) ([]ModelUsage, error)
}

// eventRepo implements EventRepo on database/sql and the global sequence
// counter.
type eventRepo struct {
	db  *sql.DB
	seq *sequence
}
