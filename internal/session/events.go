package session

import (
	"github.com/abhisek/cclprep/internal/scoring"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventChanged   EventKind = iota // Session state changed; take a new Snapshot
	EventNotice                     // Transient message for the learner
	EventCompleted                  // Session finished; Result is set
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventNotice:
		return "notice"
	case EventCompleted:
		return "completed"
	}
	return "unknown"
}

// Event is emitted by the Controller after every observable change.
type Event struct {
	Kind EventKind

	// Segment is the index the event concerns, or -1.
	Segment int

	Message string
	Err     error

	// Result is set on EventCompleted. It is nil when the session ended
	// without any scored segment or the aggregate could not be computed.
	Result *scoring.SessionResult
}

func changed(i int) Event {
	return Event{Kind: EventChanged, Segment: i}
}

func notice(i int, msg string, err error) Event {
	return Event{Kind: EventNotice, Segment: i, Message: msg, Err: err}
}

// SegmentView is a read-only copy of one segment's state.
type SegmentView struct {
	Index        int
	ID           string
	Text         string
	Translation  string
	Speaker      string
	HasAudio     bool
	Phase        SegmentPhase
	RepeatCount  int
	HasRecording bool
	RecordingURL string
	Score        *scoring.SegmentScore
	Failed       bool
	LastError    error
	Attempts     int
}

// Snapshot is a read-only copy of the session, safe to hold after the
// controller moves on.
type Snapshot struct {
	Active        bool
	SessionID     string
	DialogueID    string
	DialogueTitle string
	Language      string
	Mode          string
	Current       int
	Total         int
	Progress      float64
	Scored        int
	Submitting    int
	Segments      []SegmentView
	Completed     bool
	Degraded      bool
	Result        *scoring.SessionResult

	// CanAdvance reports whether Next would currently be accepted.
	CanAdvance bool
}

// CurrentView returns the view of the segment on screen.
func (s Snapshot) CurrentView() (SegmentView, bool) {
	if s.Current < 0 || s.Current >= len(s.Segments) {
		return SegmentView{}, false
	}
	return s.Segments[s.Current], true
}

func snapshotOf(st *SessionState, opts Options) Snapshot {
	snap := Snapshot{
		Active:        true,
		SessionID:     st.ID,
		DialogueID:    st.Dialogue.ID,
		DialogueTitle: st.Dialogue.Title,
		Language:      st.Dialogue.Language,
		Mode:          opts.Mode(),
		Current:       st.Current,
		Total:         len(st.Segments),
		Progress:      st.Progress(),
		Scored:        st.ScoredCount(),
		Submitting:    st.Submitting(),
		Completed:     st.Completed,
		Degraded:      st.Degraded,
		Result:        st.Result,
		CanAdvance:    !st.IsLast() && advanceAllowed(st, opts) == nil,
	}
	snap.Segments = make([]SegmentView, len(st.Segments))
	for i, seg := range st.Segments {
		snap.Segments[i] = SegmentView{
			Index:        i,
			ID:           seg.Segment.ID,
			Text:         seg.Segment.Text,
			Translation:  seg.Segment.Translation,
			Speaker:      seg.Segment.Speaker,
			HasAudio:     seg.Segment.HasAudio(),
			Phase:        seg.Phase,
			RepeatCount:  seg.RepeatCount,
			HasRecording: seg.Recording != nil,
			RecordingURL: seg.RecordingURL,
			Score:        seg.Score,
			Failed:       seg.Failed,
			LastError:    seg.LastError,
			Attempts:     len(seg.Attempts),
		}
	}
	return snap
}
