package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is checked with a file-based DB below.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestFileDatabaseUsesWAL(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cclprep.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"practice_sessions", "segment_attempts", "llm_requests", "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestDefaultDBPathFromEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "x.db")
	t.Setenv("CCLPREP_DB", want)

	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}
}

func TestDefaultDBPathXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CCLPREP_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if want := filepath.Join(dir, "cclprep", "cclprep.db"); got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}
}

func TestSessionEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendSessionEvent(ctx, SessionEventData{
		SessionID: "s1", Action: SessionStarted, DialogueID: "d1", SegmentsTotal: 3,
	}); err != nil {
		t.Fatalf("append start: %v", err)
	}
	score := 71.5
	if err := repo.AppendSessionEvent(ctx, SessionEventData{
		SessionID: "s1", Action: SessionFinished, DialogueID: "d1", DialogueTitle: "At the clinic",
		Mode: "strict", SegmentsTotal: 3, SegmentsScored: 3, TotalScore: &score,
		Feedback: "Good pacing.", DurationSecs: 420,
	}); err != nil {
		t.Fatalf("append finish: %v", err)
	}

	finished, err := repo.QuerySessions(ctx, SessionFinished, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(finished) != 1 {
		t.Fatalf("finished sessions = %d, want 1", len(finished))
	}
	got := finished[0]
	if got.TotalScore == nil || *got.TotalScore != 71.5 {
		t.Errorf("TotalScore = %v, want 71.5", got.TotalScore)
	}
	if got.DialogueTitle != "At the clinic" || got.Mode != "strict" {
		t.Errorf("unexpected record: %+v", got)
	}
	if time.Since(got.Timestamp) > time.Minute {
		t.Errorf("timestamp %v not recent", got.Timestamp)
	}

	all, err := repo.QuerySessions(ctx, "", QueryOpts{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 2 || all[0].Action != SessionFinished {
		t.Errorf("expected newest first, got %+v", all)
	}
	if all[1].TotalScore != nil {
		t.Errorf("start event should have no score")
	}
}

func TestAttemptEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i, ok := range []bool{false, true} {
		err := repo.AppendAttemptEvent(ctx, AttemptEventData{
			SessionID: "s1", DialogueID: "d1", SegmentID: "seg-1", RepeatCount: i,
			AnswerID: map[bool]string{true: "a-1"}[ok], TotalScore: 8,
			Scores:  map[string]float64{"accuracy": 4},
			Success: ok, RecordingBytes: 1024, RecordingMs: 2500,
		})
		if err != nil {
			t.Fatalf("append attempt %d: %v", i, err)
		}
	}
	if err := repo.AppendAttemptEvent(ctx, AttemptEventData{SessionID: "other", SegmentID: "x", Success: true}); err != nil {
		t.Fatalf("append other: %v", err)
	}

	attempts, err := repo.QueryAttempts(ctx, "s1")
	if err != nil {
		t.Fatalf("query attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].Success || !attempts[1].Success {
		t.Errorf("attempts out of order: %+v", attempts)
	}
	if attempts[1].AnswerID != "a-1" || attempts[1].Scores["accuracy"] != 4 {
		t.Errorf("unexpected attempt: %+v", attempts[1])
	}
	if attempts[0].Sequence >= attempts[1].Sequence {
		t.Errorf("sequence not increasing")
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "segment-scoring", Subject: "s1/d1/seg1", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true, AttachmentBytes: 4096, RequestBody: "req"},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "segment-scoring", Subject: "s2/d1/seg1", InputTokens: 50, OutputTokens: 10, LatencyMs: 100, Success: true},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "session-feedback", Subject: "s1/d1", InputTokens: 10, OutputTokens: 5, LatencyMs: 50, Success: false, ErrorMessage: "boom"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryLLMEvents(ctx, LLMQuery{QueryOpts: QueryOpts{Limit: 2}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].Purpose != "session-feedback" {
		t.Fatalf("expected 2 newest events, got %+v", got)
	}

	first, err := repo.GetLLMEvent(ctx, 1)
	if err != nil || first == nil {
		t.Fatalf("get event 1: %v %v", first, err)
	}
	if first.RequestBody != "req" || first.AttachmentBytes != 4096 || first.Subject != "s1/d1/seg1" {
		t.Errorf("event 1 = %+v", first.LLMRequestEventData)
	}

	scoped, err := repo.QueryLLMEvents(ctx, LLMQuery{SessionID: "s1", Purpose: "segment-scoring"})
	if err != nil {
		t.Fatalf("query session: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Subject != "s1/d1/seg1" {
		t.Errorf("session s1 scoring events = %+v", scoped)
	}
	missing, err := repo.GetLLMEvent(ctx, 99)
	if err != nil || missing != nil {
		t.Errorf("missing event: %v %v", missing, err)
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("purposes = %d, want 2", len(byPurpose))
	}
	scoring := byPurpose[0]
	if scoring.Purpose != "segment-scoring" || scoring.Calls != 2 || scoring.InputTokens != 150 || scoring.AvgLatencyMs != 200 {
		t.Errorf("unexpected scoring usage: %+v", scoring)
	}

	byModel, err := repo.LLMUsageByModel(ctx, "")
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 || byModel[0].Model != "gemini-2.0-flash" || byModel[0].OutputTokens != 30 {
		t.Errorf("unexpected model usage: %+v", byModel)
	}

	s2, err := repo.LLMUsageByModel(ctx, "s2")
	if err != nil {
		t.Fatalf("usage for s2: %v", err)
	}
	if len(s2) != 1 || s2[0].Calls != 1 || s2[0].InputTokens != 50 {
		t.Errorf("s2 usage = %+v", s2)
	}
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	if got := likePrefix(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("likePrefix = %q", got)
	}
}

func TestQueryOptsSequenceWindow(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "p", Model: "m", Purpose: "x", Success: true}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.QueryLLMEvents(ctx, LLMQuery{QueryOpts: QueryOpts{After: 1, Before: 4}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].Sequence != 3 || got[1].Sequence != 2 {
		t.Errorf("unexpected window: %+v", got)
	}
}

func TestPragmasSkipWALInMemory(t *testing.T) {
	for _, p := range pragmas(true) {
		if strings.HasPrefix(p, "journal_mode") {
			t.Errorf("in-memory pragmas include %q", p)
		}
	}
	if got := pragmas(false)[0]; got != "journal_mode = WAL" {
		t.Errorf("file pragmas start with %q", got)
	}
	if !inMemory("file:x?mode=memory&cache=shared") || inMemory("/tmp/cclprep.db") {
		t.Error("inMemory misclassifies dsn")
	}
}
