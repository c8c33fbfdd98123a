package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func (r *eventRepo) AppendSessionEvent(ctx context.Context, data SessionEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	var total sql.NullFloat64
	if data.TotalScore != nil {
		total = sql.NullFloat64{Float64: *data.TotalScore, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO practice_sessions
		(sequence, timestamp, session_id, action, dialogue_id, dialogue_title, mode,
		 segments_total, segments_scored, total_score, feedback, degraded, duration_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, time.Now().UnixMilli(), data.SessionID, data.Action, data.DialogueID,
		data.DialogueTitle, data.Mode, data.SegmentsTotal, data.SegmentsScored, total,
		data.Feedback, data.Degraded, data.DurationSecs,
	)
	if err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendAttemptEvent(ctx context.Context, data AttemptEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	scores := data.Scores
	if scores == nil {
		scores = map[string]float64{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO segment_attempts
		(sequence, timestamp, session_id, dialogue_id, segment_id, segment_index, repeat_count,
		 answer_id, total_score, scores, feedback, success, error_message, recording_bytes, recording_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, time.Now().UnixMilli(), data.SessionID, data.DialogueID, data.SegmentID,
		data.SegmentIndex, data.RepeatCount, data.AnswerID, data.TotalScore, string(scoresJSON),
		data.Feedback, data.Success, data.ErrorMessage, data.RecordingBytes, data.RecordingMs,
	)
	if err != nil {
		return fmt.Errorf("save attempt event: %w", err)
	}
	return nil
}

func (r *eventRepo) QuerySessions(ctx context.Context, action string, opts QueryOpts) ([]SessionRecord, error) {
	var (
		conds []string
		args  []any
	)
	if action != "" {
		conds = append(conds, "action = ?")
		args = append(args, action)
	}
	where, args := opts.where(conds, args)

	rows, err := r.db.QueryContext(ctx, `SELECT id, sequence, timestamp, session_id, action,
		dialogue_id, dialogue_title, mode, segments_total, segments_scored, total_score,
		feedback, degraded, duration_secs
		FROM practice_sessions`+where+` ORDER BY sequence DESC`+opts.limit(), args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec   SessionRecord
			ts    int64
			total sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Sequence, &ts, &rec.SessionID, &rec.Action,
			&rec.DialogueID, &rec.DialogueTitle, &rec.Mode, &rec.SegmentsTotal,
			&rec.SegmentsScored, &total, &rec.Feedback, &rec.Degraded, &rec.DurationSecs,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		if total.Valid {
			v := total.Float64
			rec.TotalScore = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *eventRepo) QueryAttempts(ctx context.Context, sessionID string) ([]AttemptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, sequence, timestamp, session_id, dialogue_id,
		segment_id, segment_index, repeat_count, answer_id, total_score, scores, feedback,
		success, error_message, recording_bytes, recording_ms
		FROM segment_attempts WHERE session_id = ? ORDER BY sequence`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			rec    AttemptRecord
			ts     int64
			scores string
		)
		if err := rows.Scan(&rec.ID, &rec.Sequence, &ts, &rec.SessionID, &rec.DialogueID,
			&rec.SegmentID, &rec.SegmentIndex, &rec.RepeatCount, &rec.AnswerID, &rec.TotalScore,
			&scores, &rec.Feedback, &rec.Success, &rec.ErrorMessage, &rec.RecordingBytes,
			&rec.RecordingMs,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
			return nil, fmt.Errorf("decode scores for attempt %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
