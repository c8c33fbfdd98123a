// Package session drives a practice session: the reference clip plays,
// recording starts when it ends, the learner submits, and scores come back
// while the learner moves through the dialogue.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/cclprep/internal/audio"
	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/report"
	"github.com/abhisek/cclprep/internal/scoring"
	"github.com/abhisek/cclprep/internal/store"
)

// Playback plays reference clips. *audio.Player implements it.
type Playback interface {
	Load(ctx context.Context, seg dialogue.Segment) error
	LoadURL(ctx context.Context, url string) error
	Play() error
	Pause()
	Playing() bool
	SegmentID() string
	OnEnded(fn func())
	OnError(fn func(error))
}

// Capture records the learner. *audio.Recorder implements it.
type Capture interface {
	Start(ctx context.Context) error
	Stop() (*audio.Blob, error)
	Recording() bool
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Source   dialogue.Source
	Player   Playback
	Recorder Capture
	Gateway  scoring.Gateway

	// URLs owns the object URLs of recordings. A private registry is used
	// when nil.
	URLs *audio.ObjectURLs

	// Reporter receives scoring failures under the silent policy. Defaults
	// to report.Log.
	Reporter report.Reporter

	// Events is the practice log. Optional.
	Events store.EventRepo

	UserID string
}

// eventBuffer is the capacity of the Events channel.
const eventBuffer = 64

// Controller runs one practice session at a time. All methods are safe for
// concurrent use; events are delivered in order on Events.
type Controller struct {
	deps Deps
	opts Options
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      *SessionState
	autoFinish bool
	finishing  bool
	settled    chan struct{}
	closed     bool

	emitMu       sync.RWMutex
	events       chan Event
	eventsClosed bool
	done         chan struct{}
}

// NewController wires a controller to its collaborators.
func NewController(deps Deps, opts Options) (*Controller, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("session: dialogue source is required")
	case deps.Player == nil:
		return nil, errors.New("session: player is required")
	case deps.Recorder == nil:
		return nil, errors.New("session: recorder is required")
	case deps.Gateway == nil:
		return nil, errors.New("session: scoring gateway is required")
	}
	if deps.URLs == nil {
		deps.URLs = audio.NewObjectURLs()
	}
	if deps.Reporter == nil {
		deps.Reporter = report.Log{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		deps:    deps,
		opts:    opts.withDefaults(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		settled: make(chan struct{}),
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
	}
	deps.Player.OnEnded(c.handleEnded)
	deps.Player.OnError(c.handlePlaybackError)
	return c, nil
}

// Options returns the controller's effective options.
func (c *Controller) Options() Options {
	return c.opts
}

// Events returns the event stream. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Start begins a session over the dialogue's segments. A completed session
// is replaced; a running one must be finished or closed first.
func (c *Controller) Start(ctx context.Context, d dialogue.Dialogue) error {
	c.mu.Lock()
	if err := c.startableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	segs, err := c.deps.Source.GetDialogueSegments(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("load segments for dialogue %s: %w", d.ID, err)
	}
	dialogue.SortSegments(segs)
	if err := dialogue.ValidateSegments(d.ID, segs); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.startableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state != nil {
		c.state.Release()
	}
	st := NewSessionState(uuid.NewString(), d, segs, c.deps.URLs, c.now())
	c.state = st
	c.autoFinish = false
	c.finishing = false
	data := c.sessionEvent(st, store.SessionStarted)
	c.mu.Unlock()

	slog.Info("practice session started",
		"session", st.ID, "dialogue", d.ID, "segments", len(segs), "mode", c.opts.Mode())
	c.logSession(ctx, data)
	c.emit(changed(0))
	return nil
}

func (c *Controller) startableLocked() error {
	if c.closed {
		return ErrNoSession
	}
	if c.state != nil && !c.state.Completed {
		return ErrSessionActive
	}
	return nil
}

// activeLocked returns the running session, rejecting a completed one.
func (c *Controller) activeLocked() (*SessionState, error) {
	if c.closed || c.state == nil || c.state.Completed {
		return nil, ErrNoSession
	}
	return c.state, nil
}

// PlayCurrent plays the current segment's reference clip, resuming a paused
// clip where it stopped. Recording starts when the clip ends.
func (c *Controller) PlayCurrent(ctx context.Context) error {
	c.mu.Lock()
	evs, err := c.playLocked(ctx)
	c.mu.Unlock()
	c.emit(evs...)
	return err
}

func (c *Controller) playLocked(ctx context.Context) ([]Event, error) {
	st, err := c.activeLocked()
	if err != nil {
		return nil, err
	}
	i := st.Current
	seg := st.CurrentSegment()
	if seg.Phase != PhaseIdle && seg.Phase != PhasePlayingReference {
		return nil, transitionError(seg, PhasePlayingReference)
	}

	if c.deps.Player.SegmentID() != seg.Segment.ID {
		if err := c.deps.Player.Load(ctx, seg.Segment); err != nil {
			return []Event{notice(i, "Could not load the reference audio.", err)}, err
		}
	}
	if err := c.deps.Player.Play(); err != nil {
		if st.StopPlayback(i) {
			return []Event{notice(i, "Could not play the reference audio.", err), changed(i)}, err
		}
		return []Event{notice(i, "Could not play the reference audio.", err)}, err
	}
	if err := st.StartPlayback(i); err != nil {
		return nil, err
	}
	return []Event{changed(i)}, nil
}

// handleEnded chains recording onto a finished reference clip.
func (c *Controller) handleEnded() {
	c.mu.Lock()
	evs := c.endedLocked()
	c.mu.Unlock()
	c.emit(evs...)
}

func (c *Controller) endedLocked() []Event {
	st, err := c.activeLocked()
	if err != nil {
		return nil
	}
	i := st.Current
	seg := st.CurrentSegment()
	if seg.Phase != PhasePlayingReference || c.deps.Player.SegmentID() != seg.Segment.ID {
		return nil
	}
	if err := c.deps.Recorder.Start(c.ctx); err != nil {
		st.StopPlayback(i)
		slog.Warn("auto-start recording failed", "segment", seg.Segment.ID, "error", err)
		return []Event{notice(i, "Microphone unavailable. Allow access and try again.", err), changed(i)}
	}
	_ = st.StartRecording(i)
	return []Event{changed(i)}
}

func (c *Controller) handlePlaybackError(err error) {
	c.mu.Lock()
	var evs []Event
	if st, serr := c.activeLocked(); serr == nil {
		i := st.Current
		st.StopPlayback(i)
		evs = []Event{notice(i, "Playback failed. Press play to try again.", err), changed(i)}
	}
	c.mu.Unlock()
	slog.Warn("reference playback failed", "error", err)
	c.emit(evs...)
}

// RecordCurrent starts recording the current segment without playing the
// reference clip, for segments that have none.
func (c *Controller) RecordCurrent() error {
	c.mu.Lock()
	evs, err := c.recordLocked()
	c.mu.Unlock()
	c.emit(evs...)
	return err
}

func (c *Controller) recordLocked() ([]Event, error) {
	st, err := c.activeLocked()
	if err != nil {
		return nil, err
	}
	i := st.Current
	seg := st.CurrentSegment()
	if seg.Phase != PhaseIdle {
		return nil, transitionError(seg, PhaseRecording)
	}
	c.deps.Player.Pause()
	if err := c.deps.Recorder.Start(c.ctx); err != nil {
		return []Event{notice(i, "Microphone unavailable. Allow access and try again.", err)}, err
	}
	_ = st.StartRecording(i)
	return []Event{changed(i)}, nil
}

// PauseCurrent pauses whatever is playing. It does nothing when nothing
// plays.
func (c *Controller) PauseCurrent() {
	c.mu.Lock()
	var evs []Event
	if st := c.state; st != nil && !c.closed {
		wasPlaying := c.deps.Player.Playing()
		c.deps.Player.Pause()
		if st.StopPlayback(st.Current) || wasPlaying {
			evs = append(evs, changed(st.Current))
		}
	}
	c.mu.Unlock()
	c.emit(evs...)
}

// StopRecording ends the current capture and keeps it as the segment's
// recording. Recordings shorter than the minimum are discarded with a
// *RecordingTooShortError. It does nothing when nothing is recording.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	evs, err := c.stopRecordingLocked()
	c.mu.Unlock()
	c.emit(evs...)
	return err
}

func (c *Controller) stopRecordingLocked() ([]Event, error) {
	st, err := c.activeLocked()
	if err != nil {
		return nil, nil
	}
	i := st.Current
	if st.CurrentSegment().Phase != PhaseRecording {
		return nil, nil
	}

	blob, err := c.deps.Recorder.Stop()
	if err != nil {
		st.AbortRecording(i)
		return []Event{notice(i, "Recording failed. Please record again.", err), changed(i)}, err
	}
	if blob == nil {
		st.AbortRecording(i)
		return []Event{changed(i)}, nil
	}
	if blob.Duration < c.opts.MinRecording {
		st.AbortRecording(i)
		tooShort := &RecordingTooShortError{Duration: blob.Duration, Min: c.opts.MinRecording}
		return []Event{notice(i, "Recording too short. Please record again.", tooShort), changed(i)}, tooShort
	}
	if err := st.FinishRecording(i, blob); err != nil {
		return nil, err
	}
	return []Event{changed(i)}, nil
}

// SubmitCurrent sends the current recording to the scorer. The score
// arrives in the background; watch Events. With AutoAdvance the controller
// moves to the next segment right away.
func (c *Controller) SubmitCurrent(ctx context.Context) error {
	c.mu.Lock()
	st, err := c.activeLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.finishing {
		c.mu.Unlock()
		return fmt.Errorf("%w: session is finishing", ErrInvalidTransition)
	}
	i := st.Current
	token, err := st.BeginSubmit(i)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	seg := st.Segments[i]
	in := scoring.SegmentInput{
		UserID:             c.deps.UserID,
		SessionID:          st.ID,
		DialogueID:         st.Dialogue.ID,
		SegmentID:          seg.Segment.ID,
		Language:           st.Dialogue.Language,
		ReferenceText:      seg.Segment.Text,
		ReferenceAudioPath: seg.Segment.AudioPath,
		Recording:          seg.Recording,
		RepeatCount:        seg.RepeatCount,
	}

	evs := []Event{changed(i)}
	if c.opts.AutoAdvance && !c.opts.StrictAdvance {
		if st.IsLast() {
			c.autoFinish = true
		} else {
			evs = append(evs, c.navigateLocked(1)...)
		}
	}
	c.wg.Add(1)
	go c.score(st, i, token, in)
	c.mu.Unlock()

	slog.Debug("segment submitted", "session", st.ID, "segment", in.SegmentID, "repeat", in.RepeatCount)
	c.emit(evs...)
	return nil
}

func (c *Controller) score(st *SessionState, i int, token uint64, in scoring.SegmentInput) {
	defer c.wg.Done()

	res, err := c.deps.Gateway.ScoreSegment(c.ctx, in)
	if err != nil {
		err = asScoringError("score segment", err)
	}

	c.mu.Lock()
	if c.closed || c.state != st {
		c.mu.Unlock()
		return
	}
	now := c.now()
	var accepted bool
	if err != nil {
		accepted = st.ResolveFailure(i, token, err, now)
	} else {
		accepted = st.ResolveScore(i, token, res, now)
	}

	var evs []Event
	if accepted {
		evs = append(evs, changed(i))
		if err != nil && c.opts.OnScoringFailure != FailureSilent {
			// The learner is asked to resubmit, so the session stays open
			// until a later submission of the last segment.
			c.autoFinish = false
		}
		if err != nil {
			switch c.opts.OnScoringFailure {
			case FailureBlock:
				evs = append(evs, notice(i, "Scoring failed. Submit again before moving on.", err))
			case FailureRetry:
				evs = append(evs, notice(i, "Scoring failed. Your recording is kept; submit again.", err))
			}
		}
	}
	attempt := attemptEvent(st, i, in, res, err)

	finish := c.autoFinish && !c.finishing && !st.Completed && st.Submitting() == 0 &&
		(c.opts.OnScoringFailure == FailureSilent || !st.AnyFailed())
	if finish {
		c.finishing = true
	}
	c.signalSettledLocked()
	c.mu.Unlock()

	if accepted {
		c.logAttempt(attempt)
		if err != nil {
			slog.Warn("segment scoring failed", "session", st.ID, "segment", in.SegmentID, "error", err)
			if c.opts.OnScoringFailure == FailureSilent {
				c.deps.Reporter.Report(c.ctx, err, map[string]string{
					"op":       "score-segment",
					"dialogue": in.DialogueID,
					"segment":  in.SegmentID,
				})
			}
		}
	}
	c.emit(evs...)

	if finish {
		_, _ = c.complete(c.ctx, st)
	}
}

func asScoringError(op string, err error) error {
	var sse *scoring.ScoringServiceError
	if errors.As(err, &sse) {
		return err
	}
	return &scoring.ScoringServiceError{Op: op, Err: err}
}

// RepeatCurrent discards the current segment's recording and any score on
// it so the learner can try again. The repeat counter goes up by one.
func (c *Controller) RepeatCurrent() error {
	c.mu.Lock()
	st, err := c.activeLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	i := st.Current
	c.deps.Player.Pause()
	if err := st.Repeat(i); err != nil {
		c.mu.Unlock()
		return err
	}
	// A pending reply for the discarded recording must not end the session.
	c.autoFinish = false
	c.mu.Unlock()
	c.emit(changed(i))
	return nil
}

// Next moves to the following segment. At the last segment it does
// nothing. Playback and an unfinished recording of the segment being left
// are cancelled.
func (c *Controller) Next() error {
	c.mu.Lock()
	st := c.state
	if c.closed || st == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if st.IsLast() {
		c.mu.Unlock()
		return nil
	}
	if !st.Completed {
		if err := advanceAllowed(st, c.opts); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	evs := c.navigateLocked(1)
	c.mu.Unlock()
	c.emit(evs...)
	return nil
}

// Previous moves to the preceding segment. At the first segment it does
// nothing.
func (c *Controller) Previous() error {
	c.mu.Lock()
	st := c.state
	if c.closed || st == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	evs := c.navigateLocked(-1)
	c.mu.Unlock()
	c.emit(evs...)
	return nil
}

func advanceAllowed(st *SessionState, opts Options) error {
	seg := st.CurrentSegment()
	if opts.StrictAdvance && seg.Phase != PhaseScored {
		return ErrAdvanceBlocked
	}
	if opts.OnScoringFailure == FailureBlock && seg.Failed {
		return ErrAdvanceBlocked
	}
	return nil
}

// navigateLocked moves step segments (1 or -1). Media of the segment being
// left is cancelled only when the move happens; at either end nothing
// changes.
func (c *Controller) navigateLocked(step int) []Event {
	st := c.state
	to := st.Current + step
	if to < 0 || to >= len(st.Segments) {
		return nil
	}
	evs := c.cancelMediaLocked(st.Current)
	if step > 0 {
		st.MoveNext()
	} else {
		st.MovePrevious()
	}
	return append(evs, changed(st.Current))
}

// cancelMediaLocked pauses playback and discards an unfinished recording
// of segment i.
func (c *Controller) cancelMediaLocked(i int) []Event {
	st := c.state
	c.deps.Player.Pause()
	changedSeg := st.StopPlayback(i)
	if st.Segments[i].Phase == PhaseRecording {
		if _, err := c.deps.Recorder.Stop(); err != nil {
			slog.Debug("discarded recording ended with error", "error", err)
		}
		st.AbortRecording(i)
		changedSeg = true
	}
	if changedSeg {
		return []Event{changed(i)}
	}
	return nil
}

// ReplayRecording plays back the learner's recording of the current
// segment through its object URL.
func (c *Controller) ReplayRecording(ctx context.Context) error {
	c.mu.Lock()
	evs, err := c.replayLocked(ctx)
	c.mu.Unlock()
	c.emit(evs...)
	return err
}

func (c *Controller) replayLocked(ctx context.Context) ([]Event, error) {
	st := c.state
	if c.closed || st == nil {
		return nil, ErrNoSession
	}
	i := st.Current
	seg := st.CurrentSegment()
	if seg.RecordingURL == "" {
		return nil, fmt.Errorf("%w: segment %s has no recording", ErrInvalidTransition, seg.Segment.ID)
	}
	if err := c.deps.Player.LoadURL(ctx, seg.RecordingURL); err != nil {
		return []Event{notice(i, "Could not load your recording.", err)}, err
	}
	if err := c.deps.Player.Play(); err != nil {
		return []Event{notice(i, "Could not play your recording.", err)}, err
	}
	return nil, nil
}

// Finish ends the session and computes the aggregate result. It waits for
// submissions still with the scorer. With StrictAdvance every segment must
// be scored; otherwise unscored segments are left out and the session is
// marked degraded. Finishing a completed session returns its result.
func (c *Controller) Finish(ctx context.Context) (*scoring.SessionResult, error) {
	c.mu.Lock()
	st := c.state
	if c.closed || st == nil {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	if st.Completed {
		res := st.Result
		c.mu.Unlock()
		return res, nil
	}
	if c.finishing {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: session is already finishing", ErrInvalidTransition)
	}
	if c.opts.StrictAdvance && !st.AllScored() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d scored", ErrSessionIncomplete, st.ScoredCount(), len(st.Segments))
	}
	if c.opts.OnScoringFailure == FailureBlock && st.AnyFailed() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: a failed submission must be resubmitted", ErrSessionIncomplete)
	}
	c.finishing = true
	c.autoFinish = false
	evs := c.cancelMediaLocked(st.Current)
	c.mu.Unlock()
	c.emit(evs...)

	if err := c.waitSubmissions(ctx, st); err != nil {
		c.mu.Lock()
		c.finishing = false
		c.signalSettledLocked()
		c.mu.Unlock()
		return nil, err
	}
	return c.complete(ctx, st)
}

func (c *Controller) waitSubmissions(ctx context.Context, st *SessionState) error {
	for {
		c.mu.Lock()
		pending := st.Submitting()
		ch := c.settled
		c.mu.Unlock()
		if pending == 0 {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrNoSession
		}
	}
}

// complete requests the aggregate and marks the session completed. The
// caller has set c.finishing.
func (c *Controller) complete(ctx context.Context, st *SessionState) (*scoring.SessionResult, error) {
	c.mu.Lock()
	ids := st.AnswerIDs()
	degraded := !st.AllScored()
	in := scoring.SessionInput{UserID: c.deps.UserID, SessionID: st.ID, DialogueID: st.Dialogue.ID, AnswerIDs: ids}
	c.mu.Unlock()

	var result *scoring.SessionResult
	if len(ids) > 0 {
		res, err := c.deps.Gateway.ComputeSessionResult(ctx, in)
		if err != nil {
			err = asScoringError("compute session result", err)
			slog.Warn("session result failed", "session", st.ID, "error", err)
			if c.opts.OnScoringFailure != FailureSilent {
				c.mu.Lock()
				c.finishing = false
				c.signalSettledLocked()
				c.mu.Unlock()
				c.emit(notice(-1, "Could not compute the session result. Try finishing again.", err))
				return nil, err
			}
			c.deps.Reporter.Report(ctx, err, map[string]string{
				"op":       "compute-session-result",
				"dialogue": in.DialogueID,
			})
			degraded = true
		} else {
			result = res
		}
	}

	c.mu.Lock()
	if c.closed || c.state != st {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	st.Result = result
	st.Completed = true
	st.Degraded = degraded
	c.finishing = false
	c.autoFinish = false
	data := c.sessionEvent(st, store.SessionFinished)
	c.signalSettledLocked()
	c.mu.Unlock()

	slog.Info("practice session finished",
		"session", st.ID, "scored", data.SegmentsScored, "total", len(st.Segments), "degraded", degraded)
	c.logSession(context.Background(), data)
	c.emit(Event{Kind: EventCompleted, Segment: -1, Result: result})
	return result, nil
}

// Wait blocks until no submission is with the scorer and no finish is
// running.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		busy := c.state != nil && (c.state.Submitting() > 0 || c.finishing)
		ch := c.settled
		c.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		}
	}
}

func (c *Controller) signalSettledLocked() {
	close(c.settled)
	c.settled = make(chan struct{})
}

// Snapshot returns a copy of the session state. Active is false before
// Start.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return Snapshot{Current: -1, Mode: c.opts.Mode()}
	}
	return snapshotOf(c.state, c.opts)
}

// Close stops all media, revokes every recording URL, records an
// unfinished session as abandoned, and closes Events.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	var abandoned *store.SessionEventData
	if st := c.state; st != nil {
		c.cancelMediaLocked(st.Current)
		if !st.Completed {
			data := c.sessionEvent(st, store.SessionAbandoned)
			abandoned = &data
		}
		st.Release()
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	close(c.done)
	c.wg.Wait()

	if abandoned != nil {
		c.logSession(context.Background(), *abandoned)
	}

	c.emitMu.Lock()
	c.eventsClosed = true
	close(c.events)
	c.emitMu.Unlock()
	return nil
}

// emit delivers events in order. It must not be called with c.mu held.
func (c *Controller) emit(evs ...Event) {
	if len(evs) == 0 {
		return
	}
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.eventsClosed {
		return
	}
	for _, ev := range evs {
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Controller) sessionEvent(st *SessionState, action string) store.SessionEventData {
	data := store.SessionEventData{
		SessionID:      st.ID,
		Action:         action,
		DialogueID:     st.Dialogue.ID,
		DialogueTitle:  st.Dialogue.Title,
		Mode:           c.opts.Mode(),
		SegmentsTotal:  len(st.Segments),
		SegmentsScored: st.ScoredCount(),
		Degraded:       st.Degraded,
		DurationSecs:   int(st.Elapsed(c.now()).Seconds()),
	}
	if st.Result != nil {
		total := st.Result.TotalScore
		data.TotalScore = &total
		data.Feedback = st.Result.Feedback
	}
	return data
}

func attemptEvent(st *SessionState, i int, in scoring.SegmentInput, res *scoring.SegmentScore, err error) store.AttemptEventData {
	data := store.AttemptEventData{
		SessionID:      st.ID,
		DialogueID:     in.DialogueID,
		SegmentID:      in.SegmentID,
		SegmentIndex:   i,
		RepeatCount:    in.RepeatCount,
		Success:        err == nil,
		RecordingBytes: in.Recording.Size(),
	}
	if in.Recording != nil {
		data.RecordingMs = in.Recording.Duration.Milliseconds()
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		return data
	}
	if res != nil {
		data.AnswerID = res.AnswerID
		data.TotalScore = res.Total
		data.Scores = res.Dimensions()
		data.Feedback = res.Feedback
	}
	return data
}

func (c *Controller) logSession(ctx context.Context, data store.SessionEventData) {
	if c.deps.Events == nil {
		return
	}
	if err := c.deps.Events.AppendSessionEvent(ctx, data); err != nil {
		slog.Warn("failed to log session event", "action", data.Action, "error", err)
	}
}

func (c *Controller) logAttempt(data store.AttemptEventData) {
	if c.deps.Events == nil {
		return
	}
	if err := c.deps.Events.AppendAttemptEvent(context.Background(), data); err != nil {
		slog.Warn("failed to log attempt event", "segment", data.SegmentID, "error", err)
	}
}
