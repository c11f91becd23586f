// Package orchestrator owns the lifecycle of at most one analysis session.
// Every mutation is serialized through a single intake goroutine: user
// intents, submission outcomes and push events are applied in arrival order,
// which is what makes the monotonicity, supersession and correlation rules
// enforceable without locks around the transition logic.
package orchestrator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"convosense.local/dashboard/internal/analysis"
	"convosense.local/dashboard/internal/ids"
	"convosense.local/dashboard/internal/store"
	"convosense.local/dashboard/internal/submit"
	"convosense.local/dashboard/internal/view"
)

const submitTimeout = 30 * time.Second

// ErrEmptyQuery mirrors the submitter's local validation: a blank query is
// rejected before a session is even created.
var ErrEmptyQuery = submit.ErrEmptyQuery

// Submitter is the one-shot job submission dependency.
type Submitter interface {
	Submit(ctx context.Context, req submit.Request) (submit.Ack, error)
}

// Channel is the push channel dependency. The orchestrator only consumes;
// it never writes to the transport.
type Channel interface {
	Events() <-chan analysis.Event
	Errors() <-chan error
	ConnectionID() string
	Connected() bool
}

// ReportStore receives a fire-and-forget summary of each completed session.
type ReportStore interface {
	SaveReport(ctx context.Context, report store.Report) error
}

// Publisher receives every snapshot change.
type Publisher interface {
	Publish(ctx context.Context, snapshot Snapshot)
}

type Config struct {
	MaxTweets int
	PageSize  int
}

type Orchestrator struct {
	logger    *log.Logger
	submitter Submitter
	channel   Channel
	reports   ReportStore
	publisher Publisher
	cfg       Config

	cmds chan func()

	mu      sync.RWMutex
	session Session
	filter  view.Filter
	showAll bool
	userID  string
}

type Option func(*Orchestrator)

func WithReportStore(reports ReportStore) Option {
	return func(o *Orchestrator) { o.reports = reports }
}

func WithPublisher(publisher Publisher) Option {
	return func(o *Orchestrator) { o.publisher = publisher }
}

// WithUser scopes the orchestrator to the signed-in user. Only the uid is
// read, to tag submissions; auth state itself is owned elsewhere.
func WithUser(uid string) Option {
	return func(o *Orchestrator) { o.userID = uid }
}

func New(logger *log.Logger, submitter Submitter, channel Channel, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxTweets <= 0 {
		cfg.MaxTweets = 20
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = view.DefaultPageSize
	}
	o := &Orchestrator{
		logger:    logger,
		submitter: submitter,
		channel:   channel,
		cfg:       cfg,
		cmds:      make(chan func(), 64),
		session:   Session{Status: StatusIdle},
		filter:    view.FilterAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Run consumes the intake queue until ctx is canceled. It must be running
// before StartQuery is called.
func (o *Orchestrator) Run(ctx context.Context) {
	go o.loop(ctx)
}

func (o *Orchestrator) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-o.cmds:
			fn()
		case event, ok := <-o.channel.Events():
			if !ok {
				return
			}
			o.handleEvent(event)
		case err, ok := <-o.channel.Errors():
			if !ok {
				return
			}
			// Transport trouble is recoverable; the adapter reconnects on
			// its own and the session only fails on an explicit error event.
			o.logger.Printf("push channel error (recovering): %v", err)
		}
	}
}

func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	select {
	case o.cmds <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartQuery begins a fresh session, superseding any active one. The prior
// session's in-flight work is not canceled; its future events simply fail
// the correlation check.
func (o *Orchestrator) StartQuery(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	reply := make(chan string, 1)
	err := o.do(ctx, func() {
		now := time.Now().UTC()
		sessionID := ids.New()

		o.mu.Lock()
		if prev := o.session; prev.Status.active() {
			o.logger.Printf("superseding session session_id=%s status=%s query=%q", prev.ID, prev.Status, prev.Query)
		}
		o.session = Session{
			ID:        sessionID,
			Query:     query,
			Status:    StatusSubmitting,
			StartedAt: now,
			UpdatedAt: now,
		}
		o.showAll = false
		uid := o.userID
		o.mu.Unlock()

		o.publish()
		go o.submitJob(sessionID, query, uid)
		reply <- sessionID
	})
	if err != nil {
		return "", err
	}

	select {
	case sessionID := <-reply:
		return sessionID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (o *Orchestrator) submitJob(sessionID, query, uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	_, err := o.submitter.Submit(ctx, submit.Request{
		Query:     query,
		MaxTweets: o.cfg.MaxTweets,
		Correlation: submit.Correlation{
			SessionToken: sessionID,
			ConnectionID: o.channel.ConnectionID(),
			UserID:       uid,
		},
	})

	if postErr := o.do(context.Background(), func() { o.onSubmissionResult(sessionID, err) }); postErr != nil {
		o.logger.Printf("dropping submission result session_id=%s err=%v", sessionID, postErr)
	}
}

func (o *Orchestrator) onSubmissionResult(sessionID string, submitErr error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.ID != sessionID {
		o.logger.Printf("ignoring stale submission result session_id=%s current=%s", sessionID, o.session.ID)
		return
	}
	if o.session.Status != StatusSubmitting {
		// A complete or failed event outran the ack; the terminal outcome
		// already implied the submission verdict.
		o.logger.Printf("ignoring submission result in status=%s session_id=%s", o.session.Status, sessionID)
		return
	}

	now := time.Now().UTC()
	if submitErr != nil {
		o.session.Status = StatusFailed
		o.session.ErrorMessage = submitErr.Error()
		o.session.UpdatedAt = now
		o.logger.Printf("submission failed session_id=%s err=%v", sessionID, submitErr)
	} else {
		o.session.Status = StatusStreaming
		o.session.UpdatedAt = now
		o.logger.Printf("submission acknowledged session_id=%s", sessionID)
	}
	o.publishLocked()
}

func (o *Orchestrator) handleEvent(event analysis.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.belongsToCurrentLocked(event) {
		o.logger.Printf("dropping event for foreign session kind=%s event_session=%s current=%s", event.Kind, event.Session, o.session.ID)
		return
	}

	switch event.Kind {
	case analysis.EventKindProgress:
		o.applyProgressLocked(event.Progress)
	case analysis.EventKindComplete:
		o.applyCompleteLocked(event.Result)
	case analysis.EventKindFailed:
		o.applyFailedLocked(event.Reason)
	default:
		o.logger.Printf("dropping unexpected event kind=%s", event.Kind)
	}
}

// belongsToCurrentLocked implements the correlation check. Events carrying a
// session token must match the current session; events addressed only by
// connection id (or with no correlation at all, as the engine sometimes
// sends) fall back to "whatever session is active on this connection".
func (o *Orchestrator) belongsToCurrentLocked(event analysis.Event) bool {
	if o.session.ID == "" {
		return false
	}
	if event.Session == "" || event.Session == o.channel.ConnectionID() {
		return o.session.Status.active()
	}
	return event.Session == o.session.ID
}

func (o *Orchestrator) applyProgressLocked(payload analysis.ProgressPayload) {
	if o.session.Status.terminal() {
		o.logger.Printf("ignoring progress after terminal status session_id=%s", o.session.ID)
		return
	}
	if payload.Progress < o.session.Progress {
		o.logger.Printf("ignoring progress regression session_id=%s have=%d got=%d", o.session.ID, o.session.Progress, payload.Progress)
		return
	}
	o.session.Progress = payload.Progress
	o.session.StatusMessage = payload.Message
	o.session.UpdatedAt = time.Now().UTC()
	o.publishLocked()
}

func (o *Orchestrator) applyCompleteLocked(result *analysis.Result) {
	if o.session.Status.terminal() {
		o.logger.Printf("ignoring complete in terminal status session_id=%s status=%s", o.session.ID, o.session.Status)
		return
	}

	// Completion while still Submitting is valid: a complete event implies
	// the submission was accepted even if the ack lost the race.
	o.session.Status = StatusCompleted
	o.session.Progress = 100
	o.session.Result = result
	o.session.ErrorMessage = ""
	o.session.UpdatedAt = time.Now().UTC()
	o.showAll = false
	o.logger.Printf("session completed session_id=%s query=%q tweets=%d", o.session.ID, o.session.Query, len(result.Tweets))
	o.publishLocked()

	if o.reports != nil {
		report := store.NewReport(o.session.ID, o.userID, result)
		go o.saveReport(report)
	}
}

func (o *Orchestrator) applyFailedLocked(reason string) {
	if o.session.Status.terminal() {
		o.logger.Printf("ignoring failure in terminal status session_id=%s status=%s", o.session.ID, o.session.Status)
		return
	}
	o.session.Status = StatusFailed
	o.session.ErrorMessage = reason
	o.session.UpdatedAt = time.Now().UTC()
	o.logger.Printf("session failed session_id=%s err=%s", o.session.ID, reason)
	o.publishLocked()
}

func (o *Orchestrator) saveReport(report store.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.reports.SaveReport(ctx, report); err != nil {
		// Persistence is a side call; it never affects the session.
		o.logger.Printf("report save failed session_id=%s err=%v", report.SessionID, err)
	}
}

// SetFilter updates the ephemeral filter selection.
func (o *Orchestrator) SetFilter(ctx context.Context, filter view.Filter) error {
	return o.do(ctx, func() {
		o.mu.Lock()
		o.filter = filter
		o.mu.Unlock()
		o.publish()
	})
}

// ShowMore reveals the full filtered sequence. It resets automatically when
// a new result is attached.
func (o *Orchestrator) ShowMore(ctx context.Context) error {
	return o.do(ctx, func() {
		o.mu.Lock()
		o.showAll = true
		o.mu.Unlock()
		o.publish()
	})
}

// snapshotLocked assembles the rendering state; callers hold o.mu.
func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Session:      o.session,
		Filter:       o.filter,
		ShowAll:      o.showAll,
		PageSize:     o.cfg.PageSize,
		Connected:    o.channel.Connected(),
		ConnectionID: o.channel.ConnectionID(),
	}
}

// Snapshot returns an immutable copy of the rendering state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

// View derives the displayable subset for the current filter selection.
func (o *Orchestrator) View() view.View {
	snapshot := o.Snapshot()
	return view.Derive(snapshot.Session.Result, snapshot.Filter, snapshot.PageSize, snapshot.ShowAll)
}

func (o *Orchestrator) publish() {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(context.Background(), o.Snapshot())
}

func (o *Orchestrator) publishLocked() {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(context.Background(), o.snapshotLocked())
}
