package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/queryscope/queryscope/internal/docstore"
	"github.com/queryscope/queryscope/internal/estimate"
	"github.com/queryscope/queryscope/internal/observability"
)

// TriggerClass names the editor event class that produced a trigger.
type TriggerClass string

const (
	// TriggerManual is an explicit user request.
	TriggerManual TriggerClass = "manual"
	// TriggerOpen is a document-opened event.
	TriggerOpen TriggerClass = "open"
	// TriggerSave is a document-saved event.
	TriggerSave TriggerClass = "save"
	// TriggerChange is a debounced content-change event.
	TriggerChange TriggerClass = "change"
	// TriggerSelection is a stabilized selection event.
	TriggerSelection TriggerClass = "selection"
)

// GateOutcome describes where in the pipeline a trigger ended up.
type GateOutcome int

const (
	// GateStarted means an estimate was handed to the executor.
	GateStarted GateOutcome = iota
	// GateNoDocument means the trigger named no open document.
	GateNoDocument
	// GateIneligible means the document is not a SQL document.
	GateIneligible
	// GateNoChannel means both presentation channels are disabled.
	GateNoChannel
	// GateRateLimited means the rate gate held the trigger back.
	GateRateLimited
	// GateBusy means another estimate was already in flight.
	GateBusy
	// GateCloseSuppressed means the save looked like save-on-close.
	GateCloseSuppressed
	// GateStormSuppressed means the selection storm cap refused a timer.
	GateStormSuppressed
	// GateDebounced means a timer was armed; the decision comes later.
	GateDebounced
	// GateCleared means an empty selection cancelled the pending timer.
	GateCleared
	// GateStale means the armed selection no longer matched at fire time.
	GateStale
)

// String returns the metrics label for the outcome.
func (g GateOutcome) String() string {
	switch g {
	case GateStarted:
		return "started"
	case GateNoDocument:
		return "no_document"
	case GateIneligible:
		return "ineligible"
	case GateNoChannel:
		return "no_channel"
	case GateRateLimited:
		return "rate_limited"
	case GateBusy:
		return "busy"
	case GateCloseSuppressed:
		return "close_suppressed"
	case GateStormSuppressed:
		return "storm_suppressed"
	case GateDebounced:
		return "debounced"
	case GateCleared:
		return "cleared"
	case GateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// changeTimerKey is the debounce key for the content-change timer class.
const changeTimerKey = "change"

// misconfigMessage is shown when both presentation channels are off.
const misconfigMessage = "queryscope: both the status indicator and diagnostics are disabled; " +
	"enable at least one presentation channel to receive estimates"

// ErrNoDocument is returned by ManualTrigger when the request names no
// open document.
var ErrNoDocument = errors.New("no active SQL document to estimate")

// Options are the coordinator tunables, one value per configuration
// knob the gates consume.
type Options struct {
	ManualMinInterval    time.Duration
	OpenMinInterval      time.Duration
	SaveMinInterval      time.Duration
	ChangeMinInterval    time.Duration
	SelectionMinInterval time.Duration

	ChangeDebounce  time.Duration
	SelectionDelay  time.Duration
	SelectionCap    int
	SelectionWindow time.Duration
	WillSaveGrace   time.Duration
	CloseHold       time.Duration

	ScanWarnBytes   int64
	EstimateTimeout time.Duration
	TrackDryRuns    bool
	ShortErrorRunes int

	StatusEnabled      bool
	DiagnosticsEnabled bool
}

// minInterval returns the rate-gate cool-down for a trigger class.
func (o Options) minInterval(class TriggerClass) time.Duration {
	switch class {
	case TriggerManual:
		return o.ManualMinInterval
	case TriggerOpen:
		return o.OpenMinInterval
	case TriggerSave:
		return o.SaveMinInterval
	case TriggerChange:
		return o.ChangeMinInterval
	case TriggerSelection:
		return o.SelectionMinInterval
	default:
		return 0
	}
}

// Presenter delivers results and user-visible messages. Implementations
// honor the configured presentation channels.
type Presenter interface {
	// Present pushes the current result for a document. shortErr is
	// the truncated error form for compact surfaces; it is empty
	// unless the result is StateFailed.
	Present(doc docstore.Document, res Result, shortErr string)

	// ShowMessage surfaces a user-visible message outside the result
	// channels.
	ShowMessage(text string)
}

// Deps are the coordinator collaborators.
type Deps struct {
	Docs      *docstore.Store
	Estimator estimate.Estimator
	Presenter Presenter
	Logger    *slog.Logger
	Metrics   *observability.TriggerMetrics

	// Now is the clock, nil means time.Now.
	Now func() time.Time

	// Ctx is the base context for estimates, nil means Background.
	Ctx context.Context
}

// Coordinator converts raw editor events into at most one in-flight
// dry-run estimate. One instance exists per editor session; all shared
// state hangs off it so tests can build and discard coordinators
// freely.
type Coordinator struct {
	opts      Options
	docs      *docstore.Store
	estimator estimate.Estimator
	presenter Presenter
	logger    *slog.Logger
	metrics   *observability.TriggerMetrics
	now       func() time.Time
	baseCtx   context.Context

	tracker    *ChangeTracker
	exec       *SingleFlightExecutor
	debouncer  *Debouncer
	stabilizer *SelectionStabilizer
	disamb     *CloseSaveDisambiguator
	results    *ResultState
	stats      *DryRunStats

	selMu     sync.Mutex
	activeSel *Selection
}

// New creates a coordinator. Deps.Docs, Deps.Estimator and
// Deps.Presenter are required.
func New(opts Options, deps Deps) *Coordinator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	baseCtx := deps.Ctx
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		opts:      opts,
		docs:      deps.Docs,
		estimator: deps.Estimator,
		presenter: deps.Presenter,
		logger:    logger,
		metrics:   deps.Metrics,
		now:       now,
		baseCtx:   baseCtx,
		tracker:   NewChangeTracker(),
		exec:      NewSingleFlightExecutor(now),
		debouncer: NewDebouncer(),
		disamb:    NewCloseSaveDisambiguator(opts.WillSaveGrace, opts.CloseHold),
		results:   NewResultState(),
		stats:     NewDryRunStats(now),
	}

	c.stabilizer = NewSelectionStabilizer(
		opts.SelectionDelay,
		opts.SelectionCap,
		opts.SelectionWindow,
		now,
		c.currentSelection,
		c.selectionFired,
	)

	return c
}

// Results exposes the result state machine for the presentation layer.
func (c *Coordinator) Results() *ResultState {
	return c.results
}

// Stats exposes the dry-run counter.
func (c *Coordinator) Stats() *DryRunStats {
	return c.stats
}

// Executor exposes the single-flight lock, mainly for tests.
func (c *Coordinator) Executor() *SingleFlightExecutor {
	return c.exec
}

// DocumentOpened handles a document-opened event.
func (c *Coordinator) DocumentOpened(uri string) GateOutcome {
	c.metrics.RecordEvent(c.baseCtx, string(TriggerOpen))

	return c.fullDocumentTrigger(TriggerOpen, uri)
}

// DocumentSaved handles a document-saved event. Saves suspected of
// being part of a close are skipped.
func (c *Coordinator) DocumentSaved(uri string) GateOutcome {
	c.metrics.RecordEvent(c.baseCtx, string(TriggerSave))

	if c.disamb.SuppressSave(uri) {
		c.metrics.RecordSkip(c.baseCtx, string(TriggerSave), GateCloseSuppressed.String())
		c.logger.Debug("save suppressed as save-on-close", "uri", uri)

		return GateCloseSuppressed
	}

	return c.fullDocumentTrigger(TriggerSave, uri)
}

// WillSave handles a document-about-to-be-saved event, arming the
// save-on-close suspicion for eligible documents.
func (c *Coordinator) WillSave(uri string) {
	doc, ok := c.docs.Get(uri)
	if !ok || !docstore.Eligible(doc) {
		return
	}

	c.disamb.WillSave(uri)
}

// DocumentClosed handles a document-closed event: the close-save
// heuristic is updated and the change-tracker entry is forgotten so
// the map cannot grow without bound.
func (c *Coordinator) DocumentClosed(uri string) {
	saveOnClose := c.disamb.DidClose(uri)
	if saveOnClose {
		c.logger.Debug("close classified as save-on-close", "uri", uri)
	}

	c.tracker.Forget(uri)
}

// DocumentChanged handles a content-change event by (re)arming the
// change debounce timer; the gated decision happens when the timer
// fires with fresh document state.
func (c *Coordinator) DocumentChanged(uri string) GateOutcome {
	c.metrics.RecordEvent(c.baseCtx, string(TriggerChange))

	doc, ok := c.docs.Get(uri)
	if !ok {
		return GateNoDocument
	}

	if !docstore.Eligible(doc) {
		return GateIneligible
	}

	c.debouncer.Schedule(changeTimerKey, c.opts.ChangeDebounce, func() {
		c.fullDocumentTrigger(TriggerChange, uri)
	})

	return GateDebounced
}

// SelectionChanged handles a selection event. A nil or empty selection
// clears the pending stabilization timer.
func (c *Coordinator) SelectionChanged(sel *Selection) GateOutcome {
	c.metrics.RecordEvent(c.baseCtx, string(TriggerSelection))
	c.setSelection(sel)

	if sel != nil && !sel.Empty() {
		doc, ok := c.docs.Get(sel.URI)
		if !ok {
			return GateNoDocument
		}

		if !docstore.Eligible(doc) {
			return GateIneligible
		}
	}

	switch c.stabilizer.Observe(sel) {
	case SelectionCleared:
		return GateCleared
	case SelectionSuppressed:
		c.metrics.RecordSkip(c.baseCtx, string(TriggerSelection), GateStormSuppressed.String())

		return GateStormSuppressed
	case SelectionArmed:
		return GateDebounced
	default:
		return GateDebounced
	}
}

// ManualTrigger handles an explicit estimate request. It returns
// ErrNoDocument when the URI names no open document, which the caller
// surfaces to the user.
func (c *Coordinator) ManualTrigger(uri string) (GateOutcome, error) {
	c.metrics.RecordEvent(c.baseCtx, string(TriggerManual))

	if uri == "" {
		return GateNoDocument, ErrNoDocument
	}

	if _, ok := c.docs.Get(uri); !ok {
		return GateNoDocument, ErrNoDocument
	}

	outcome := c.fullDocumentTrigger(TriggerManual, uri)

	return outcome, nil
}

// Reset returns the coordinator's session state to its initial form;
// used on deactivation and when dry-run tracking is toggled off and on.
func (c *Coordinator) Reset() {
	c.stats.Reset()
	c.results.Reset()
}

// fullDocumentTrigger runs the shared gate chain for whole-document
// trigger classes, reading the freshest document state.
func (c *Coordinator) fullDocumentTrigger(class TriggerClass, uri string) GateOutcome {
	doc, ok := c.docs.Get(uri)
	if !ok {
		return GateNoDocument
	}

	if !docstore.Eligible(doc) {
		return GateIneligible
	}

	return c.attempt(class, doc, doc.Text)
}

// attempt runs the rate gate and the single-flight lock for one
// trigger, issuing the estimate when both pass.
func (c *Coordinator) attempt(class TriggerClass, doc docstore.Document, query string) GateOutcome {
	if !c.opts.StatusEnabled && !c.opts.DiagnosticsEnabled {
		// No way to deliver a result: report the misconfiguration and
		// abort before spending quota on the remote call.
		c.presenter.ShowMessage(misconfigMessage)
		c.metrics.RecordSkip(c.baseCtx, string(class), GateNoChannel.String())

		return GateNoChannel
	}

	changed := c.tracker.HasChanged(doc.Key(), doc.Version)
	if !ShouldRun(c.now(), c.exec.LastRun(), changed, c.opts.minInterval(class)) {
		c.metrics.RecordSkip(c.baseCtx, string(class), GateRateLimited.String())
		c.logger.Debug("estimate rate-gated",
			"uri", doc.URI, "trigger", string(class), "changed", changed)

		return GateRateLimited
	}

	started := c.exec.TryRun(func() error {
		return c.runEstimate(class, doc, query)
	})
	if !started {
		c.metrics.RecordSkip(c.baseCtx, string(class), GateBusy.String())
		c.logger.Debug("estimate dropped, another run in flight",
			"uri", doc.URI, "trigger", string(class))

		return GateBusy
	}

	return GateStarted
}

// runEstimate performs one remote dry run and drives the result state
// machine through Analyzing into a terminal state.
func (c *Coordinator) runEstimate(class TriggerClass, doc docstore.Document, query string) error {
	start := c.now()

	decInflight := c.metrics.TrackInflight(c.baseCtx)
	defer decInflight()

	c.results.BeginAnalyzing()
	c.present(doc)

	ctx, cancel := context.WithTimeout(c.baseCtx, c.opts.EstimateTimeout)
	defer cancel()

	res, err := c.estimator.Estimate(ctx, query)

	// The flag is checked here, outside Record, so toggling tracking
	// never rewrites history.
	if c.opts.TrackDryRuns {
		c.stats.Record()
	}

	if err != nil {
		c.results.SetFailed([]string{err.Error()})
		c.present(doc)
		c.metrics.RecordRun(c.baseCtx, string(class), "error", c.now().Sub(start), 0)
		c.logger.Warn("estimate failed", "uri", doc.URI, "trigger", string(class), "error", err)

		return err
	}

	if res.Failed() {
		c.results.SetFailed(res.Errors)
		c.present(doc)
		c.metrics.RecordRun(c.baseCtx, string(class), "rejected", c.now().Sub(start), 0)
		c.logger.Info("query rejected by estimator",
			"uri", doc.URI, "trigger", string(class), "errors", len(res.Errors))

		return errEstimateRejected
	}

	if res.ScannedBytes > c.opts.ScanWarnBytes {
		c.results.SetWarning(res.ScannedBytes, c.opts.ScanWarnBytes)
	} else {
		c.results.SetSuccess(res.ScannedBytes)
	}

	c.present(doc)
	c.metrics.RecordRun(c.baseCtx, string(class), "ok", c.now().Sub(start), res.ScannedBytes)
	c.logger.Info("estimate complete",
		"uri", doc.URI, "trigger", string(class), "scanned_bytes", res.ScannedBytes)

	return nil
}

// errEstimateRejected marks a run whose query the service rejected;
// the rate gate treats it as unsuccessful.
var errEstimateRejected = errors.New("query rejected")

// present pushes the current result through the presenter.
func (c *Coordinator) present(doc docstore.Document) {
	res := c.results.Current()

	shortErr := ""
	if res.State == StateFailed {
		shortErr = c.results.ShortError(c.opts.ShortErrorRunes)
	}

	c.presenter.Present(doc, res, shortErr)
}

// selectionFired is the stabilizer callback: the armed selection
// survived its delay and still matches the active one.
func (c *Coordinator) selectionFired(sel Selection) {
	doc, ok := c.docs.Get(sel.URI)
	if !ok {
		return
	}

	query, ok := doc.Slice(sel.Range)
	if !ok || query == "" {
		// The document shifted under the selection; treat as stale.
		c.metrics.RecordSkip(c.baseCtx, string(TriggerSelection), GateStale.String())

		return
	}

	c.attempt(TriggerSelection, doc, query)
}

// setSelection records the editor's current selection for stale-fire
// validation.
func (c *Coordinator) setSelection(sel *Selection) {
	c.selMu.Lock()
	defer c.selMu.Unlock()

	if sel == nil || sel.Empty() {
		c.activeSel = nil

		return
	}

	copied := *sel
	c.activeSel = &copied
}

// currentSelection returns the selection the editor currently holds.
func (c *Coordinator) currentSelection() *Selection {
	c.selMu.Lock()
	defer c.selMu.Unlock()

	if c.activeSel == nil {
		return nil
	}

	copied := *c.activeSel

	return &copied
}
