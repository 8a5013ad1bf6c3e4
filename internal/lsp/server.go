// Package lsp exposes the estimate pipeline as a language server on
// stdio. Standard textDocument events feed the trigger coordinator;
// a small set of queryscope/* methods carries what the protocol has no
// standard shape for: selection changes, manual estimates, statistics,
// and the full error text.
package lsp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/queryscope/queryscope/internal/config"
	"github.com/queryscope/queryscope/internal/docstore"
	"github.com/queryscope/queryscope/internal/estimate"
	"github.com/queryscope/queryscope/internal/observability"
	"github.com/queryscope/queryscope/internal/trigger"
)

// serverName is the LSP server implementation name.
const serverName = "queryscope"

// Custom protocol methods.
const (
	// MethodSelectionChanged is the inbound selection-changed notification.
	MethodSelectionChanged = "queryscope/selectionChanged"
	// MethodEstimate is the inbound manual estimate request.
	MethodEstimate = "queryscope/estimate"
	// MethodStats is the inbound dry-run statistics request.
	MethodStats = "queryscope/stats"
	// MethodLastError is the inbound full-error-text request.
	MethodLastError = "queryscope/lastError"
	// MethodStatus is the outbound status notification.
	MethodStatus = "queryscope/status"
)

// Deps holds injectable dependencies for the LSP server.
type Deps struct {
	Config    *config.Config
	Estimator estimate.Estimator
	Logger    *slog.Logger
	Metrics   *observability.TriggerMetrics
	Version   string
}

// Server is the queryscope language server.
type Server struct {
	handler protocol.Handler
	store   *docstore.Store
	coord   *trigger.Coordinator
	cfg     *config.Config
	logger  *slog.Logger
	version string

	notifyMu sync.Mutex
	notify   glsp.NotifyFunc
}

// NewServer creates a language server with the trigger coordinator
// wired to the given estimator.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		store:   docstore.NewStore(),
		cfg:     deps.Config,
		logger:  logger,
		version: deps.Version,
	}

	srv.coord = trigger.New(optionsFromConfig(deps.Config), trigger.Deps{
		Docs:      srv.store,
		Estimator: deps.Estimator,
		Presenter: srv,
		Logger:    logger,
		Metrics:   deps.Metrics,
	})

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentWillSave:  srv.willSave,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
	}

	return srv
}

// Coordinator exposes the trigger coordinator, mainly for tests.
func (srv *Server) Coordinator() *trigger.Coordinator {
	return srv.coord
}

// Store exposes the document store, mainly for tests.
func (srv *Server) Store() *docstore.Store {
	return srv.store
}

// Run starts the LSP server on stdio and blocks until the connection
// closes.
func (srv *Server) Run() error {
	lspServer := server.NewServer(&rpcHandler{srv: srv}, serverName, false)

	err := lspServer.RunStdio()

	srv.coord.Reset()

	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

// rpcHandler intercepts queryscope/* methods and delegates everything
// else to the standard protocol handler.
type rpcHandler struct {
	srv *Server
}

// Handle implements [glsp.Handler].
func (h *rpcHandler) Handle(ctx *glsp.Context) (any, bool, bool, error) {
	h.srv.setNotify(ctx.Notify)

	switch ctx.Method {
	case MethodSelectionChanged:
		return h.srv.handleSelectionChanged(ctx)
	case MethodEstimate:
		return h.srv.handleEstimate(ctx)
	case MethodStats:
		return h.srv.handleStats()
	case MethodLastError:
		return h.srv.handleLastError()
	default:
		return h.srv.handler.Handle(ctx)
	}
}

func (srv *Server) setNotify(notify glsp.NotifyFunc) {
	srv.notifyMu.Lock()
	defer srv.notifyMu.Unlock()

	srv.notify = notify
}

// notifyFunc returns the most recent connection notifier, nil before
// the first message.
func (srv *Server) notifyFunc() glsp.NotifyFunc {
	srv.notifyMu.Lock()
	defer srv.notifyMu.Unlock()

	return srv.notify
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()
	version := srv.version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	srv.coord.Reset()

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

// optionsFromConfig maps the loaded configuration onto the coordinator
// tunables.
func optionsFromConfig(cfg *config.Config) trigger.Options {
	return trigger.Options{
		ManualMinInterval:    cfg.Triggers.ManualMinInterval,
		OpenMinInterval:      cfg.Triggers.OpenMinInterval,
		SaveMinInterval:      cfg.Triggers.SaveMinInterval,
		ChangeMinInterval:    cfg.Triggers.ChangeMinInterval,
		SelectionMinInterval: cfg.Triggers.SelectionMinInterval,
		ChangeDebounce:       cfg.Triggers.ChangeDebounce,
		SelectionDelay:       cfg.Selection.Delay,
		SelectionCap:         cfg.Selection.Cap,
		SelectionWindow:      cfg.Selection.Window,
		WillSaveGrace:        cfg.SaveClose.WillSaveGrace,
		CloseHold:            cfg.SaveClose.CloseHold,
		ScanWarnBytes:        cfg.Analysis.ScanWarnBytes,
		EstimateTimeout:      cfg.Analysis.EstimateTimeout,
		TrackDryRuns:         cfg.Analysis.TrackDryRuns,
		ShortErrorRunes:      cfg.Analysis.ShortErrorRunes,
		StatusEnabled:        cfg.Presentation.Status,
		DiagnosticsEnabled:   cfg.Presentation.Diagnostics,
	}
}
