package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/queryscope/queryscope/internal/config"
	"github.com/queryscope/queryscope/internal/docstore"
	"github.com/queryscope/queryscope/internal/estimate"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	return cfg
}

func TestNewServer(t *testing.T) {
	srv := NewServer(Deps{
		Config:    testConfig(t),
		Estimator: &estimate.Fixed{},
		Version:   "1.2.3",
	})

	require.NotNil(t, srv.Coordinator())
	require.NotNil(t, srv.Store())
	assert.Zero(t, srv.Store().Len())
}

func TestPresent_NoConnectionIsSafe(t *testing.T) {
	srv := NewServer(Deps{
		Config:    testConfig(t),
		Estimator: &estimate.Fixed{},
	})

	// Before the first message there is no notifier; presenting must
	// not panic.
	srv.Present(docstore.Document{URI: "file:///q.sql"}, srv.coord.Results().Current(), "")
	srv.ShowMessage("hello")
}

func TestToSelection(t *testing.T) {
	t.Parallel()

	assert.Nil(t, toSelection(selectionChangedParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///q.sql"},
	}))

	sel := toSelection(selectionChangedParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///q.sql"},
		Range: &protocol.Range{
			Start: protocol.Position{Line: 1, Character: 2},
			End:   protocol.Position{Line: 3, Character: 4},
		},
	})

	require.NotNil(t, sel)
	assert.Equal(t, "file:///q.sql", sel.URI)
	assert.Equal(t, docstore.Position{Line: 1, Character: 2}, sel.Range.Start)
	assert.Equal(t, docstore.Position{Line: 3, Character: 4}, sel.Range.End)
	assert.False(t, sel.Empty())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Triggers.OpenMinInterval = 42
	cfg.Selection.Cap = 7
	cfg.Analysis.ScanWarnBytes = 99
	cfg.Presentation.Diagnostics = false

	opts := optionsFromConfig(cfg)

	assert.Equal(t, cfg.Triggers.OpenMinInterval, opts.OpenMinInterval)
	assert.Equal(t, cfg.Triggers.ChangeDebounce, opts.ChangeDebounce)
	assert.Equal(t, 7, opts.SelectionCap)
	assert.Equal(t, int64(99), opts.ScanWarnBytes)
	assert.Equal(t, cfg.Analysis.ShortErrorRunes, opts.ShortErrorRunes)
	assert.True(t, opts.StatusEnabled)
	assert.False(t, opts.DiagnosticsEnabled)
}
