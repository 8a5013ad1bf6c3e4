package lsp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/queryscope/queryscope/internal/docstore"
	"github.com/queryscope/queryscope/internal/trigger"
)

func (srv *Server) didOpen(_ *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := params.TextDocument
	srv.store.Open(doc.URI, doc.LanguageID, doc.Version, doc.Text)
	srv.coord.DocumentOpened(doc.URI)

	return nil
}

func (srv *Server) didChange(_ *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	if len(params.ContentChanges) > 0 {
		if change, changeOK := params.ContentChanges[0].(map[string]any); changeOK {
			if text, textOK := change["text"].(string); textOK {
				srv.store.Update(uri, params.TextDocument.Version, text)
				srv.coord.DocumentChanged(uri)
			}
		}
	}

	return nil
}

func (srv *Server) willSave(_ *glsp.Context, params *protocol.WillSaveTextDocumentParams) error {
	srv.coord.WillSave(params.TextDocument.URI)

	return nil
}

func (srv *Server) didSave(_ *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		if doc, ok := srv.store.Get(uri); ok {
			srv.store.Update(uri, doc.Version, *params.Text)
		}
	}

	srv.coord.DocumentSaved(uri)

	return nil
}

func (srv *Server) didClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.coord.DocumentClosed(uri)
	srv.store.Close(uri)

	return nil
}

// selectionChangedParams is the payload of queryscope/selectionChanged.
// A nil or empty range means the selection was cleared.
type selectionChangedParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        *protocol.Range                 `json:"range,omitempty"`
}

// estimateParams is the payload of queryscope/estimate.
type estimateParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
}

// statsResult is the response of queryscope/stats.
type statsResult struct {
	Count       int64   `json:"count"`
	LastRunTime *string `json:"lastRunTime,omitempty"`
	SinceLastMs *int64  `json:"sinceLastMs,omitempty"`
	Now         string  `json:"now"`
}

// lastErrorResult is the response of queryscope/lastError.
type lastErrorResult struct {
	Text string `json:"text"`
}

func (srv *Server) handleSelectionChanged(ctx *glsp.Context) (any, bool, bool, error) {
	var params selectionChangedParams

	err := json.Unmarshal(ctx.Params, &params)
	if err != nil {
		return nil, true, false, fmt.Errorf("decode %s: %w", MethodSelectionChanged, err)
	}

	srv.coord.SelectionChanged(toSelection(params))

	return nil, true, true, nil
}

func (srv *Server) handleEstimate(ctx *glsp.Context) (any, bool, bool, error) {
	var params estimateParams

	err := json.Unmarshal(ctx.Params, &params)
	if err != nil {
		return nil, true, false, fmt.Errorf("decode %s: %w", MethodEstimate, err)
	}

	outcome, err := srv.coord.ManualTrigger(params.TextDocument.URI)
	if err != nil {
		srv.ShowMessage(err.Error())

		return nil, true, true, err
	}

	return map[string]string{"outcome": outcome.String()}, true, true, nil
}

func (srv *Server) handleStats() (any, bool, bool, error) {
	snap := srv.coord.Stats().Snapshot()

	result := statsResult{
		Count: snap.Count,
		Now:   snap.Now.Format(time.RFC3339Nano),
	}

	if !snap.LastRunTime.IsZero() {
		last := snap.LastRunTime.Format(time.RFC3339Nano)
		sinceMs := snap.SinceLast.Milliseconds()
		result.LastRunTime = &last
		result.SinceLastMs = &sinceMs
	}

	return result, true, true, nil
}

func (srv *Server) handleLastError() (any, bool, bool, error) {
	return lastErrorResult{Text: srv.coord.Results().LastErrorFull()}, true, true, nil
}

// toSelection converts the wire payload into the coordinator's
// selection model.
func toSelection(params selectionChangedParams) *trigger.Selection {
	if params.Range == nil {
		return nil
	}

	return &trigger.Selection{
		URI: params.TextDocument.URI,
		Range: docstore.Range{
			Start: docstore.Position{Line: params.Range.Start.Line, Character: params.Range.Start.Character},
			End:   docstore.Position{Line: params.Range.End.Line, Character: params.Range.End.Character},
		},
	}
}
