package lsp

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/queryscope/queryscope/internal/docstore"
	"github.com/queryscope/queryscope/internal/trigger"
)

// diagnosticSource labels diagnostics produced by this server.
const diagnosticSource = "queryscope"

// errorLocation matches the "at [line:column]" suffix BigQuery puts on
// query errors; line and column are 1-based.
var errorLocation = regexp.MustCompile(`at \[(\d+):(\d+)\]`)

// statusParams is the payload of the queryscope/status notification.
type statusParams struct {
	URI          string `json:"uri"`
	State        string `json:"state"`
	ScannedBytes *int64 `json:"scannedBytes,omitempty"`
	Text         string `json:"text"`
}

// Present implements [trigger.Presenter]: the result goes out on each
// enabled channel.
func (srv *Server) Present(doc docstore.Document, res trigger.Result, shortErr string) {
	notify := srv.notifyFunc()
	if notify == nil {
		return
	}

	if srv.cfg.Presentation.Diagnostics {
		notify("textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
			URI:         doc.URI,
			Diagnostics: diagnosticsFor(res),
		})
	}

	if srv.cfg.Presentation.Status {
		notify(MethodStatus, statusFor(doc.URI, res, shortErr))
	}
}

// ShowMessage implements [trigger.Presenter] via window/showMessage.
func (srv *Server) ShowMessage(text string) {
	notify := srv.notifyFunc()
	if notify == nil {
		return
	}

	notify("window/showMessage", &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: text,
	})
}

// diagnosticsFor maps a result onto the diagnostics channel. Anything
// but Failed and Warning clears the list.
func diagnosticsFor(res trigger.Result) []protocol.Diagnostic {
	switch res.State {
	case trigger.StateFailed:
		diags := make([]protocol.Diagnostic, 0, len(res.Messages))
		for _, msg := range res.Messages {
			diags = append(diags, errorDiagnostic(msg))
		}

		return diags
	case trigger.StateWarning:
		severity := protocol.DiagnosticSeverityWarning
		source := diagnosticSource

		return []protocol.Diagnostic{{
			Range:    protocol.Range{},
			Severity: &severity,
			Source:   &source,
			Message: fmt.Sprintf("query would scan %s, over the %s warning threshold",
				humanize.IBytes(uint64(res.ScannedBytes)), humanize.IBytes(uint64(res.ThresholdBytes))),
		}}
	default:
		return []protocol.Diagnostic{}
	}
}

// errorDiagnostic builds an error diagnostic, anchored at the position
// named inside the message when one is present, else at the document
// start.
func errorDiagnostic(msg string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := diagnosticSource

	return protocol.Diagnostic{
		Range:    locationOf(msg),
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// locationOf extracts the 0-based error position from a message, zero
// range when absent.
func locationOf(msg string) protocol.Range {
	match := errorLocation.FindStringSubmatch(msg)
	if match == nil {
		return protocol.Range{}
	}

	line, lineErr := strconv.ParseUint(match[1], 10, 32)
	col, colErr := strconv.ParseUint(match[2], 10, 32)

	if lineErr != nil || colErr != nil || line == 0 || col == 0 {
		return protocol.Range{}
	}

	pos := protocol.Position{Line: uint32(line - 1), Character: uint32(col - 1)}

	return protocol.Range{Start: pos, End: pos}
}

// statusFor renders the compact status payload.
func statusFor(uri string, res trigger.Result, shortErr string) *statusParams {
	params := &statusParams{URI: uri, State: res.State.String()}

	switch res.State {
	case trigger.StateAnalyzing:
		params.Text = "estimating query cost"
	case trigger.StateSuccess:
		scanned := res.ScannedBytes
		params.ScannedBytes = &scanned
		params.Text = humanize.IBytes(uint64(scanned)) + " will be scanned"
	case trigger.StateWarning:
		scanned := res.ScannedBytes
		params.ScannedBytes = &scanned
		params.Text = fmt.Sprintf("%s will be scanned (over %s threshold)",
			humanize.IBytes(uint64(scanned)), humanize.IBytes(uint64(res.ThresholdBytes)))
	case trigger.StateFailed:
		params.Text = shortErr
	default:
		params.Text = ""
	}

	return params
}
