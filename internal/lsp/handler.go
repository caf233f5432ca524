package lsp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"irx/internal/dialect"
)

var log = commonlog.GetLogger("irx.lsp")

// Define the set of supported semantic token types (as required by the LSP protocol)
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"function",
	"variable",
	"property",
	"keyword",
	"number",
	"string",
	"comment",
	"operator",
}

// Define the set of supported semantic token modifiers (for extra tagging like declaration, readonly, etc.)
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
}

// IRXHandler implements the LSP server handlers for IR, IRDL and PDL files
type IRXHandler struct {
	mu       sync.RWMutex
	content  map[string]string
	registry *dialect.Registry
}

// NewIRXHandler creates a handler that verifies modules against reg
func NewIRXHandler(reg *dialect.Registry) *IRXHandler {
	return &IRXHandler{
		content:  make(map[string]string),
		registry: reg,
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *IRXHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true), // notify on open/close events
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{`"`, "."},
				ResolveProvider:   ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true), // support full-document semantic token requests
			},
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization
func (h *IRXHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("irx LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *IRXHandler) Shutdown(ctx *glsp.Context) error {
	log.Info("irx LSP Shutdown")
	return nil
}

// SetTrace records the trace level requested by the client
func (h *IRXHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *IRXHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Infof("Opened file: %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *IRXHandler) TextDocumentDidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Infof("Closed file: %s", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor.
// The server asks for full synchronization, so the last change holds the
// whole document.
func (h *IRXHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Infof("Changed file: %s", params.TextDocument.URI)

	var text string
	found := false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, found = c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text, found = c.Text, true
			}
		}
	}
	if !found {
		return nil
	}
	return h.update(ctx, params.TextDocument.URI, text)
}

// TextDocumentCompletion offers the registered operation names
func (h *IRXHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (interface{}, error) {
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        h.completionItems(),
	}, nil
}

func (h *IRXHandler) completionItems() []protocol.CompletionItem {
	kind := protocol.CompletionItemKindFunction
	items := []protocol.CompletionItem{}
	for _, name := range h.registry.OperationNames() {
		item := protocol.CompletionItem{Label: name, Kind: &kind}
		if oc, err := h.registry.Lookup(name); err == nil && oc.Summary != "" {
			item.Detail = ptrString(oc.Summary)
		}
		items = append(items, item)
	}
	return items
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *IRXHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Debugf("TextDocumentSemanticTokensFull called for: %s", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	content, err := h.getOrLoad(ctx, path, rawURI)
	if err != nil {
		return nil, err
	}

	// Lex the document and collect semantic tokens
	tokens := collectSemanticTokens(path, content)

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		// Append the encoded semantic token entry
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

// getOrLoad returns the open document, reading it from disk when the
// editor never sent it.
func (h *IRXHandler) getOrLoad(ctx *glsp.Context, path string, rawURI protocol.DocumentUri) (string, error) {
	h.mu.RLock()
	content, ok := h.content[path]
	h.mu.RUnlock()
	if ok {
		return content, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if err := h.update(ctx, rawURI, string(data)); err != nil {
		return "", err
	}
	return string(data), nil
}

// update stores the document and publishes its diagnostics.
func (h *IRXHandler) update(ctx *glsp.Context, rawURI protocol.DocumentUri, content string) error {
	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	h.mu.Lock()
	h.content[path] = content
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, rawURI, Analyze(path, content, h.registry))
	return nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	// Normalize to platform-specific separators
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	diagnosticsJSON, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Errorf("Failed to marshal diagnostics: %s", err)
		return
	}

	log.Debugf("Sending diagnostics: %s", diagnosticsJSON)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrString(s string) *string {
	return &s
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}
