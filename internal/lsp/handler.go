// Package lsp serves graph text files to editors over the Language Server
// Protocol: parse and optimization diagnostics, semantic highlighting,
// completion and hover.
package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"graphopt/internal/model"
	"graphopt/internal/transforms"
)

var log = commonlog.GetLogger("graphopt.lsp")

// GraphHandler implements the LSP server handlers for graph files.
type GraphHandler struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentUri]*document
	opts transforms.Options
}

// NewGraphHandler creates a handler whose dry runs verify the model after
// every rewrite.
func NewGraphHandler() *GraphHandler {
	opts := transforms.DefaultOptions()
	opts.Verify = true
	return &GraphHandler{
		docs: make(map[protocol.DocumentUri]*document),
		opts: opts,
	}
}

// Initialize responds to the client's initialize request and advertises the
// server's capabilities.
func (h *GraphHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			HoverProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *GraphHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *GraphHandler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *GraphHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen analyzes a newly opened file and publishes its
// diagnostics.
func (h *GraphHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Debugf("opened %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange re-analyzes a file after an edit.
func (h *GraphHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed %s", params.TextDocument.URI)

	h.mu.RLock()
	text := ""
	if doc, ok := h.docs[params.TextDocument.URI]; ok {
		text = doc.text
	}
	h.mu.RUnlock()

	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
				continue
			}
			start, end := c.Range.IndexesIn(text)
			text = text[:start] + c.Text + text[end:]
		default:
			return fmt.Errorf("unsupported content change %T", change)
		}
	}
	return h.update(ctx, params.TextDocument.URI, text)
}

// TextDocumentDidClose forgets a closed file.
func (h *GraphHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Debugf("closed %s", params.TextDocument.URI)

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.docs, params.TextDocument.URI)
	return nil
}

// TextDocumentCompletion offers operator names after "op", data types after
// a colon, and keywords plus known array names elsewhere.
func (h *GraphHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	var items []protocol.CompletionItem
	prev, _ := doc.tokenBefore(params.Position)
	switch prev.Value {
	case "op":
		for _, t := range model.OperatorTypes() {
			items = append(items, completionItem(t.String(), protocol.CompletionItemKindClass))
		}
	case ":":
		for _, t := range []model.ArrayDataType{model.Float32, model.Uint8, model.Int32, model.String} {
			items = append(items, completionItem(t.String(), protocol.CompletionItemKindTypeParameter))
		}
	default:
		for _, kw := range []string{"input", "output", "state", "array", "op"} {
			items = append(items, completionItem(kw, protocol.CompletionItemKindKeyword))
		}
		if doc.model != nil {
			for _, name := range doc.model.ArrayNames() {
				items = append(items, completionItem(name, protocol.CompletionItemKindVariable))
			}
		}
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// TextDocumentHover describes the array or operator type under the cursor.
func (h *GraphHandler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	tok, ok := doc.tokenAt(params.Position)
	if !ok || tok.Type != identType {
		return nil, nil
	}

	var text string
	if t, ok := model.ParseOperatorType(tok.Value); ok {
		text = fmt.Sprintf("**%s** operator", t)
	} else if doc.model != nil && doc.model.HasArray(tok.Value) {
		text = describeArray(doc.model, tok.Value)
	} else {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the
// entire document.
func (h *GraphHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, err := h.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(doc.path, doc.text, doc.model)
	return &protocol.SemanticTokens{
		Data: encodeSemanticTokens(tokens),
	}, nil
}

func (h *GraphHandler) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return err
	}

	doc := analyze(path, text, h.opts)

	h.mu.Lock()
	h.docs[uri] = doc
	h.mu.Unlock()

	sendDiagnosticNotification(ctx, uri, doc.diagnostics)
	return nil
}

func (h *GraphHandler) document(uri protocol.DocumentUri) (*document, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	doc, ok := h.docs[uri]
	if !ok {
		return nil, errors.Errorf("document %s is not open", uri)
	}
	return doc, nil
}

// describeArray renders the hover text of an array.
func describeArray(m *model.Model, name string) string {
	a := m.GetArray(name)

	shape := "unknown shape"
	if a.HasShape() {
		shape = a.Shape.String()
	}
	lines := []string{fmt.Sprintf("**%s** `%s %s`", name, a.DataType, shape)}

	var roles []string
	if m.IsInputArray(name) {
		roles = append(roles, "model input")
	}
	if m.IsOutputArray(name) {
		roles = append(roles, "model output")
	}
	if m.IsRNNStateArray(name) {
		roles = append(roles, "recurrent state")
	}
	if m.IsBackEdgeSource(name) {
		roles = append(roles, "back edge source")
	}
	if a.Buffer != nil {
		roles = append(roles, fmt.Sprintf("constant with %d element(s)", a.Buffer.Len()))
	}
	slices.Sort(roles)
	if len(roles) > 0 {
		lines = append(lines, strings.Join(roles, ", "))
	}

	if producer := m.ProducerOf(name); producer != nil {
		lines = append(lines, fmt.Sprintf("written by %s", m.LogName(producer)))
	}
	lines = append(lines, fmt.Sprintf("read by %d operator(s)", len(m.ConsumersOf(name))))
	return strings.Join(lines, "\n\n")
}

func completionItem(label string, kind protocol.CompletionItemKind) protocol.CompletionItem {
	return protocol.CompletionItem{Label: label, Kind: &kind}
}

// uriToPath converts a file URI to a platform-local path.
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URI %s", rawURI)
	}

	path := u.Path

	// On Windows, /C:/... becomes C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	log.Debugf("publishing %d diagnostic(s) for %s", len(diagnostics), uri)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
