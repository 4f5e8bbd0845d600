package lsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"graphopt/internal/lsp"
)

const uri = "file:///tmp/model.graph"

const preluSource = `input x : float32 [1, 8]
output y
array c1 : float32 [1] = [0.3]
op Relu (x) -> r
op Abs (x) -> a
op Sub (x, a) -> s
op Mul (s, c1) -> n
op Add (r, n) -> y
`

// recorder captures published diagnostics.
type recorder struct {
	published []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				r.published = append(r.published, params.(*protocol.PublishDiagnosticsParams))
			}
		},
	}
}

func (r *recorder) last(t *testing.T) []protocol.Diagnostic {
	require.NotEmpty(t, r.published, "no diagnostics were published")
	return r.published[len(r.published)-1].Diagnostics
}

func open(t *testing.T, h *lsp.GraphHandler, rec *recorder, text string) {
	err := h.TextDocumentDidOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "graph", Version: 1, Text: text},
	})
	require.NoError(t, err)
}

func TestDidOpenReportsApplicableRewrites(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}

	open(t, h, rec, preluSource)

	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, protocol.DiagnosticSeverityHint, *diagnostics[0].Severity)
	assert.Contains(t, diagnostics[0].Message, "ResolvePRelu x1")
	assert.Equal(t, uri, rec.published[0].URI)
}

func TestDidOpenReportsSyntaxErrors(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}

	open(t, h, rec, "input x\nop Relu x -> y\n")

	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, protocol.DiagnosticSeverityError, *diagnostics[0].Severity)
	assert.Equal(t, "graphopt-parser", *diagnostics[0].Source)
	assert.Equal(t, uint32(1), diagnostics[0].Range.Start.Line)
}

func TestDidOpenReportsInvariantViolations(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}

	open(t, h, rec, `input q : float32 [1, 4]
output y
array qmin : float32 [1] = [0]
array qmax : float32 [1] = [6]
op Dequantize (q, qmin, qmax) -> y
`)

	diagnostics := rec.last(t)
	require.Len(t, diagnostics, 1)
	d := diagnostics[0]
	require.NotNil(t, d.Code)
	assert.Equal(t, "G0100", d.Code.Value)
	assert.Equal(t, uint32(4), d.Range.Start.Line, "points at the Dequantize declaration")
	assert.Contains(t, d.Message, "ResolveConstantDequantize")
}

func TestDidChangeClearsDiagnostics(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}
	open(t, h, rec, "op Relu x -> y\n")
	require.NotEmpty(t, rec.last(t))

	err := h.TextDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "input x\noutput y\nop Relu (x) -> y\n"},
		},
	})
	require.NoError(t, err)

	assert.Empty(t, rec.last(t))
	assert.Len(t, rec.published, 2)
}

func TestHoverDescribesArrays(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}
	open(t, h, rec, preluSource)

	hover, err := h.TextDocumentHover(rec.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 6},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)

	content := hover.Contents.(protocol.MarkupContent)
	assert.Contains(t, content.Value, "**x** `float32 [1, 8]`")
	assert.Contains(t, content.Value, "model input")
	assert.Contains(t, content.Value, "read by 3 operator(s)")

	hover, err = h.TextDocumentHover(rec.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 2, Character: 7},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.(protocol.MarkupContent).Value, "constant with 1 element(s)")
}

func TestHoverOutsideIdentifiers(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}
	open(t, h, rec, preluSource)

	hover, err := h.TextDocumentHover(rec.context(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 8},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestCompletion(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}
	open(t, h, rec, "input x : float32 [1]\nop \n")

	labels := func(line, character uint32) []string {
		result, err := h.TextDocumentCompletion(rec.context(), &protocol.CompletionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: line, Character: character},
			},
		})
		require.NoError(t, err)
		var names []string
		for _, item := range result.(*protocol.CompletionList).Items {
			names = append(names, item.Label)
		}
		return names
	}

	afterOp := labels(1, 3)
	assert.Contains(t, afterOp, "Conv")
	assert.Contains(t, afterOp, "GruCell")
	assert.NotContains(t, afterOp, "None")

	afterColon := labels(0, 10)
	assert.Equal(t, []string{"float32", "uint8", "int32", "string"}, afterColon)

	assert.Contains(t, labels(0, 0), "array")
}

func TestSemanticTokensFull(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}
	open(t, h, rec, "input x : float32 [1, 8]\nop Relu (x) -> y\narray c : float32 [1] = [2]\n")

	tokens, err := h.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	require.NotNil(t, tokens)

	decoded := decodeSemanticTokens(t, tokens.Data)
	expected := []semanticToken{
		{0, 0, 5, "keyword", nil},
		{0, 6, 1, "variable", []string{"declaration"}},
		{0, 10, 7, "type", nil},
		{0, 19, 1, "number", nil},
		{0, 22, 1, "number", nil},
		{1, 0, 2, "keyword", nil},
		{1, 3, 4, "function", nil},
		{1, 9, 1, "variable", nil},
		{1, 12, 2, "operator", nil},
		{1, 15, 1, "variable", []string{"declaration"}},
		{2, 0, 5, "keyword", nil},
		{2, 6, 1, "variable", []string{"declaration", "readonly"}},
		{2, 10, 7, "type", nil},
		{2, 19, 1, "number", nil},
		{2, 22, 1, "operator", nil},
		{2, 25, 1, "number", nil},
	}
	assert.Equal(t, expected, decoded)
}

func TestRequestsForUnknownDocuments(t *testing.T) {
	h := lsp.NewGraphHandler()
	rec := &recorder{}
	open(t, h, rec, preluSource)

	require.NoError(t, h.TextDocumentDidClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))

	_, err := h.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	assert.ErrorContains(t, err, "is not open")
}

func TestInitializeAdvertisesLegend(t *testing.T) {
	h := lsp.NewGraphHandler()

	result, err := h.Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	capabilities := result.(*protocol.InitializeResult).Capabilities
	options := capabilities.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	assert.Equal(t, lsp.SemanticTokenTypes, options.Legend.TokenTypes)
	assert.Equal(t, true, capabilities.HoverProvider)
}

type semanticToken struct {
	line, start, length uint32
	kind                string
	modifiers           []string
}

func decodeSemanticTokens(t *testing.T, data []uint32) []semanticToken {
	require.Zero(t, len(data)%5, "token data must come in groups of five")

	var tokens []semanticToken
	var line, start uint32
	for i := 0; i < len(data); i += 5 {
		deltaLine, deltaStart := data[i], data[i+1]
		if deltaLine == 0 {
			start += deltaStart
		} else {
			line += deltaLine
			start = deltaStart
		}

		var modifiers []string
		for bit, name := range lsp.SemanticTokenModifiers {
			if data[i+4]&(1<<bit) != 0 {
				modifiers = append(modifiers, name)
			}
		}
		tokens = append(tokens, semanticToken{
			line:      line,
			start:     start,
			length:    data[i+2],
			kind:      lsp.SemanticTokenTypes[data[i+3]],
			modifiers: modifiers,
		})
	}
	return tokens
}
