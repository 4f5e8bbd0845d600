package lsp

import (
	"context"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"graphopt/internal/graphtext"
	"graphopt/internal/model"
	"graphopt/internal/transforms"
)

// dryRunTimeout bounds the optimization run made on every edit.
const dryRunTimeout = 5 * time.Second

// document is the analysis of one open graph file.
type document struct {
	path string
	text string

	// model is the graph as written, nil while the text does not parse.
	model *model.Model
	// operators maps an operator's log name to its declaration.
	operators map[string]lexer.Position
	// report is the outcome of optimizing a copy of model.
	report *transforms.Report

	diagnostics []protocol.Diagnostic
}

// analyze parses text, then optimizes a second copy of the graph so that
// invariant violations show up in the editor before the CLI is ever run.
func analyze(path, text string, opts transforms.Options) *document {
	doc := &document{path: path, text: text, operators: make(map[string]lexer.Position)}

	file, err := graphtext.ParseAST(path, text)
	if err != nil {
		doc.diagnostics = parseDiagnostics(text, err)
		return doc
	}
	m, err := graphtext.Build(file)
	if err != nil {
		doc.diagnostics = parseDiagnostics(text, err)
		return doc
	}
	doc.model = m

	i := 0
	for _, stmt := range file.Stmts {
		if stmt.Op == nil {
			continue
		}
		doc.operators[m.LogName(m.OperatorAt(i))] = stmt.Op.Pos
		i++
	}

	scratch, err := graphtext.Build(file)
	if err != nil {
		return doc
	}
	ctx, cancel := context.WithTimeout(context.Background(), dryRunTimeout)
	defer cancel()

	report, err := transforms.NewPipeline(opts, transforms.DefaultTransformations()...).Run(ctx, scratch)
	doc.report = report
	if err != nil {
		doc.diagnostics = append(doc.diagnostics, optimizationDiagnostic(doc, err))
	} else if report.TotalApplied() > 0 {
		doc.diagnostics = append(doc.diagnostics, rewriteSummary(report))
	}
	return doc
}

// tokenAt returns the token covering the given zero-based position.
func (d *document) tokenAt(pos protocol.Position) (lexer.Token, bool) {
	for _, tok := range lexTokens(d.path, d.text) {
		line := uint32(tok.Pos.Line - 1)
		start := uint32(tok.Pos.Column - 1)
		if line == pos.Line && start <= pos.Character && pos.Character < start+utf16Len(tok.Value) {
			return tok, true
		}
	}
	return lexer.Token{}, false
}

// tokenBefore returns the last token ending at or before the position.
func (d *document) tokenBefore(pos protocol.Position) (lexer.Token, bool) {
	var found lexer.Token
	ok := false
	for _, tok := range lexTokens(d.path, d.text) {
		if tok.Type == commentType {
			continue
		}
		line := uint32(tok.Pos.Line - 1)
		end := uint32(tok.Pos.Column-1) + utf16Len(tok.Value)
		if line > pos.Line || (line == pos.Line && end > pos.Character) {
			break
		}
		found, ok = tok, true
	}
	return found, ok
}
