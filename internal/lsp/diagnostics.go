package lsp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	pkgerrors "github.com/pkg/errors"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"graphopt/internal/errors"
	"graphopt/internal/transforms"
)

const (
	sourceParser    = "graphopt-parser"
	sourceOptimizer = "graphopt"
)

// parseDiagnostics converts an error returned while parsing or building a
// graph into a diagnostic spanning the offending word.
func parseDiagnostics(text string, err error) []protocol.Diagnostic {
	var pe participle.Error
	if !pkgerrors.As(err, &pe) {
		return []protocol.Diagnostic{{
			Range:    lineRange(text, 0),
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString(sourceParser),
			Message:  err.Error(),
		}}
	}

	return []protocol.Diagnostic{{
		Range:    wordRange(text, pe.Position()),
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(sourceParser),
		Message:  pe.Message(),
	}}
}

// optimizationDiagnostic reports an aborted optimization run at the operator
// the failing transformation was rewriting, or on the first line when the
// failure is not tied to a declared operator.
func optimizationDiagnostic(doc *document, err error) protocol.Diagnostic {
	diagnostic := protocol.Diagnostic{
		Range:    lineRange(doc.text, 0),
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(sourceOptimizer),
		Message:  err.Error(),
	}

	var violation *errors.InvariantError
	if !errors.As(err, &violation) {
		return diagnostic
	}
	diagnostic.Code = &protocol.IntegerOrString{Value: violation.Code}
	diagnostic.Message = violation.Message
	if violation.Transformation != "" {
		diagnostic.Message += fmt.Sprintf(" (%s)", violation.Transformation)
	}
	if pos, ok := doc.operators[violation.Operator]; ok {
		diagnostic.Range = lineRange(doc.text, uint32(pos.Line-1))
	}
	return diagnostic
}

// rewriteSummary tells the user which rewrites the optimizer would apply.
func rewriteSummary(report *transforms.Report) protocol.Diagnostic {
	names := make([]string, 0, len(report.Applied))
	for name, n := range report.Applied {
		names = append(names, fmt.Sprintf("%s x%d", name, n))
	}
	slices.Sort(names)

	return protocol.Diagnostic{
		Range:    protocol.Range{},
		Severity: ptrSeverity(protocol.DiagnosticSeverityHint),
		Source:   ptrString(sourceOptimizer),
		Message:  fmt.Sprintf("%d rewrite(s) apply: %s", report.TotalApplied(), strings.Join(names, ", ")),
	}
}

// lineRange covers a whole zero-based line.
func lineRange(text string, line uint32) protocol.Range {
	lines := strings.Split(text, "\n")
	end := uint32(0)
	if int(line) < len(lines) {
		end = utf16Len(lines[line])
	}
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: 0},
		End:   protocol.Position{Line: line, Character: end},
	}
}

// wordRange covers the run of non-blank characters starting at pos.
func wordRange(text string, pos lexer.Position) protocol.Range {
	line := uint32(max(pos.Line-1, 0))
	start := uint32(max(pos.Column-1, 0))
	end := start + 1

	lines := strings.Split(text, "\n")
	if int(line) < len(lines) {
		runes := []rune(lines[line])
		i := int(start)
		for i < len(runes) && runes[i] != ' ' && runes[i] != '\t' {
			i++
		}
		if i > int(start) {
			end = utf16Len(string(runes[:i]))
			start = utf16Len(string(runes[:start]))
		}
	}
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: end},
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
