// Package graphtext reads and writes models in a small line-oriented text
// notation used by tests and by the command line tool.
package graphtext

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"graphopt/internal/model"
)

var parser = participle.MustBuild[File](
	participle.Lexer(GraphLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// ParseAST parses source into its syntax tree without building a model.
func ParseAST(filename, source string) (*File, error) {
	return parser.ParseString(filename, source)
}

// Parse builds a model from source. Syntax errors and semantic errors (an
// unknown operator, a malformed constant) are both reported as
// participle.Error values carrying the offending position.
func Parse(filename, source string) (*model.Model, error) {
	file, err := ParseAST(filename, source)
	if err != nil {
		return nil, err
	}
	return Build(file)
}

// MustParse is Parse for fixtures known to be valid; it panics otherwise.
func MustParse(source string) *model.Model {
	m, err := Parse("<fixture>", source)
	if err != nil {
		panic(err)
	}
	return m
}

// FormatParseError renders a caret-style report for an error returned by
// Parse.
func FormatParseError(src string, err error) string {
	var pe participle.Error
	if !errors.As(err, &pe) {
		return color.RedString("Unexpected error: %s", err)
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		return color.RedString("Syntax error at unknown location: %s", err)
	}

	line := lines[pos.Line-1]
	column := max(pos.Column, 1)
	caret := strings.Repeat(" ", column-1) + "^"

	var b strings.Builder
	b.WriteString(color.RedString("error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column))
	b.WriteString("\n")
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(color.HiRedString(caret))
	b.WriteString("\n")
	fmt.Fprintf(&b, "→ %s\n", pe.Message())
	return b.String()
}
