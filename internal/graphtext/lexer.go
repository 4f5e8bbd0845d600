package graphtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var GraphLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `#[^\n]*`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},

		// Numbers (floats before integers)
		{"Float", `-?[0-9]+\.[0-9]*([eE][-+]?[0-9]+)?|-?[0-9]+[eE][-+]?[0-9]+`, nil},
		{"Int", `-?[0-9]+`, nil},

		{"String", `"(\\.|[^"\\])*"`, nil},

		// Array and operator names may carry scope separators.
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_/.]*`, nil},

		// Punctuation
		{"Punct", `<-|->|[()\[\]{},:=]`, nil},
	},
})
