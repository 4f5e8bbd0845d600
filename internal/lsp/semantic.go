package lsp

import (
	"unicode/utf16"

	"github.com/alecthomas/participle/v2/lexer"

	"graphopt/internal/graphtext"
	"graphopt/internal/model"
)

// SemanticTokenTypes is the token type legend advertised to clients.
var SemanticTokenTypes = []string{
	"keyword",
	"type",
	"function",
	"variable",
	"property",
	"enumMember",
	"number",
	"string",
	"comment",
	"operator",
}

// SemanticTokenModifiers is the modifier legend advertised to clients.
var SemanticTokenModifiers = []string{
	"declaration",
	"readonly",
}

const (
	modDeclaration = 1 << iota
	modReadonly
)

var (
	symbols        = graphtext.GraphLexer.Symbols()
	commentType    = symbols["Comment"]
	whitespaceType = symbols["Whitespace"]
	identType      = symbols["Ident"]
	punctType      = symbols["Punct"]
	stringType     = symbols["String"]
	intType        = symbols["Int"]
	floatType      = symbols["Float"]
)

var keywords = map[string]bool{
	"input":  true,
	"output": true,
	"state":  true,
	"array":  true,
	"op":     true,
}

// SemanticToken represents a single LSP semantic token entry.
// Line and StartChar are 0-based positions.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into SemanticTokenTypes
	TokenModifiers int // bitmask over SemanticTokenModifiers
}

// lexTokens returns every token of text except whitespace, stopping at the
// first character the lexer rejects.
func lexTokens(path, text string) []lexer.Token {
	lex, err := graphtext.GraphLexer.LexString(path, text)
	if err != nil {
		return nil
	}
	var tokens []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return tokens
		}
		if tok.Type != whitespaceType {
			tokens = append(tokens, tok)
		}
	}
}

// collectSemanticTokens classifies the tokens of a graph file. Array names
// backed by constant data in m are marked readonly; m may be nil.
func collectSemanticTokens(path, text string, m *model.Model) []SemanticToken {
	tokens := lexTokens(path, text)
	var result []SemanticToken

	var prev lexer.Token
	inAttrs, inOutputs := false, false
	for i, tok := range tokens {
		kind, mods := "", 0
		switch tok.Type {
		case commentType:
			result = append(result, makeToken(tok, "comment", 0))
			continue
		case intType, floatType:
			kind = "number"
		case stringType:
			kind = "string"
		case punctType:
			switch tok.Value {
			case "->":
				kind = "operator"
				inOutputs = true
			case "<-", "=":
				kind = "operator"
			case "{":
				inAttrs, inOutputs = true, false
			case "}":
				inAttrs = false
			}
		case identType:
			kind, mods = classifyIdent(tok, prev, nextCode(tokens, i), inAttrs, inOutputs)
			if kind == "keyword" {
				inOutputs = false
			}
			if kind == "variable" && m != nil && m.IsConstantParameterArray(tok.Value) {
				mods |= modReadonly
			}
		}
		if kind != "" {
			result = append(result, makeToken(tok, kind, mods))
		}
		prev = tok
	}
	return result
}

func classifyIdent(tok, prev, next lexer.Token, inAttrs, inOutputs bool) (string, int) {
	switch {
	case keywords[tok.Value] && !inAttrs:
		return "keyword", 0
	case prev.Value == "op" && prev.Type == identType:
		return "function", 0
	case prev.Value == ":" && prev.Type == punctType:
		return "type", 0
	case inAttrs && next.Value == "=" && next.Type == punctType:
		return "property", 0
	case inAttrs:
		return "enumMember", 0
	}

	if prev.Type == identType && (prev.Value == "input" || prev.Value == "array" || prev.Value == "state") {
		return "variable", modDeclaration
	}
	if inOutputs {
		return "variable", modDeclaration
	}
	return "variable", 0
}

// nextCode returns the first token after i that is not a comment.
func nextCode(tokens []lexer.Token, i int) lexer.Token {
	for _, tok := range tokens[i+1:] {
		if tok.Type != commentType {
			return tok
		}
	}
	return lexer.Token{}
}

func makeToken(tok lexer.Token, kind string, mods int) SemanticToken {
	return SemanticToken{
		Line:           uint32(tok.Pos.Line - 1),
		StartChar:      uint32(tok.Pos.Column - 1),
		Length:         utf16Len(tok.Value),
		TokenType:      tokenTypeIndex(kind),
		TokenModifiers: mods,
	}
}

func tokenTypeIndex(kind string) int {
	for i, t := range SemanticTokenTypes {
		if t == kind {
			return i
		}
	}
	return -1
}

// encodeSemanticTokens packs tokens into the LSP relative wire format.
func encodeSemanticTokens(tokens []SemanticToken) []uint32 {
	var data []uint32
	var prevLine, prevStart uint32

	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		deltaStart := token.StartChar
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}
	return data
}

func utf16Len(s string) uint32 {
	return uint32(len(utf16.Encode([]rune(s))))
}
