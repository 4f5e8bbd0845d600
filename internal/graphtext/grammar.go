package graphtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a whole graph description.
type File struct {
	Pos   lexer.Position
	Stmts []*Stmt `@@*`
}

type Stmt struct {
	Input  *InputDecl  `  @@`
	Output *OutputDecl `| @@`
	State  *StateDecl  `| @@`
	Array  *ArrayDecl  `| @@`
	Op     *OpDecl     `| @@`
}

// InputDecl pins a graph input: input x : float32 [1, 8]
type InputDecl struct {
	Pos  lexer.Position
	Name string    `"input" @Ident`
	Type *TypeSpec `[ ":" @@ ]`
}

// OutputDecl pins a graph output: output y
type OutputDecl struct {
	Pos  lexer.Position
	Name string `"output" @Ident`
}

// StateDecl pins a recurrent state and its back edge: state h <- h_next
type StateDecl struct {
	Pos      lexer.Position
	Name     string `"state" @Ident`
	BackEdge string `"<-" @Ident`
}

// ArrayDecl declares an array, optionally constant:
// array w : float32 [2] = [0.5, 1]
type ArrayDecl struct {
	Pos  lexer.Position
	Name string    `"array" @Ident`
	Type *TypeSpec `":" @@`
	Data *List     `[ "=" @@ ]`
}

type TypeSpec struct {
	Pos      lexer.Position
	DataType string     `@Ident`
	Shape    *ShapeSpec `@@?`
}

// ShapeSpec is a bracketed dimension list. Open is captured so that a
// rank-0 shape "[]" is told apart from a missing one.
type ShapeSpec struct {
	Open string `@"["`
	Dims []int  `[ @Int { "," @Int } ] "]"`
}

// OpDecl declares an operator: op Conv (in, w) -> out { padding = same }
type OpDecl struct {
	Pos     lexer.Position
	Type    string   `"op" @Ident`
	Inputs  []string `"(" [ @Ident { "," @Ident } ] ")"`
	Outputs []string `"->" @Ident { "," @Ident }`
	Attrs   []*Attr  `[ "{" [ @@ { "," @@ } ] "}" ]`
}

type Attr struct {
	Pos   lexer.Position
	Key   string `@Ident "="`
	Value *Value `@@`
}

type Value struct {
	Pos    lexer.Position
	Float  *float64 `  @Float`
	Int    *int64   `| @Int`
	String *string  `| @String`
	Ident  *string  `| @Ident`
	List   *List    `| @@`
}

type List struct {
	Open  string   `@"["`
	Items []*Value `[ @@ { "," @@ } ] "]"`
}
