package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Module is a whole textual module:
//
//	module @name {
//	  %0 = "felt.add"(%arg0, %arg1) : (i32, i32) -> i32
//	}
type Module struct {
	Pos        lexer.Position
	Name       string       `"module" @SymbolRef? "{"`
	Operations []*Operation `@@* "}"`
}

// Operation is an operation in generic form.
type Operation struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Results    *ResultGroup  `( @@ "=" )?`
	Name       string        `@String`
	Operands   []string      `"(" ( @ValueID ( "," @ValueID )* )? ")"`
	Regions    []*Region     `( "(" @@ ( "," @@ )* ")" )?`
	Attributes *AttrDict     `@@?`
	Type       *FunctionType `":" @@`
}

// ResultGroup names the results of an operation: %0 or %0:2.
type ResultGroup struct {
	Pos   lexer.Position
	Name  string `@ValueID`
	Count int    `( ":" @Int )?`
}

// Region holds the operations of its entry block (when the label is
// elided) followed by labelled blocks.
type Region struct {
	Pos    lexer.Position
	Open   string       `@"{"`
	Entry  []*Operation `@@*`
	Blocks []*Block     `@@* "}"`
}

type Block struct {
	Pos        lexer.Position
	Label      string       `@BlockID`
	Arguments  []*BlockArg  `( "(" ( @@ ( "," @@ )* )? ")" )? ":"`
	Operations []*Operation `@@*`
}

type BlockArg struct {
	Pos  lexer.Position
	Name string `@ValueID ":"`
	Type *Type  `@@`
}

type AttrDict struct {
	Pos     lexer.Position
	Open    string       `@"{"`
	Entries []*AttrEntry `( @@ ( "," @@ )* )? "}"`
}

// AttrEntry is name = value, or a bare name for a unit attribute.
type AttrEntry struct {
	Pos   lexer.Position
	Name  string     `( @Ident | @String )`
	Value *Attribute `( "=" @@ )?`
}

// Type is i32, f64, ptr, !dialect.name or a function type.
type Type struct {
	Pos      lexer.Position
	Function *FunctionType `  @@`
	Dialect  string        `| @DialectType`
	Name     string        `| @Ident`
}

type FunctionType struct {
	Pos     lexer.Position
	Inputs  []*Type `"(" ( @@ ( "," @@ )* )? ")" "->"`
	Results []*Type `( "(" ( @@ ( "," @@ )* )? ")" | @@ )`
}

// Attribute is a literal attribute value.
type Attribute struct {
	Pos    lexer.Position
	Float  *FloatLiteral `  @@`
	Int    *IntLiteral   `| @@`
	String *string       `| @String`
	Symbol *string       `| @SymbolRef`
	Array  *ArrayLiteral `| @@`
	Bool   *string       `| @( "true" | "false" )`
	Unit   bool          `| @"unit"`
	Type   *Type         `| @@`
}

type IntLiteral struct {
	Pos   lexer.Position
	Value string `@Int`
	Type  *Type  `( ":" @@ )?`
}

type FloatLiteral struct {
	Pos   lexer.Position
	Value string `@Float`
	Type  *Type  `( ":" @@ )?`
}

type ArrayLiteral struct {
	Pos      lexer.Position
	Open     string       `@"["`
	Elements []*Attribute `( @@ ( "," @@ )* )? "]"`
}
