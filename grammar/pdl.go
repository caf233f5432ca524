package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// PDLFile holds rewrite patterns:
//
//	pdl.pattern @add_to_addi : benefit(1) {
//	  %t = pdl.type
//	  %a = pdl.operand
//	  %b = pdl.operand
//	  %root = pdl.operation "felt.add"(%a, %b) -> (%t)
//	  pdl.rewrite %root {
//	    %new = pdl.operation "arith.addi"(%a, %b) -> (%t)
//	    pdl.replace %root with %new
//	  }
//	}
type PDLFile struct {
	Patterns []*PDLPattern `@@*`
}

type PDLPattern struct {
	Pos     lexer.Position
	Name    string          `"pdl.pattern" @SymbolRef?`
	Benefit int             `( ":" "benefit" "(" @Int ")" )? "{"`
	Match   []*PDLStatement `@@*`
	Rewrite *PDLRewrite     `@@ "}"`
}

type PDLRewrite struct {
	Pos        lexer.Position
	Root       string          `"pdl.rewrite" @ValueID? "{"`
	Statements []*PDLStatement `@@* "}"`
}

type PDLStatement struct {
	Pos       lexer.Position
	Name      string        `( @ValueID "=" )?`
	Type      *PDLType      `( @@`
	Operand   *PDLOperand   `| @@`
	Attribute *PDLAttribute `| @@`
	Operation *PDLOperation `| @@`
	Result    *PDLResult    `| @@`
	Replace   *PDLReplace   `| @@`
	Erase     *PDLErase     `| @@ )`
}

// PDLType is pdl.type, optionally fixed to a concrete type.
type PDLType struct {
	Pos     lexer.Position
	Keyword string `@"pdl.type"`
	Type    *Type  `( ":" @@ )?`
}

// PDLOperand is pdl.operand, optionally constrained by a type handle.
type PDLOperand struct {
	Pos     lexer.Position
	Keyword string `@"pdl.operand"`
	Type    string `( ":" @ValueID )?`
}

// PDLAttribute is pdl.attribute, optionally fixed to a value.
type PDLAttribute struct {
	Pos     lexer.Position
	Keyword string     `@"pdl.attribute"`
	Value   *Attribute `( "=" @@ )?`
}

type PDLOperation struct {
	Pos          lexer.Position
	Keyword      string             `@"pdl.operation"`
	OpName       string             `@String?`
	Operands     []string           `( "(" ( @ValueID ( "," @ValueID )* )?`
	OperandTypes []*Type            `  ( ":" @@ ( "," @@ )* )? ")" )?`
	Attributes   []*PDLAttrBinding  `( "{" ( @@ ( "," @@ )* )? "}" )?`
	Results      []string           `( "->" "(" ( @ValueID ( "," @ValueID )* )?`
	ResultTypes  []*Type            `  ( ":" @@ ( "," @@ )* )? ")" )?`
}

type PDLAttrBinding struct {
	Pos    lexer.Position
	Name   string `( @String | @Ident ) "="`
	Handle string `@ValueID`
}

// PDLResult is pdl.result N of %op.
type PDLResult struct {
	Pos   lexer.Position
	Index int    `"pdl.result" @Int`
	Op    string `"of" @ValueID`
}

// PDLReplace replaces an operation by another operation or by values.
type PDLReplace struct {
	Pos    lexer.Position
	Op     string   `"pdl.replace" @ValueID "with"`
	With   string   `( @ValueID`
	Values []string `| "(" ( @ValueID ( "," @ValueID )* )? ")" )`
}

type PDLErase struct {
	Pos lexer.Position
	Op  string `"pdl.erase" @ValueID`
}
