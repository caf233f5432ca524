package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// IRLexer tokenizes the generic IR form as well as IRDL and PDL text.
// Identifiers may contain dots so that qualified keywords such as
// irdl.operation or pdl.type lex as a single token.
var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `//[^\n]*`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},

		// Quoted strings (operation names, string attributes)
		{"String", `"(\\.|[^"\\])*"`, nil},

		// Sigils
		{"ValueID", `%[a-zA-Z0-9_$.]+(#[0-9]+)?`, nil},
		{"BlockID", `\^[a-zA-Z0-9_$.]+`, nil},
		{"SymbolRef", `@[a-zA-Z0-9_$.]+`, nil},
		{"DialectType", `![a-zA-Z_][a-zA-Z0-9_$.]*`, nil},

		// Must come before the number rules
		{"Arrow", `->`, nil},

		// Number literals (float before integer)
		{"Float", `-?[0-9]+\.[0-9]*([eE][-+]?[0-9]+)?`, nil},
		{"Int", `-?(0x[0-9a-fA-F]+|[0-9]+)`, nil},

		// Keywords and Identifiers
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_$.]*`, nil},

		// Punctuation
		{"Punct", `[{}()\[\]<>,:=*#|]`, nil},
	},
})

// Position is a source position of a parsed node.
type Position = lexer.Position
