package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// IRDLFile holds one or more dialect definitions:
//
//	irdl.dialect @felt version "v0.1.0" {
//	  irdl.type @felt
//	  irdl.operation @add {
//	    %0 = irdl.is i32
//	    irdl.operands(lhs: %0, rhs: %0)
//	    irdl.results(res: %0)
//	  }
//	}
type IRDLFile struct {
	Dialects []*IRDLDialect `@@*`
}

type IRDLDialect struct {
	Pos      lexer.Position
	Name     string      `"irdl.dialect" @SymbolRef`
	Version  string      `( "version" @String )?`
	Requires []string    `( "requires" "[" ( @String ( "," @String )* )? "]" )?`
	Items    []*IRDLItem `"{" @@* "}"`
}

type IRDLItem struct {
	Pos       lexer.Position
	Type      *IRDLType      `  @@`
	Operation *IRDLOperation `| @@`
}

type IRDLType struct {
	Pos  lexer.Position
	Name string `"irdl.type" @SymbolRef`
}

type IRDLOperation struct {
	Pos        lexer.Position
	Name       string           `"irdl.operation" @SymbolRef "{"`
	Statements []*IRDLStatement `@@* "}"`
}

type IRDLStatement struct {
	Pos        lexer.Position
	Constraint *IRDLConstraint `  @@`
	Segments   *IRDLSegments   `| @@`
	Attributes *IRDLAttributes `| @@`
	Traits     *IRDLTraits     `| @@`
}

// IRDLConstraint binds a type constraint to a value name.
type IRDLConstraint struct {
	Pos   lexer.Position
	Name  string   `@ValueID "="`
	Is    *Type    `( "irdl.is" @@`
	Any   bool     `| @"irdl.any"`
	AnyOf []string `| "irdl.any_of" "(" @ValueID ( "," @ValueID )* ")"`
	Base  string   `| "irdl.base" @( DialectType | String ) )`
}

// IRDLSegments is irdl.operands(...) or irdl.results(...).
type IRDLSegments struct {
	Pos  lexer.Position
	Kind string     `@( "irdl.operands" | "irdl.results" ) "("`
	Args []*IRDLArg `( @@ ( "," @@ )* )? ")"`
}

type IRDLArg struct {
	Pos         lexer.Position
	Name        string `@Ident ":"`
	Variadicity string `@( "single" | "optional" | "variadic" )?`
	Constraint  string `@ValueID`
}

type IRDLAttributes struct {
	Pos     lexer.Position
	Keyword string           `@"irdl.attributes" "{"`
	Entries []*IRDLAttrEntry `( @@ ( "," @@ )* )? "}"`
}

type IRDLAttrEntry struct {
	Pos        lexer.Position
	Name       string `( @String | @Ident ) "="`
	Constraint string `@ValueID`
}

type IRDLTraits struct {
	Pos     lexer.Position
	Keyword string   `@"irdl.traits" "["`
	Names   []string `( @Ident ( "," @Ident )* )? "]"`
}
