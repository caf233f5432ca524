package lsp

import (
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"irx/grammar"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the semanticTokenTypes array
// TokenModifiers is a bitmask based on semanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into semanticTokenTypes
	TokenModifiers int // bitmask
}

var builtinType = regexp.MustCompile(`^(i[0-9]+|f64|ptr)$`)

var keywords = map[string]bool{
	"module":   true,
	"variadic": true,
	"benefit":  true,
	"version":  true,
	"requires": true,
	"with":     true,
	"unit":     true,
	"true":     true,
	"false":    true,
}

// collectSemanticTokens lexes a document and classifies its tokens. Lexing
// stops at the first invalid character; tokens before it are kept.
func collectSemanticTokens(filename, content string) []SemanticToken {
	var tokens []SemanticToken

	lex, err := grammar.IRLexer.Lex(filename, strings.NewReader(content))
	if err != nil {
		return tokens
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil && len(all) == 0 {
		return tokens
	}

	symbols := lexer.SymbolsByRune(grammar.IRLexer)
	var significant []lexer.Token
	for _, tok := range all {
		switch symbols[tok.Type] {
		case "Whitespace", "EOF":
			continue
		}
		significant = append(significant, tok)
	}

	for i, tok := range significant {
		var next string
		if i+1 < len(significant) {
			next = significant[i+1].Value
		}
		var tokenType string
		decl := 0
		switch symbols[tok.Type] {
		case "Comment":
			tokenType = "comment"
		case "String":
			tokenType = "string"
			if next == "(" {
				tokenType = "function" // Operation name
			}
		case "ValueID":
			tokenType = "variable"
			if next == "=" || next == ":" {
				decl = 1
			}
		case "BlockID":
			tokenType = "namespace"
		case "SymbolRef":
			tokenType = "function"
		case "DialectType":
			tokenType = "type"
		case "Float", "Int":
			tokenType = "number"
		case "Arrow":
			tokenType = "operator"
		case "Ident":
			switch {
			case builtinType.MatchString(tok.Value):
				tokenType = "type"
			case keywords[tok.Value] || strings.HasPrefix(tok.Value, "irdl.") || strings.HasPrefix(tok.Value, "pdl."):
				tokenType = "keyword"
			case next == "=":
				tokenType = "property" // Attribute name
			}
		}
		if tokenType != "" {
			tokens = append(tokens, makeToken(tok.Pos, tok.Value, tokenType, decl)...)
		}
	}

	return tokens
}

// makeToken creates a semantic token for a given position and text.
// Multi-line tokens are not produced by the lexer.
func makeToken(pos lexer.Position, value, tokenType string, declModifier int) []SemanticToken {
	if value == "" {
		return nil
	}

	return []SemanticToken{{
		Line:           uint32(pos.Line - 1),   // LSP uses 0-based line numbers
		StartChar:      uint32(pos.Column - 1), // LSP uses 0-based column numbers
		Length:         uint32(len(value)),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: declModifier << indexOf("declaration", SemanticTokenModifiers),
	}}
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0 // Default to first token type if not found
}
