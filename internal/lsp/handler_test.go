package lsp_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"irx/internal/dialect"
	"irx/internal/lsp"
)

const constantModule = `module {
  %0 = "arith.constant"() {value = 1 : i32} : () -> i32
}
`

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewIRXHandler(dialect.NewBuiltinRegistry())

	absPath := filepath.Join(t.TempDir(), "constant.ir")
	require.NoError(t, os.WriteFile(absPath, []byte(constantModule), 0o644))

	uri := "file://" + filepath.ToSlash(absPath)

	ctx := &glsp.Context{}
	params := &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: uri,
		},
	}

	tokens, err := handler.TextDocumentSemanticTokensFull(ctx, params)
	require.NoError(t, err, "TextDocumentSemanticTokensFull returned error")
	require.NotNil(t, tokens, "Returned tokens should not be nil")

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err, "Failed to decode semantic tokens")
	require.Len(t, decoded, 8)

	assertToken(t, &decoded[0], 1, 1, 6, "keyword", nil)
	assertToken(t, &decoded[1], 2, 3, 2, "variable", []string{"declaration"})
	assertToken(t, &decoded[2], 2, 8, 16, "function", nil)
	assertToken(t, &decoded[3], 2, 28, 5, "property", nil)
	assertToken(t, &decoded[4], 2, 36, 1, "number", nil)
	assertToken(t, &decoded[5], 2, 40, 3, "type", nil)
	assertToken(t, &decoded[6], 2, 50, 2, "operator", nil)
	assertToken(t, &decoded[7], 2, 53, 3, "type", nil)
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	handler := lsp.NewIRXHandler(dialect.NewBuiltinRegistry())

	var published []*protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			assert.Equal(t, protocol.ServerTextDocumentPublishDiagnostics, method)
			published = append(published, params.(*protocol.PublishDiagnosticsParams))
		},
	}

	err := handler.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  "file:///work/bad.ir",
			Text: "module {\n  %0 = \"test.use\"(%9) : (i32) -> i32\n}\n",
		},
	})
	require.NoError(t, err)
	require.Len(t, published, 1)
	require.Len(t, published[0].Diagnostics, 1)

	d := published[0].Diagnostics[0]
	assert.Equal(t, uint32(1), d.Range.Start.Line)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, "E0002", d.Code.Value)
	assert.Contains(t, d.Message, "%9")

	// Fixing the document clears the diagnostics
	err = handler.TextDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///work/bad.ir"},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: constantModule}},
	})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Empty(t, published[1].Diagnostics)
}

func TestAnalyze(t *testing.T) {
	reg := dialect.NewBuiltinRegistry()

	diagnostics := lsp.Analyze("broken.ir", `module {
  %0 = "arith.constant"() {value = 1 : i32} : () -> i32
  %1 = "arith.addi"(%0) : (i32) -> i32
  %2 = "arith.addj"(%0, %0) : (i32, i32) -> i32
}`, reg)
	require.Len(t, diagnostics, 2)

	assert.Equal(t, "E0200", diagnostics[0].Code.Value)
	assert.Equal(t, uint32(2), diagnostics[0].Range.Start.Line)
	assert.Equal(t, protocol.DiagnosticSeverityError, *diagnostics[0].Severity)

	assert.Equal(t, "E0101", diagnostics[1].Code.Value)
	assert.Equal(t, uint32(3), diagnostics[1].Range.Start.Line)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diagnostics[1].Severity)
	assert.Contains(t, diagnostics[1].Message, "did you mean")

	diagnostics = lsp.Analyze("bad.pdl", `pdl.pattern @p {
  %root = pdl.operation "felt.add"
  pdl.rewrite %root {
    pdl.replace %root by %root
  }
}`, reg)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "E0001", diagnostics[0].Code.Value)
	assert.Equal(t, "irx-pdl", *diagnostics[0].Source)

	assert.Empty(t, lsp.Analyze("ok.ir", constantModule, reg))
}

func TestCompletion(t *testing.T) {
	handler := lsp.NewIRXHandler(dialect.NewBuiltinRegistry())
	result, err := handler.TextDocumentCompletion(&glsp.Context{}, &protocol.CompletionParams{})
	require.NoError(t, err)

	list := result.(*protocol.CompletionList)
	labels := map[string]string{}
	for _, item := range list.Items {
		detail := ""
		if item.Detail != nil {
			detail = *item.Detail
		}
		labels[item.Label] = detail
	}
	assert.Equal(t, "integer addition", labels["arith.addi"])
	assert.Contains(t, labels, "func.return")
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1, // LSP uses 0-based indexing
			Char:      char + 1, // LSP uses 0-based indexing
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
