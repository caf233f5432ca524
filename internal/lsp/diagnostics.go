package lsp

import (
	"fmt"
	"path/filepath"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/multierr"

	"irx/internal/asm"
	"irx/internal/dialect"
	irxerrors "irx/internal/errors"
	"irx/internal/ir"
	"irx/internal/irdl"
	"irx/internal/pdl"
	"irx/internal/transform"
)

// Analyze parses a document by its extension and returns its diagnostics.
// Modules that parse are also verified against reg; operations without a
// registered definition are reported as warnings.
func Analyze(path, content string, reg *dialect.Registry) []protocol.Diagnostic {
	switch filepath.Ext(path) {
	case ".irdl":
		_, err := irdl.Parse(path, content)
		return ConvertErrors(err, reg, "irx-irdl")
	case ".pdl":
		_, err := pdl.Parse(path, content)
		return ConvertErrors(err, reg, "irx-pdl")
	}

	m, err := asm.ParseModule(path, content)
	if err != nil {
		return ConvertErrors(err, reg, "irx-parser")
	}
	diagnostics := ConvertErrors(transform.Verify(m, reg).Err(), reg, "irx-verifier")
	return append(diagnostics, unregisteredOperations(m, reg)...)
}

// ConvertErrors transforms errors, possibly combined with multierr, into LSP
// diagnostics for IDE display.
func ConvertErrors(err error, reg *dialect.Registry, source string) []protocol.Diagnostic {
	var known []string
	if reg != nil {
		known = reg.OperationNames()
	}
	var diagnostics []protocol.Diagnostic
	for _, e := range multierr.Errors(err) {
		diagnostics = append(diagnostics, convertDiagnostic(irxerrors.Diagnose(e, known), source))
	}
	return diagnostics
}

func convertDiagnostic(d irxerrors.Diagnostic, source string) protocol.Diagnostic {
	line, column := d.Position.Line-1, d.Position.Column-1 // Convert to 0-based indexing
	if line < 0 {
		line = 0
	}
	if column < 0 {
		column = 0
	}
	length := d.Length
	if length <= 0 {
		length = 1
	}

	severity := protocol.DiagnosticSeverityError
	if d.Level == irxerrors.Warning {
		severity = protocol.DiagnosticSeverityWarning
	}

	message := d.Message
	for _, suggestion := range d.Suggestions {
		message += "\n" + suggestion
	}
	if d.HelpText != "" {
		message += "\n" + d.HelpText
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(line), Character: uint32(column)},
			End:   protocol.Position{Line: uint32(line), Character: uint32(column + length)},
		},
		Severity: ptrSeverity(severity),
		Code:     &protocol.IntegerOrString{Value: d.Code},
		Source:   ptrString(source),
		Message:  message,
	}
}

func unregisteredOperations(m *ir.Module, reg *dialect.Registry) []protocol.Diagnostic {
	if reg == nil {
		return nil
	}
	known := reg.OperationNames()
	var diagnostics []protocol.Diagnostic
	m.Walk(func(op *ir.Operation) bool {
		_, err := reg.Lookup(op.Name)
		if nf, ok := err.(*dialect.NotFoundError); ok {
			d := irxerrors.UnknownOperation(nf, irxerrors.PositionOf(op.Loc), known)
			d.Level = irxerrors.Warning
			d.Length = len(fmt.Sprintf("%q", op.Name))
			diagnostics = append(diagnostics, convertDiagnostic(d, "irx-verifier"))
		}
		return true
	})
	return diagnostics
}
