package errors

// Error codes of the irx tools. The codes appear in diagnostics and stay
// stable across releases.
//
// Error code ranges:
// E0001-E0099: Textual form errors (IR, IRDL, PDL)
// E0100-E0199: Dialect registry errors
// E0200-E0299: Verification errors
// E0300-E0399: Rewrite errors
// E0800-E0899: Warning codes

const (
	// E0001: Syntax errors in any of the textual forms
	ErrorSyntax = "E0001"

	// E0002: Reference to an undefined value or handle
	ErrorUndefinedValue = "E0002"

	// E0003: Operation that cannot be built (bad name, unreachable operand)
	ErrorMalformedOperation = "E0003"

	// E0100: Dialect registered twice
	ErrorDuplicateDialect = "E0100"

	// E0101: Operation, dialect or type without a registered definition
	ErrorUnknownOperation = "E0101"

	// E0102: Dialect depends on a missing or too old dialect
	ErrorMissingRequirement = "E0102"

	// E0103: Registration after the registry was frozen
	ErrorFrozenRegistry = "E0103"

	// E0200: Operation does not satisfy its definition
	ErrorConstraintViolation = "E0200"

	// E0201: Operand not visible at its use
	ErrorScoping = "E0201"

	// E0300: Rewrite leaving the module inconsistent
	ErrorInvalidRewrite = "E0300"

	// E0301: Pattern failed while rewriting
	ErrorPatternFailure = "E0301"

	// E0400: Generic error (no specific code)
	ErrorGeneric = "E0400"

	// Warning codes

	// W0001: Greedy rewriting stopped before reaching a fixpoint
	WarningMaxIterations = "W0001"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorSyntax:
		return "Input does not follow the grammar of its textual form"
	case ErrorUndefinedValue:
		return "Value or handle is used but never defined"
	case ErrorMalformedOperation:
		return "Operation cannot be built"
	case ErrorDuplicateDialect:
		return "Dialect is already registered"
	case ErrorUnknownOperation:
		return "No registered definition for this operation, dialect or type"
	case ErrorMissingRequirement:
		return "A required dialect is missing or too old"
	case ErrorFrozenRegistry:
		return "Registry is frozen"
	case ErrorConstraintViolation:
		return "Operation does not satisfy its definition"
	case ErrorScoping:
		return "Operand is not visible where it is used"
	case ErrorInvalidRewrite:
		return "Rewrite would leave the module inconsistent"
	case ErrorPatternFailure:
		return "Pattern failed while rewriting"
	case ErrorGeneric:
		return "Error"
	case WarningMaxIterations:
		return "Rewriting stopped before reaching a fixpoint"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return code != "" && (code[0] == 'W' || code >= "E0800" && code < "E0900")
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code == "":
		return "Unknown"
	case code[0] == 'W':
		return "Warning"
	case code >= "E0001" && code < "E0100":
		return "Textual Form"
	case code >= "E0100" && code < "E0200":
		return "Dialect Registry"
	case code >= "E0200" && code < "E0300":
		return "Verification"
	case code >= "E0300" && code < "E0400":
		return "Rewrite"
	case code >= "E0800" && code < "E0900":
		return "Warning"
	default:
		return "Unknown"
	}
}
