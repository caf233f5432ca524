package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// Printer renders a module in the generic textual form:
//
//	module @name {
//	  %0 = "felt.add"(%arg0, %arg1) : (i32, i32) -> i32
//	}
//
// Values are renumbered on every print, so two equivalent modules print to
// the same text.
type Printer struct {
	indent int
	output strings.Builder

	m         *Module
	names     map[Value]string
	nextValue int
	nextArg   int
}

// NewPrinter creates a printer for m.
func NewPrinter(m *Module) *Printer {
	return &Printer{m: m, names: make(map[Value]string)}
}

// Print returns the textual form of m.
func Print(m *Module) string {
	p := NewPrinter(m)
	p.printModule()
	return p.output.String()
}

// PrintOp returns the textual form of a single operation, with operands
// named relative to the operation only.
func PrintOp(m *Module, op *Operation) string {
	p := NewPrinter(m)
	p.printOperation(op)
	return strings.TrimRight(p.output.String(), "\n")
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}

func (p *Printer) printModule() {
	if p.m.Name != "" {
		p.writeLine("module @%s {", p.m.Name)
	} else {
		p.writeLine("module {")
	}
	p.indent++
	for _, op := range p.m.Ops(p.m.Body()) {
		p.printOperation(op)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) valueName(v Value) string {
	if name, ok := p.names[v]; ok {
		return name
	}
	// Operands defined outside the printed scope (PrintOp) or dangling.
	return "%<" + v.String() + ">"
}

func (p *Printer) nameResults(op *Operation) string {
	if len(op.resultTypes) == 0 {
		return ""
	}
	base := fmt.Sprintf("%%%d", p.nextValue)
	p.nextValue++
	if len(op.resultTypes) == 1 {
		p.names[op.Result(0)] = base
		return base + " = "
	}
	for i := range op.resultTypes {
		p.names[op.Result(i)] = fmt.Sprintf("%s#%d", base, i)
	}
	return fmt.Sprintf("%s:%d = ", base, len(op.resultTypes))
}

func (p *Printer) printOperation(op *Operation) {
	operands := make([]string, len(op.operands))
	operandTypes := make([]Type, len(op.operands))
	for i, v := range op.operands {
		operands[i] = p.valueName(v)
		operandTypes[i] = p.m.TypeOf(v)
		if operandTypes[i] == nil {
			operandTypes[i] = &OpaqueType{Dialect: "invalid", Name: "value"}
		}
	}

	p.writeIndent()
	results := p.nameResults(op)
	p.write("%s%q(%s)", results, op.Name, strings.Join(operands, ", "))

	if len(op.regions) > 0 {
		p.write(" (")
		for i, r := range op.regions {
			if i > 0 {
				p.write(", ")
			}
			p.printRegion(r)
		}
		p.write(")")
	}
	if len(op.Attributes) > 0 {
		p.write(" %s", FormatAttributeDict(op.Attributes))
	}
	p.write(" : %s\n", Function(operandTypes, op.resultTypes))
}

func (p *Printer) printRegion(r *Region) {
	p.write("{\n")
	p.indent++
	for i, b := range r.blocks {
		args := make([]string, len(b.args))
		for j, t := range b.args {
			name := fmt.Sprintf("%%arg%d", p.nextArg)
			p.nextArg++
			p.names[b.Argument(j)] = name
			args[j] = name + ": " + t.String()
		}
		if i > 0 || len(b.args) > 0 || len(b.ops) == 0 {
			p.indent--
			if len(args) > 0 {
				p.writeLine("^bb%d(%s):", i, strings.Join(args, ", "))
			} else {
				p.writeLine("^bb%d:", i)
			}
			p.indent++
		}
		for _, op := range p.m.Ops(b) {
			p.printOperation(op)
		}
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

var bareAttrName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$.]*$`)

// FormatAttributeDict prints attrs sorted by name. Unit attributes print
// as their bare name.
func FormatAttributeDict(attrs map[string]Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, name := range SortedAttributeNames(attrs) {
		key := name
		if !bareAttrName.MatchString(name) {
			key = fmt.Sprintf("%q", name)
		}
		if _, unit := attrs[name].(*UnitAttr); unit {
			parts = append(parts, key)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = %s", key, attrs[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
