package graphtext

import (
	"fmt"
	"strconv"
	"strings"

	"graphopt/internal/model"
)

// Printer renders a model in the text notation
type Printer struct {
	output strings.Builder
}

// NewPrinter creates a new printer
func NewPrinter() *Printer {
	return &Printer{}
}

// Print returns the text form of m. Parsing it yields a model with the same
// pins, arrays, constants and operators.
func Print(m *model.Model) string {
	p := NewPrinter()
	p.printModel(m)
	return p.output.String()
}

func (p *Printer) writeLine(format string, args ...any) {
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printModel(m *model.Model) {
	for _, name := range m.Flags.InputArrays {
		a, ok := m.FindArray(name)
		if !ok || (a.DataType == model.DataTypeNone && !a.HasShape()) {
			p.writeLine("input %s", name)
			continue
		}
		p.writeLine("input %s : %s", name, typeSpec(a))
	}
	for _, name := range m.Flags.OutputArrays {
		p.writeLine("output %s", name)
	}
	for _, s := range m.Flags.RNNStates {
		p.writeLine("state %s <- %s", s.StateArray, s.BackEdgeSourceArray)
	}

	referenced := make(map[string]bool)
	for _, op := range m.Operators() {
		for _, name := range op.Inputs {
			referenced[name] = true
		}
		for _, name := range op.Outputs {
			referenced[name] = true
		}
	}

	for _, name := range m.ArrayNames() {
		if m.IsInputArray(name) {
			continue
		}
		a := m.GetArray(name)
		described := a.DataType != model.DataTypeNone || a.HasShape() || a.Buffer != nil
		if !described && (referenced[name] || !m.IsDiscardableArray(name)) {
			continue
		}
		p.printArray(a)
	}

	for _, op := range m.Operators() {
		p.printOperator(op)
	}
}

func (p *Printer) printArray(a *model.Array) {
	line := fmt.Sprintf("array %s : %s", a.Name, typeSpec(a))
	if a.Buffer != nil {
		line += " = " + formatBuffer(a.Buffer)
	}
	p.writeLine("%s", line)
	if a.MinMax != nil {
		p.writeLine("# %s: min = %g, max = %g", a.Name, a.MinMax.Min, a.MinMax.Max)
	}
	if a.Quantization != nil {
		p.writeLine("# %s: scale = %g, zero_point = %d", a.Name, a.Quantization.Scale, a.Quantization.ZeroPoint)
	}
}

func (p *Printer) printOperator(op *model.Operator) {
	line := fmt.Sprintf("op %s (%s) -> %s", op.Type, strings.Join(op.Inputs, ", "), strings.Join(op.Outputs, ", "))
	if attrs := formatAttrs(op); len(attrs) > 0 {
		line += " { " + strings.Join(attrs, ", ") + " }"
	}
	p.writeLine("%s", line)
}

func typeSpec(a *model.Array) string {
	if a.Shape == nil {
		return a.DataType.String()
	}
	return a.DataType.String() + " " + a.Shape.String()
}

func formatBuffer(b model.Buffer) string {
	var items []string
	switch b := b.(type) {
	case *model.FloatBuffer:
		for _, v := range b.Data {
			items = append(items, formatFloat(v))
		}
	case *model.Int32Buffer:
		for _, v := range b.Data {
			items = append(items, strconv.FormatInt(int64(v), 10))
		}
	case *model.Uint8Buffer:
		for _, v := range b.Data {
			items = append(items, strconv.FormatUint(uint64(v), 10))
		}
	case *model.StringBuffer:
		for _, v := range b.Data {
			items = append(items, strconv.Quote(v))
		}
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// formatFloat prints the shortest text that parses back to v.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
