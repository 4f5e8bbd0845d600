package graphtext

import (
	"math"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"graphopt/internal/model"
)

// Build turns a parsed file into a model. Declarations may come in any
// order; operators are appended in the order they appear. The file is not
// modified, so one syntax tree can be built any number of times.
func Build(file *File) (*model.Model, error) {
	m := model.New()
	for _, stmt := range file.Stmts {
		var err error
		switch {
		case stmt.Input != nil:
			err = buildInput(m, stmt.Input)
		case stmt.Output != nil:
			m.GetOrCreateArray(stmt.Output.Name)
			m.Flags.OutputArrays = append(m.Flags.OutputArrays, stmt.Output.Name)
		case stmt.State != nil:
			m.GetOrCreateArray(stmt.State.Name)
			m.GetOrCreateArray(stmt.State.BackEdge)
			m.Flags.RNNStates = append(m.Flags.RNNStates, model.RNNState{
				StateArray:          stmt.State.Name,
				BackEdgeSourceArray: stmt.State.BackEdge,
			})
		case stmt.Array != nil:
			err = buildArray(m, stmt.Array)
		case stmt.Op != nil:
			err = buildOp(m, stmt.Op)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := m.Check(); err != nil {
		return nil, participle.Errorf(file.Pos, "%s", err)
	}
	return m, nil
}

func buildInput(m *model.Model, decl *InputDecl) error {
	a := m.GetOrCreateArray(decl.Name)
	if decl.Type != nil {
		if err := applyType(a, decl.Type); err != nil {
			return err
		}
	}
	m.Flags.InputArrays = append(m.Flags.InputArrays, decl.Name)
	return nil
}

func applyType(a *model.Array, spec *TypeSpec) error {
	t, ok := model.ParseDataType(spec.DataType)
	if !ok {
		return participle.Errorf(spec.Pos, "unknown data type %q", spec.DataType)
	}
	a.DataType = t
	if spec.Shape != nil {
		a.SetShape(spec.Shape.Dims...)
	}
	return nil
}

func buildArray(m *model.Model, decl *ArrayDecl) error {
	if m.HasArray(decl.Name) && m.GetArray(decl.Name).Buffer != nil {
		return participle.Errorf(decl.Pos, "array %q is declared twice", decl.Name)
	}
	a := m.GetOrCreateArray(decl.Name)
	if err := applyType(a, decl.Type); err != nil {
		return err
	}
	if decl.Data == nil {
		return nil
	}
	if err := fillBuffer(a, decl.Data, decl.Pos); err != nil {
		return err
	}
	if a.HasShape() {
		want := 1
		for _, d := range *a.Shape {
			want *= d
		}
		if a.Buffer.Len() != want {
			return participle.Errorf(decl.Pos, "array %q has shape %s but %d values", decl.Name, *a.Shape, a.Buffer.Len())
		}
	}
	return nil
}

func fillBuffer(a *model.Array, data *List, pos lexer.Position) error {
	switch a.DataType {
	case model.Float32:
		values := make([]float32, 0, len(data.Items))
		for _, item := range data.Items {
			f, err := item.number()
			if err != nil {
				return err
			}
			values = append(values, float32(f))
		}
		a.SetFloatData(values...)
	case model.Int32:
		values := make([]int32, 0, len(data.Items))
		for _, item := range data.Items {
			n, err := item.integer()
			if err != nil {
				return err
			}
			if n < math.MinInt32 || n > math.MaxInt32 {
				return participle.Errorf(item.Pos, "%d does not fit in int32", n)
			}
			values = append(values, int32(n))
		}
		a.SetInt32Data(values...)
	case model.Uint8:
		values := make([]uint8, 0, len(data.Items))
		for _, item := range data.Items {
			n, err := item.integer()
			if err != nil {
				return err
			}
			if n < 0 || n > math.MaxUint8 {
				return participle.Errorf(item.Pos, "%d does not fit in uint8", n)
			}
			values = append(values, uint8(n))
		}
		a.Buffer = &model.Uint8Buffer{Data: values}
	case model.String:
		values := make([]string, 0, len(data.Items))
		for _, item := range data.Items {
			if item.String == nil {
				return participle.Errorf(item.Pos, "expected a string")
			}
			values = append(values, *item.String)
		}
		a.Buffer = &model.StringBuffer{Data: values}
	default:
		return participle.Errorf(pos, "array %q of type %s cannot hold constant data", a.Name, a.DataType)
	}
	return nil
}

func buildOp(m *model.Model, decl *OpDecl) error {
	t, ok := model.ParseOperatorType(decl.Type)
	if !ok {
		return participle.Errorf(decl.Pos, "unknown operator %q", decl.Type)
	}
	op := model.NewOperator(t, decl.Inputs, decl.Outputs)
	for _, attr := range decl.Attrs {
		if err := setAttr(op, attr); err != nil {
			return err
		}
	}
	m.AddOperator(op)
	return nil
}
