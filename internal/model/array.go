package model

import (
	"fmt"
	"strings"
)

// ArrayDataType is the element type of an array.
type ArrayDataType int

const (
	// DataTypeNone means the type has not been resolved yet.
	DataTypeNone ArrayDataType = iota
	Float32
	Uint8
	Int32
	String
)

var dataTypeNames = map[ArrayDataType]string{
	DataTypeNone: "none",
	Float32:      "float32",
	Uint8:        "uint8",
	Int32:        "int32",
	String:       "string",
}

func (t ArrayDataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ArrayDataType(%d)", int(t))
}

// ParseDataType maps a textual type name back to its ArrayDataType.
func ParseDataType(name string) (ArrayDataType, bool) {
	for t, n := range dataTypeNames {
		if n == name {
			return t, true
		}
	}
	return DataTypeNone, false
}

// Shape is an ordered list of dimension sizes.
type Shape []int

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Buffer is the constant payload of an array. Exactly one of the typed
// buffers below implements it.
type Buffer interface {
	DataType() ArrayDataType
	Len() int
}

type FloatBuffer struct{ Data []float32 }

type Int32Buffer struct{ Data []int32 }

type Uint8Buffer struct{ Data []uint8 }

type StringBuffer struct{ Data []string }

func (b *FloatBuffer) DataType() ArrayDataType  { return Float32 }
func (b *FloatBuffer) Len() int                 { return len(b.Data) }
func (b *Int32Buffer) DataType() ArrayDataType  { return Int32 }
func (b *Int32Buffer) Len() int                 { return len(b.Data) }
func (b *Uint8Buffer) DataType() ArrayDataType  { return Uint8 }
func (b *Uint8Buffer) Len() int                 { return len(b.Data) }
func (b *StringBuffer) DataType() ArrayDataType { return String }
func (b *StringBuffer) Len() int                { return len(b.Data) }

// QuantizationParams maps real values to the quantized domain:
// real = Scale * (quantized - ZeroPoint).
type QuantizationParams struct {
	Scale     float64
	ZeroPoint int64
}

// MinMax is the real-valued range an array is known to take.
type MinMax struct {
	Min float64
	Max float64
}

// Array is a named tensor descriptor.
type Array struct {
	Name     string
	DataType ArrayDataType
	Shape    *Shape // nil until inferred
	Buffer   Buffer // non-nil iff the array is a compile-time constant

	Quantization *QuantizationParams
	MinMax       *MinMax
}

// HasShape reports whether the shape has been inferred.
func (a *Array) HasShape() bool {
	return a.Shape != nil
}

// SetShape replaces the array shape.
func (a *Array) SetShape(dims ...int) {
	s := Shape(append([]int{}, dims...))
	a.Shape = &s
}

// FloatData returns the float32 payload, if that is what the array holds.
func (a *Array) FloatData() ([]float32, bool) {
	b, ok := a.Buffer.(*FloatBuffer)
	if !ok {
		return nil, false
	}
	return b.Data, true
}

// Int32Data returns the int32 payload, if that is what the array holds.
func (a *Array) Int32Data() ([]int32, bool) {
	b, ok := a.Buffer.(*Int32Buffer)
	if !ok {
		return nil, false
	}
	return b.Data, true
}

// SetFloatData makes the array a float32 constant.
func (a *Array) SetFloatData(data ...float32) {
	a.DataType = Float32
	a.Buffer = &FloatBuffer{Data: data}
}

// SetInt32Data makes the array an int32 constant.
func (a *Array) SetInt32Data(data ...int32) {
	a.DataType = Int32
	a.Buffer = &Int32Buffer{Data: data}
}

// GetOrCreateMinMax returns the array's range, allocating a zero one first.
func (a *Array) GetOrCreateMinMax() *MinMax {
	if a.MinMax == nil {
		a.MinMax = &MinMax{}
	}
	return a.MinMax
}

// GetOrCreateQuantizationParams returns the array's quantization
// parameters, allocating zero ones first.
func (a *Array) GetOrCreateQuantizationParams() *QuantizationParams {
	if a.Quantization == nil {
		a.Quantization = &QuantizationParams{}
	}
	return a.Quantization
}
