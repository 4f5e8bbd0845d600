package model

import "fmt"

// OperatorType identifies the variant of an operator.
type OperatorType int

const (
	OpNone OperatorType = iota
	OpAdd
	OpMul
	OpSub
	OpAbs
	OpMaximum
	OpTanh
	OpLogistic
	OpRelu
	OpFullyConnected
	OpConcatenation
	OpSplit
	OpSpaceToBatchND
	OpBatchToSpaceND
	OpConv
	OpDepthwiseConv
	OpTransposeConv
	OpDequantize
	OpResizeBilinear
	OpReshape
	OpFill

	// Fused variants produced by the rewrite passes.
	OpGruCell
	OpPRelu
	OpLeakyRelu
	OpDilatedConv

	OpUnsupported
)

var operatorTypeNames = map[OperatorType]string{
	OpNone:           "None",
	OpAdd:            "Add",
	OpMul:            "Mul",
	OpSub:            "Sub",
	OpAbs:            "Abs",
	OpMaximum:        "Maximum",
	OpTanh:           "Tanh",
	OpLogistic:       "Logistic",
	OpRelu:           "Relu",
	OpFullyConnected: "FullyConnected",
	OpConcatenation:  "Concatenation",
	OpSplit:          "Split",
	OpSpaceToBatchND: "SpaceToBatchND",
	OpBatchToSpaceND: "BatchToSpaceND",
	OpConv:           "Conv",
	OpDepthwiseConv:  "DepthwiseConv",
	OpTransposeConv:  "TransposeConv",
	OpDequantize:     "Dequantize",
	OpResizeBilinear: "ResizeBilinear",
	OpReshape:        "Reshape",
	OpFill:           "Fill",
	OpGruCell:        "GruCell",
	OpPRelu:          "PRelu",
	OpLeakyRelu:      "LeakyRelu",
	OpDilatedConv:    "DilatedConv",
	OpUnsupported:    "Unsupported",
}

func (t OperatorType) String() string {
	if name, ok := operatorTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OperatorType(%d)", int(t))
}

// ParseOperatorType maps an operator name back to its type. OpNone is not
// a valid operator and is never returned with ok set.
func ParseOperatorType(name string) (OperatorType, bool) {
	for t, n := range operatorTypeNames {
		if n == name && t != OpNone {
			return t, true
		}
	}
	return OpNone, false
}

// OperatorTypes lists every valid operator type in declaration order.
func OperatorTypes() []OperatorType {
	types := make([]OperatorType, 0, int(OpUnsupported))
	for t := OpAdd; t <= OpUnsupported; t++ {
		types = append(types, t)
	}
	return types
}

// PaddingType is the padding mode of convolution-like operators.
type PaddingType int

const (
	PaddingUnspecified PaddingType = iota
	PaddingSame
	PaddingValid
)

func (p PaddingType) String() string {
	switch p {
	case PaddingSame:
		return "same"
	case PaddingValid:
		return "valid"
	default:
		return "unspecified"
	}
}

// FusedActivation is an activation folded into the operator that precedes it.
type FusedActivation int

const (
	ActivationNone FusedActivation = iota
	ActivationRelu
	ActivationRelu1
	ActivationRelu6
)

func (a FusedActivation) String() string {
	switch a {
	case ActivationRelu:
		return "relu"
	case ActivationRelu1:
		return "relu1"
	case ActivationRelu6:
		return "relu6"
	default:
		return "none"
	}
}

// OpID is a stable handle to an operator. It stays valid until the
// operator is removed and is never reused within a model.
type OpID int

// Operator is a node of the graph. Its variant-specific attributes live in
// Attrs; the concrete payload type is fixed by Type.
type Operator struct {
	ID      OpID
	Type    OperatorType
	Inputs  []string
	Outputs []string

	FusedActivation FusedActivation

	// UnresolvedOutputs marks operators whose output shapes or types are
	// still pending; dead-code elimination leaves them alone.
	UnresolvedOutputs bool

	Attrs Attributes
}

// NewOperator returns a detached operator carrying the default attribute
// payload for its type. It receives an ID when inserted into a model.
func NewOperator(t OperatorType, inputs, outputs []string) *Operator {
	return &Operator{
		Type:    t,
		Inputs:  append([]string{}, inputs...),
		Outputs: append([]string{}, outputs...),
		Attrs:   DefaultAttributes(t),
	}
}

// Attributes is the variant payload of an operator.
type Attributes interface {
	isAttributes()
}

type ConvAttrs struct {
	StrideWidth  int
	StrideHeight int
	Padding      PaddingType
}

type DepthwiseConvAttrs struct {
	StrideWidth     int
	StrideHeight    int
	Padding         PaddingType
	DepthMultiplier int
}

// TransposeConvAttrs carries the explicit output shape (N, H, W, C); all
// zero means it has not been resolved.
type TransposeConvAttrs struct {
	StrideWidth  int
	StrideHeight int
	Padding      PaddingType
	OutShape     [4]int
}

type DilatedConvAttrs struct {
	Rate    int
	Padding PaddingType
}

type SpaceToBatchNDAttrs struct {
	BlockShape     []int
	BeforePaddings []int
	AfterPaddings  []int
}

type BatchToSpaceNDAttrs struct {
	BlockShape  []int
	BeforeCrops []int
	AfterCrops  []int
}

// ReshapeAttrs holds the resolved target shape; empty means unresolved.
type ReshapeAttrs struct {
	Shape []int
}

type ConcatenationAttrs struct {
	Axis int
}

type SplitAttrs struct {
	NumSplit int
}

type LeakyReluAttrs struct {
	Alpha float32
}

type ResizeBilinearAttrs struct {
	AlignCorners bool
}

func (*ConvAttrs) isAttributes()           {}
func (*DepthwiseConvAttrs) isAttributes()  {}
func (*TransposeConvAttrs) isAttributes()  {}
func (*DilatedConvAttrs) isAttributes()    {}
func (*SpaceToBatchNDAttrs) isAttributes() {}
func (*BatchToSpaceNDAttrs) isAttributes() {}
func (*ReshapeAttrs) isAttributes()        {}
func (*ConcatenationAttrs) isAttributes()  {}
func (*SplitAttrs) isAttributes()          {}
func (*LeakyReluAttrs) isAttributes()      {}
func (*ResizeBilinearAttrs) isAttributes() {}

// DefaultAttributes returns a fresh payload for the given operator type, or
// nil for types without attributes.
func DefaultAttributes(t OperatorType) Attributes {
	switch t {
	case OpConv:
		return &ConvAttrs{StrideWidth: 1, StrideHeight: 1}
	case OpDepthwiseConv:
		return &DepthwiseConvAttrs{StrideWidth: 1, StrideHeight: 1, DepthMultiplier: 1}
	case OpTransposeConv:
		return &TransposeConvAttrs{StrideWidth: 1, StrideHeight: 1}
	case OpDilatedConv:
		return &DilatedConvAttrs{}
	case OpSpaceToBatchND:
		return &SpaceToBatchNDAttrs{}
	case OpBatchToSpaceND:
		return &BatchToSpaceNDAttrs{}
	case OpReshape:
		return &ReshapeAttrs{}
	case OpConcatenation:
		return &ConcatenationAttrs{}
	case OpSplit:
		return &SplitAttrs{}
	case OpLeakyRelu:
		return &LeakyReluAttrs{}
	case OpResizeBilinear:
		return &ResizeBilinearAttrs{}
	default:
		return nil
	}
}
