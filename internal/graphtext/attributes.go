package graphtext

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"graphopt/internal/model"
)

var paddings = map[string]model.PaddingType{
	"same":  model.PaddingSame,
	"valid": model.PaddingValid,
}

var activations = map[string]model.FusedActivation{
	"none":  model.ActivationNone,
	"relu":  model.ActivationRelu,
	"relu1": model.ActivationRelu1,
	"relu6": model.ActivationRelu6,
}

// setAttr applies one key = value pair to op.
func setAttr(op *model.Operator, attr *Attr) error {
	v := attr.Value
	var err error

	switch attr.Key {
	case "activation":
		op.FusedActivation, err = lookup(v, activations)
		return err
	case "unresolved_outputs":
		op.UnresolvedOutputs, err = v.boolean()
		return err
	}

	switch a := op.Attrs.(type) {
	case *model.ConvAttrs:
		switch attr.Key {
		case "stride_width":
			a.StrideWidth, err = v.integer()
		case "stride_height":
			a.StrideHeight, err = v.integer()
		case "padding":
			a.Padding, err = lookup(v, paddings)
		default:
			return unknownAttr(op, attr)
		}
	case *model.DepthwiseConvAttrs:
		switch attr.Key {
		case "stride_width":
			a.StrideWidth, err = v.integer()
		case "stride_height":
			a.StrideHeight, err = v.integer()
		case "padding":
			a.Padding, err = lookup(v, paddings)
		case "depth_multiplier":
			a.DepthMultiplier, err = v.integer()
		default:
			return unknownAttr(op, attr)
		}
	case *model.TransposeConvAttrs:
		switch attr.Key {
		case "stride_width":
			a.StrideWidth, err = v.integer()
		case "stride_height":
			a.StrideHeight, err = v.integer()
		case "padding":
			a.Padding, err = lookup(v, paddings)
		case "out_shape":
			var dims []int
			if dims, err = v.integers(); err == nil {
				if len(dims) != 4 {
					return participle.Errorf(v.Pos, "out_shape needs 4 dimensions, got %d", len(dims))
				}
				copy(a.OutShape[:], dims)
			}
		default:
			return unknownAttr(op, attr)
		}
	case *model.DilatedConvAttrs:
		switch attr.Key {
		case "rate":
			a.Rate, err = v.integer()
		case "padding":
			a.Padding, err = lookup(v, paddings)
		default:
			return unknownAttr(op, attr)
		}
	case *model.SpaceToBatchNDAttrs:
		switch attr.Key {
		case "block_shape":
			a.BlockShape, err = v.integers()
		case "before_paddings":
			a.BeforePaddings, err = v.integers()
		case "after_paddings":
			a.AfterPaddings, err = v.integers()
		default:
			return unknownAttr(op, attr)
		}
	case *model.BatchToSpaceNDAttrs:
		switch attr.Key {
		case "block_shape":
			a.BlockShape, err = v.integers()
		case "before_crops":
			a.BeforeCrops, err = v.integers()
		case "after_crops":
			a.AfterCrops, err = v.integers()
		default:
			return unknownAttr(op, attr)
		}
	case *model.ReshapeAttrs:
		if attr.Key != "shape" {
			return unknownAttr(op, attr)
		}
		a.Shape, err = v.integers()
	case *model.ConcatenationAttrs:
		if attr.Key != "axis" {
			return unknownAttr(op, attr)
		}
		a.Axis, err = v.integer()
	case *model.SplitAttrs:
		if attr.Key != "num_split" {
			return unknownAttr(op, attr)
		}
		a.NumSplit, err = v.integer()
	case *model.LeakyReluAttrs:
		if attr.Key != "alpha" {
			return unknownAttr(op, attr)
		}
		var alpha float64
		alpha, err = v.number()
		a.Alpha = float32(alpha)
	case *model.ResizeBilinearAttrs:
		if attr.Key != "align_corners" {
			return unknownAttr(op, attr)
		}
		a.AlignCorners, err = v.boolean()
	default:
		return unknownAttr(op, attr)
	}
	return err
}

func unknownAttr(op *model.Operator, attr *Attr) error {
	return participle.Errorf(attr.Pos, "%s has no attribute %q", op.Type, attr.Key)
}

func lookup[T any](v *Value, table map[string]T) (T, error) {
	var zero T
	if v.Ident == nil {
		return zero, participle.Errorf(v.Pos, "expected a name")
	}
	t, ok := table[*v.Ident]
	if !ok {
		return zero, participle.Errorf(v.Pos, "unknown value %q", *v.Ident)
	}
	return t, nil
}

func (v *Value) integer() (int, error) {
	if v.Int == nil {
		return 0, participle.Errorf(v.Pos, "expected an integer")
	}
	return int(*v.Int), nil
}

func (v *Value) integers() ([]int, error) {
	if v.List == nil {
		return nil, participle.Errorf(v.Pos, "expected a list of integers")
	}
	out := make([]int, 0, len(v.List.Items))
	for _, item := range v.List.Items {
		n, err := item.integer()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (v *Value) number() (float64, error) {
	switch {
	case v.Float != nil:
		return *v.Float, nil
	case v.Int != nil:
		return float64(*v.Int), nil
	default:
		return 0, participle.Errorf(v.Pos, "expected a number")
	}
}

func (v *Value) boolean() (bool, error) {
	if v.Ident != nil {
		switch *v.Ident {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, participle.Errorf(v.Pos, "expected true or false")
}

// formatAttrs renders the attributes of op that differ from the defaults
// of its type, in a fixed key order.
func formatAttrs(op *model.Operator) []string {
	var out []string
	add := func(key string, value any) {
		out = append(out, fmt.Sprintf("%s = %v", key, value))
	}

	switch a := op.Attrs.(type) {
	case *model.ConvAttrs:
		add("stride_width", a.StrideWidth)
		add("stride_height", a.StrideHeight)
		if a.Padding != model.PaddingUnspecified {
			add("padding", a.Padding)
		}
	case *model.DepthwiseConvAttrs:
		add("stride_width", a.StrideWidth)
		add("stride_height", a.StrideHeight)
		if a.Padding != model.PaddingUnspecified {
			add("padding", a.Padding)
		}
		add("depth_multiplier", a.DepthMultiplier)
	case *model.TransposeConvAttrs:
		add("stride_width", a.StrideWidth)
		add("stride_height", a.StrideHeight)
		if a.Padding != model.PaddingUnspecified {
			add("padding", a.Padding)
		}
		if a.OutShape != [4]int{} {
			add("out_shape", model.Shape(a.OutShape[:]))
		}
	case *model.DilatedConvAttrs:
		add("rate", a.Rate)
		if a.Padding != model.PaddingUnspecified {
			add("padding", a.Padding)
		}
	case *model.SpaceToBatchNDAttrs:
		if len(a.BlockShape) > 0 {
			add("block_shape", model.Shape(a.BlockShape))
			add("before_paddings", model.Shape(a.BeforePaddings))
			add("after_paddings", model.Shape(a.AfterPaddings))
		}
	case *model.BatchToSpaceNDAttrs:
		if len(a.BlockShape) > 0 {
			add("block_shape", model.Shape(a.BlockShape))
			add("before_crops", model.Shape(a.BeforeCrops))
			add("after_crops", model.Shape(a.AfterCrops))
		}
	case *model.ReshapeAttrs:
		if len(a.Shape) > 0 {
			add("shape", model.Shape(a.Shape))
		}
	case *model.ConcatenationAttrs:
		add("axis", a.Axis)
	case *model.SplitAttrs:
		if a.NumSplit != 0 {
			add("num_split", a.NumSplit)
		}
	case *model.LeakyReluAttrs:
		add("alpha", formatFloat(a.Alpha))
	case *model.ResizeBilinearAttrs:
		if a.AlignCorners {
			add("align_corners", true)
		}
	}

	if op.FusedActivation != model.ActivationNone {
		add("activation", op.FusedActivation)
	}
	if op.UnresolvedOutputs {
		add("unresolved_outputs", true)
	}
	return out
}
