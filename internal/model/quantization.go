package model

import "math"

// ChooseQuantizationParams derives scale and zero point for the integer
// range [qmin, qmax] from a real range. The range is first extended to
// contain 0, and the zero point is nudged to an exact integer so that real
// 0 is representable without error.
func ChooseQuantizationParams(mm MinMax, qmin, qmax int64) QuantizationParams {
	rmin := math.Min(mm.Min, 0)
	rmax := math.Max(mm.Max, 0)
	if rmin == rmax {
		return QuantizationParams{Scale: 0, ZeroPoint: 0}
	}

	qminF := float64(qmin)
	qmaxF := float64(qmax)
	scale := (rmax - rmin) / (qmaxF - qminF)

	zeroPointFromMin := qminF - rmin/scale
	zeroPointFromMax := qmaxF - rmax/scale
	zeroPointFromMinError := math.Abs(qminF) + math.Abs(rmin/scale)
	zeroPointFromMaxError := math.Abs(qmaxF) + math.Abs(rmax/scale)

	zeroPoint := zeroPointFromMax
	if zeroPointFromMinError < zeroPointFromMaxError {
		zeroPoint = zeroPointFromMin
	}

	var nudged int64
	switch {
	case zeroPoint < qminF:
		nudged = qmin
	case zeroPoint > qmaxF:
		nudged = qmax
	default:
		nudged = int64(math.Round(zeroPoint))
	}
	return QuantizationParams{Scale: scale, ZeroPoint: nudged}
}

// QuantizationRange returns the integer range of a quantized data type.
func QuantizationRange(t ArrayDataType) (qmin, qmax int64, ok bool) {
	switch t {
	case Uint8:
		return 0, 255, true
	case Int32:
		return math.MinInt32, math.MaxInt32, true
	default:
		return 0, 0, false
	}
}
