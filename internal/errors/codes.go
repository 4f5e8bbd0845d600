package errors

// Error codes for invariant violations raised by graph transformations.
// A violation means a transformation matched and then found an assumption
// it needs for a safe rewrite to be false; the optimization run is aborted.
//
// Error code ranges:
// G0001-G0099: Operator structure (arity, attribute payloads)
// G0100-G0199: Array contents (element types, buffer sizes, shapes)
// G0200-G0299: Pattern sharing (sub-expressions expected to be shared)
// G0300-G0399: Mutation (erasures refused by the model)
// G0400-G0499: Model integrity (structural checks after a rewrite)
// G0900-G0999: Driver errors

const (
	// G0001: Operator has an input count the transformation cannot handle
	ErrorOperatorArity = "G0001"

	// G0002: Operator attribute payload does not match its type
	ErrorAttributePayload = "G0002"

	// G0100: Array element type differs from the expected one
	ErrorBufferType = "G0100"

	// G0101: Constant buffer has the wrong number of elements
	ErrorBufferSize = "G0101"

	// G0102: Array shape disagrees with operator parameters
	ErrorShapeMismatch = "G0102"

	// G0103: Array produced by an operator already holds constant data
	ErrorConstantOutput = "G0103"

	// G0200: Sub-expression expected to be shared is not
	ErrorUnsharedSubexpression = "G0200"

	// G0300: Array erase refused because it is still referenced
	ErrorArrayStillReferenced = "G0300"

	// G0301: Operator to remove is no longer part of the model
	ErrorOperatorMissing = "G0301"

	// G0400: Model failed its structural check after a rewrite
	ErrorModelIntegrity = "G0400"

	// G0900: Fixpoint did not converge within the configured bounds
	ErrorNoConvergence = "G0900"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorOperatorArity:
		return "Operator has an unexpected number of inputs"
	case ErrorAttributePayload:
		return "Operator attributes do not match the operator type"
	case ErrorBufferType:
		return "Constant buffer has an unexpected element type"
	case ErrorBufferSize:
		return "Constant buffer has an unexpected number of elements"
	case ErrorShapeMismatch:
		return "Array shape is inconsistent with operator parameters"
	case ErrorConstantOutput:
		return "Operator output already holds constant data"
	case ErrorUnsharedSubexpression:
		return "Matched pattern expected a shared sub-expression"
	case ErrorArrayStillReferenced:
		return "Array is still referenced and cannot be erased"
	case ErrorOperatorMissing:
		return "Operator is not part of the model"
	case ErrorModelIntegrity:
		return "Model failed its structural check"
	case ErrorNoConvergence:
		return "Transformations did not reach a fixpoint"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "G0001" && code < "G0100":
		return "Operator Structure"
	case code >= "G0100" && code < "G0200":
		return "Array Contents"
	case code >= "G0200" && code < "G0300":
		return "Pattern Sharing"
	case code >= "G0300" && code < "G0400":
		return "Mutation"
	case code >= "G0400" && code < "G0500":
		return "Model Integrity"
	case code >= "G0900" && code < "G1000":
		return "Driver"
	default:
		return "Unknown"
	}
}
