package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a report line
type ErrorLevel string

const (
	Error ErrorLevel = "error"
	Note  ErrorLevel = "note"
	Help  ErrorLevel = "help"
)

// ErrorReporter formats invariant violations for terminal output
type ErrorReporter struct {
	modelName string
}

// NewErrorReporter creates a reporter for violations raised while
// optimizing the named model
func NewErrorReporter(modelName string) *ErrorReporter {
	return &ErrorReporter{modelName: modelName}
}

// FormatError formats any error; invariant violations get the full layout
func (er *ErrorReporter) FormatError(err error) string {
	var violation *InvariantError
	if As(err, &violation) {
		return er.FormatViolation(violation)
	}
	return fmt.Sprintf("%s: %s\n", er.getLevelColor(Error)(string(Error)), err)
}

// FormatViolation formats a violation with its code, location and notes
func (er *ErrorReporter) FormatViolation(err *InvariantError) string {
	var result strings.Builder

	levelColor := er.getLevelColor(Error)
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[G0001]: message
	result.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(Error)), err.Code, err.Message))

	// Location line: --> model: transformation @ operator
	location := er.modelName
	if err.Transformation != "" {
		location += ": " + err.Transformation
	}
	if err.Operator != "" {
		location += " @ " + err.Operator
	}
	result.WriteString(fmt.Sprintf("  %s %s\n", dim("-->"), location))
	result.WriteString(fmt.Sprintf("  %s %s %s\n", dim("│"), dim("category:"), GetErrorCategory(err.Code)))

	for _, note := range err.Notes {
		noteColor := er.getLevelColor(Note)
		result.WriteString(fmt.Sprintf("  %s %s %s\n", dim("│"), noteColor("note:"), note))
	}

	helpColor := er.getLevelColor(Help)
	result.WriteString(fmt.Sprintf("  %s %s %s\n", dim("│"), helpColor("help:"), GetErrorDescription(err.Code)))

	result.WriteString("\n")
	return result.String()
}

// getLevelColor returns the appropriate color function for an error level
func (er *ErrorReporter) getLevelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
