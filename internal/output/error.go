package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// ErrorOutput represents a structured error for JSON output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// Describe converts any error into an ErrorDetail.
func Describe(err error) ErrorDetail {
	var oe *onboarderr.OnboardError
	if errors.As(err, &oe) {
		detail := ErrorDetail{
			Code:       oe.Code,
			Message:    oe.Message,
			Details:    oe.Details,
			Suggestion: oe.Suggestion,
			ExitCode:   oe.ExitCode,
		}
		if oe.Cause != nil {
			detail.Cause = oe.Cause.Error()
		}
		return detail
	}
	return ErrorDetail{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		ExitCode: onboarderr.ExitGeneral,
	}
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	detail := Describe(err)
	if format == FormatJSON {
		return WriteJSON(w, ErrorOutput{Error: detail})
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", detail.Message))
	if detail.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", detail.Cause))
	}

	if len(detail.Details) > 0 {
		keys := make([]string, 0, len(detail.Details))
		for k := range detail.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, detail.Details[k]))
		}
	}

	if detail.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", detail.Suggestion))
	}

	_, writeErr := io.WriteString(w, sb.String())
	return writeErr
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
