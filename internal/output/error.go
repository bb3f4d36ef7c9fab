package output

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// ErrorOutput is the JSON envelope for a failed command.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is an error broken into displayable parts.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	RPCCode    int               `json:"rpc_code,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// rpcCoder is implemented by wallet and node errors (EIP-1193 codes such as
// 4001, or JSON-RPC codes such as -32603).
type rpcCoder interface {
	ErrorCode() int
}

// NewErrorDetail flattens err. Errors that are not TestamentErrors become
// GENERAL_ERROR with the full message.
func NewErrorDetail(err error) ErrorDetail {
	d := ErrorDetail{Code: "GENERAL_ERROR", Message: err.Error(), ExitCode: tmerr.ExitGeneral}

	var te *tmerr.TestamentError
	if errors.As(err, &te) {
		d = ErrorDetail{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			ExitCode:   te.ExitCode,
		}
		if te.Cause != nil {
			d.Cause = te.Cause.Error()
		}
	}

	var rc rpcCoder
	if errors.As(err, &rc) {
		d.RPCCode = rc.ErrorCode()
	}
	return d
}

// FormatError writes err as a JSON envelope or as indented text.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}
	d := NewErrorDetail(err)
	if format == FormatJSON {
		return writeJSON(w, ErrorOutput{Error: d})
	}
	_, werr := io.WriteString(w, d.text())
	return werr
}

func (d ErrorDetail) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", d.Message)
	if d.Cause != "" {
		fmt.Fprintf(&b, "Cause: %s\n", d.Cause)
	}
	if d.RPCCode != 0 {
		fmt.Fprintf(&b, "Code:  %d\n", d.RPCCode)
	}

	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		width := 0
		for k := range d.Details {
			keys = append(keys, k)
			width = max(width, len(k)+1)
		}
		slices.Sort(keys)

		b.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %-*s %s\n", width, k+":", d.Details[k])
		}
	}

	if d.Suggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s\n", d.Suggestion)
	}
	return b.String()
}
