package slots

import (
	"errors"
	"fmt"
)

// ErrMalformedRow is matched by every *FormatError through errors.Is.
var ErrMalformedRow = errors.New("slots: malformed row")

// FormatError describes one rejected input line. The row it would have
// replaced keeps its previous content.
type FormatError struct {
	Source string // file kind, e.g. "modules", "hub ids", "sectors"
	Line   int    // 1-based
	Want   int
	Got    int
	Reason string
	Text   string
}

// maxQuotedText caps how much of a rejected line Error quotes.
const maxQuotedText = 80

func (e *FormatError) Error() string {
	text := e.Text
	if len(text) > maxQuotedText {
		text = text[:maxQuotedText] + "..."
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s line %d: %s: %q", e.Source, e.Line, e.Reason, text)
	}
	return fmt.Sprintf("%s line %d: bad format, want %d fields got %d: %q", e.Source, e.Line, e.Want, e.Got, text)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrMalformedRow
}

// LoadReport summarizes one load pass.
type LoadReport struct {
	Applied  int
	Rejected []*FormatError
}

// Err joins the rejected rows into a single error, or nil.
func (r LoadReport) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	errs := make([]error, len(r.Rejected))
	for i, fe := range r.Rejected {
		errs[i] = fe
	}
	return errors.Join(errs...)
}
