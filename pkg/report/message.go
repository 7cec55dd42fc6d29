package report

import (
	"fmt"
	"time"
)

// Severity levels for report messages.
type Severity string

const (
	Fatal   Severity = "FATAL"
	Error   Severity = "ERROR"
	Warning Severity = "WARNING"
	Info    Severity = "INFO"
	Usage   Severity = "USAGE"
)

// Message codes raised while normalizing a publication.
const (
	CodeMoved            = "NRM-001"
	CodeRegistered       = "NRM-002"
	CodeDuplicate        = "NRM-003"
	CodeMissingReference = "NRM-004"
	CodeBrokenReference  = "NRM-005"
	CodeInvalidURL       = "NRM-006"
	CodeScriptRemoved    = "NRM-007"
	CodeCharsetDropped   = "NRM-008"
	CodeEmptyDirRemoved  = "NRM-009"
	CodeUnparsable       = "NRM-010"
)

// Message represents a single finding.
type Message struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
}

func (m Message) String() string {
	if m.Location != "" {
		return fmt.Sprintf("%s(%s): %s [%s]", m.Severity, m.Code, m.Message, m.Location)
	}
	return fmt.Sprintf("%s(%s): %s", m.Severity, m.Code, m.Message)
}

// Move records one file relocation.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Report collects the messages and relocations of a run.
type Report struct {
	Messages []Message    `json:"messages"`
	Moves    []Move        `json:"moves,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add appends a message to the report.
func (r *Report) Add(sev Severity, code string, msg string) {
	r.Messages = append(r.Messages, Message{
		Severity: sev,
		Code:     code,
		Message:  msg,
	})
}

// AddWithLocation appends a message with a location to the report.
func (r *Report) AddWithLocation(sev Severity, code string, msg string, location string) {
	r.Messages = append(r.Messages, Message{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Location: location,
	})
}

// AddMove records a relocation along with an INFO message.
func (r *Report) AddMove(from, to string) {
	r.Moves = append(r.Moves, Move{From: from, To: to})
	r.AddWithLocation(Info, CodeMoved, "moved to "+to, from)
}

// Count returns the number of messages with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, m := range r.Messages {
		if m.Severity == sev {
			n++
		}
	}
	return n
}

// FatalCount returns the number of FATAL messages.
func (r *Report) FatalCount() int { return r.Count(Fatal) }

// ErrorCount returns the number of ERROR messages.
func (r *Report) ErrorCount() int { return r.Count(Error) }

// WarningCount returns the number of WARNING messages.
func (r *Report) WarningCount() int { return r.Count(Warning) }

// ByCode returns the messages carrying code.
func (r *Report) ByCode(code string) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Code == code {
			out = append(out, m)
		}
	}
	return out
}

// IsValid returns true if there are no FATAL or ERROR messages.
func (r *Report) IsValid() bool {
	return r.FatalCount() == 0 && r.ErrorCount() == 0
}

// Merge appends the messages and moves of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Messages = append(r.Messages, other.Messages...)
	r.Moves = append(r.Moves, other.Moves...)
}
