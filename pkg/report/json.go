package report

import (
	"encoding/json"
	"io"
)

// JSONOutput is the JSON structure written by WriteJSON.
type JSONOutput struct {
	Valid        bool      `json:"valid"`
	Messages     []Message `json:"messages"`
	Moves        []Move    `json:"moves"`
	FatalCount   int       `json:"fatal_count"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
	ElapsedMS    int64     `json:"elapsed_ms"`
}

// WriteJSON writes the report in JSON format to w.
func (r *Report) WriteJSON(w io.Writer) error {
	out := JSONOutput{
		Valid:        r.IsValid(),
		Messages:     r.Messages,
		Moves:        r.Moves,
		FatalCount:   r.FatalCount(),
		ErrorCount:   r.ErrorCount(),
		WarningCount: r.WarningCount(),
		ElapsedMS:    r.Elapsed.Milliseconds(),
	}
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if out.Moves == nil {
		out.Moves = []Move{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
