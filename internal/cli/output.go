package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// Response is the JSON envelope written with --format json.
type Response struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

type output struct {
	format  string
	command string
	w       io.Writer
	errW    io.Writer
}

func newOutput(opts *RootOptions, command string, w, errW io.Writer) *output {
	return &output{format: opts.Format, command: command, w: w, errW: errW}
}

// success renders result; text is the human form.
func (o *output) success(result any, text string) error {
	if o.format == "json" {
		return o.writeJSON(Response{Command: o.command, Status: "ok", Result: result})
	}
	_, err := fmt.Fprintln(o.w, text)
	return err
}

// failure renders err and returns it marked as reported.
func (o *output) failure(result any, err error) error {
	if o.format == "json" {
		if werr := o.writeJSON(Response{Command: o.command, Status: "error", Result: result, Error: err.Error()}); werr != nil {
			return werr
		}
	} else {
		fmt.Fprintf(o.errW, "%s: %v\n", o.command, err)
	}
	return &ReportedError{Err: err}
}

func (o *output) writeJSON(resp Response) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
