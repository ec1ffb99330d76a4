package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/forgebuild/forge/internal/scheduler"
)

// messageSink renders scheduler.Message events as they arrive, either
// as one human-readable line or as the same tagged-JSON shape the
// scheduler package itself models on machine_message.rs, for callers
// that want to consume forge's output programmatically.
type messageSink struct {
	w    io.Writer
	json bool
}

func (s *messageSink) onMessage(m scheduler.Message) {
	if s.json {
		enc, err := json.Marshal(m)
		if err != nil {
			fmt.Fprintf(s.w, `{"reason":"error","error":%q}`+"\n", err.Error())
			return
		}
		fmt.Fprintln(s.w, string(enc))
		return
	}

	switch m.Reason {
	case "fresh":
		fmt.Fprintf(s.w, "   Fresh %s\n", m.Unit)
	case "skipped":
		fmt.Fprintf(s.w, " Skipped %s (%s)\n", m.Unit, m.Error)
	case "compiler-artifact":
		if m.Error != "" {
			fmt.Fprintf(s.w, "  Failed %s\n%s\n", m.Unit, m.Error)
		} else {
			fmt.Fprintf(s.w, " Compiled %s\n", m.Unit)
		}
	case "error":
		fmt.Fprintf(s.w, "   Error %s: %s\n", m.Unit, m.Error)
	default:
		fmt.Fprintf(s.w, "%8s %s\n", m.Reason, m.Unit)
	}
}
