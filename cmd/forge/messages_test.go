package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/forgebuild/forge/internal/scheduler"
)

func TestMessageSinkHumanFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := &messageSink{w: &buf}

	sink.onMessage(scheduler.Message{Reason: "fresh", Unit: "a v1.0.0 (lib)"})
	sink.onMessage(scheduler.Message{Reason: "compiler-artifact", Unit: "b v1.0.0 (lib)"})
	sink.onMessage(scheduler.Message{Reason: "error", Unit: "c v1.0.0 (lib)", Error: "exit status 1"})

	out := buf.String()
	for _, want := range []string{"Fresh a v1.0.0", "Compiled b v1.0.0", "Error c v1.0.0: exit status 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestMessageSinkJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := &messageSink{w: &buf, json: true}

	sink.onMessage(scheduler.Message{Reason: "fresh", Unit: "a v1.0.0 (lib)", Fresh: true})

	var decoded scheduler.Message
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Reason != "fresh" || decoded.Unit != "a v1.0.0 (lib)" || !decoded.Fresh {
		t.Errorf("decoded = %+v, want matching fresh message", decoded)
	}
}
