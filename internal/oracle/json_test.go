package oracle

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONPlain(t *testing.T) {
	got := ExtractJSON(`{"is_valid": true, "reasoning": "ok"}`)
	want := `{"is_valid": true, "reasoning": "ok"}`
	if got != want {
		t.Errorf("ExtractJSON() = %q, want %q", got, want)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	raw := "```json\n{\"tasks\": []}\n```"
	got := ExtractJSON(raw)
	if got != `{"tasks": []}` {
		t.Errorf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONFencedNoLanguage(t *testing.T) {
	raw := "```\n{\"a\": 1}\n```"
	if got := ExtractJSON(raw); got != `{"a": 1}` {
		t.Errorf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	raw := "Here is the plan you asked for:\n{\"tasks\": [{\"id\": \"t1\"}]}\nLet me know if it works."
	got := ExtractJSON(raw)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("extracted %q is not valid JSON: %v", got, err)
	}
	if _, ok := decoded["tasks"]; !ok {
		t.Errorf("extracted JSON lost tasks key: %q", got)
	}
}

func TestExtractJSONNestedBraces(t *testing.T) {
	raw := `prefix {"outer": {"inner": "value with } brace"}} suffix`
	got := ExtractJSON(raw)
	if got != `{"outer": {"inner": "value with } brace"}}` {
		t.Errorf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONArray(t *testing.T) {
	got := ExtractJSON("result: [1, 2, 3]")
	if got != "[1, 2, 3]" {
		t.Errorf("ExtractJSON() = %q", got)
	}
}

func TestExtractJSONNone(t *testing.T) {
	if got := ExtractJSON("no json here at all"); got != "" {
		t.Errorf("ExtractJSON() = %q, want empty", got)
	}
}

func TestExtractJSONUnbalanced(t *testing.T) {
	if got := ExtractJSON(`{"broken": `); got != "" {
		t.Errorf("ExtractJSON() = %q, want empty", got)
	}
}
