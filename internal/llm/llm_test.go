package llm

import "testing"

func TestExtractJSONFromPlainObject(t *testing.T) {
	got := ExtractJSON(`{"status":"SUCCESS"}`)
	if got != `{"status":"SUCCESS"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONFromCodeFenceWithChatter(t *testing.T) {
	raw := "Sure, here's the result:\n```json\n{\"status\": \"SUCCESS\", \"validation_score\": 0.9}\n```\nLet me know if you need anything else."
	got := ExtractJSON(raw)
	if got != `{"status": "SUCCESS", "validation_score": 0.9}` {
		t.Fatalf("unexpected extraction from fenced response: %q", got)
	}
}

func TestExtractJSONHandlesNestedBraces(t *testing.T) {
	raw := `prefix {"status":"SUCCESS","blackboard_update":{"k":"v"}} suffix`
	got := ExtractJSON(raw)
	if got != `{"status":"SUCCESS","blackboard_update":{"k":"v"}}` {
		t.Fatalf("unexpected extraction with nested object: %q", got)
	}
}

func TestRepairStripsTrailingComma(t *testing.T) {
	raw := `{"status":"SUCCESS","tool_calls":[{"name":"git_add",},],}`
	resp, err := Repair(raw)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if resp.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %v", resp.Status)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "git_add" {
		t.Fatalf("expected one git_add tool call, got %+v", resp.ToolCalls)
	}
}

func TestRepairNoJSONReturnsError(t *testing.T) {
	if _, err := Repair("I couldn't complete this task."); err == nil {
		t.Fatalf("expected an error when no JSON object is present")
	}
}
