// Package llm defines the external LLM provider contract — a plain
// two-method Client interface — and a JSON-repair layer that tolerates
// markdown code fences, leading chatter, and trailing commas in a
// provider's response. OpenRouterClient is the one concrete provider
// shipped in-tree; any other provider need only satisfy Client.
package llm

import "context"

// Status is AgentResponse.status.
type Status string

const (
	StatusSuccess            Status = "SUCCESS"
	StatusFailed             Status = "FAILED"
	StatusNeedsClarification Status = "NEEDS_CLARIFICATION"
	StatusPending            Status = "PENDING"
)

// ToolCall is one entry of AgentResponse.tool_calls.
type ToolCall struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// AgentResponse is the LLM provider's structured reply.
type AgentResponse struct {
	Status           Status            `json:"status"`
	ReasoningTrace   string            `json:"reasoning_trace,omitempty"`
	ValidationScore  float64           `json:"validation_score"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
	BlackboardUpdate map[string]string `json:"blackboard_update,omitempty"`
}

// Client is the minimal interface the orchestrator dispatches prompts
// through, mirroring internal/core.LLMClient's Complete/CompleteWithSystem
// split so callers that only have a system-less prompt don't need to
// thread an empty system string everywhere.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Dispatch calls client with (systemPrompt, prompt) and repairs/parses the
// result into an AgentResponse. It takes no model alias: model selection
// is the caller's responsibility; Dispatch only shapes the single
// round-trip.
func Dispatch(ctx context.Context, client Client, systemPrompt, prompt string) (AgentResponse, error) {
	raw, err := client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return AgentResponse{Status: StatusFailed}, err
	}
	return Repair(raw)
}
