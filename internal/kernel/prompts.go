package kernel

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// workerTemplate is the prompt template rendered for the classical
// LLM-worker flow.
var workerTemplate = template.Must(template.New("worker").Parse(`You are the {{.Role}} for task {{.TaskID}}.

Description: {{.Description}}
{{- if .InputFiles}}
Input files: {{.InputFiles}}
{{- end}}
{{- if .OutputFiles}}
Output files: {{.OutputFiles}}
{{- end}}
{{- if .ContextWindow}}

Recent context:
{{range .ContextWindow}}- {{.}}
{{end -}}
{{- end}}
{{- if .BlockedTools}}

BLOCKED_TOOLS: {{.BlockedTools}}
{{- end}}
{{- if .WarningTools}}
WARNING tools: {{.WarningTools}}
{{- end}}

Respond with a single JSON object matching the AgentResponse contract.
`))

type workerPromptData struct {
	Role          taskmodel.Role
	TaskID        string
	Description   string
	InputFiles    string
	OutputFiles   string
	ContextWindow []string
	BlockedTools  string
	WarningTools  string
}

func renderWorkerPrompt(task *taskmodel.Task, role taskmodel.Role, contextWindow []string, warningTools, blockedTools []string) (string, error) {
	data := workerPromptData{
		Role:          role,
		TaskID:        task.ID,
		Description:   task.Description,
		InputFiles:    strings.Join(task.InputFiles, ", "),
		OutputFiles:   strings.Join(task.OutputFiles, ", "),
		ContextWindow: contextWindow,
		BlockedTools:  strings.Join(blockedTools, ", "),
		WarningTools:  strings.Join(warningTools, ", "),
	}
	var buf bytes.Buffer
	if err := workerTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("kernel: render worker prompt: %w", err)
	}
	return buf.String(), nil
}

var commitTemplate = template.Must(template.New("commit").Parse(`Write a commit message for task {{.TaskID}} ({{.Description}}) and return the tool calls needed to stage, commit{{if .Push}}, and push{{end}} the change.
Allowed tool calls: git_add, git_commit, git_push, run_command (git only).
Respond with a single JSON object matching the AgentResponse contract; put the commit message in reasoning_trace and the tool calls in tool_calls.
`))

func renderCommitPrompt(task *taskmodel.Task, push bool) (string, error) {
	var buf bytes.Buffer
	if err := commitTemplate.Execute(&buf, struct {
		TaskID      string
		Description string
		Push        bool
	}{task.ID, task.Description, push}); err != nil {
		return "", fmt.Errorf("kernel: render commit prompt: %w", err)
	}
	return buf.String(), nil
}

var prTemplate = template.Must(template.New("pr").Parse(`Write a pull request title and body for task {{.TaskID}} ({{.Description}}) on branch {{.Branch}}.
Respond with a single JSON object matching the AgentResponse contract; put the title in reasoning_trace and put {"title": "...", "body": "..."} under blackboard_update.
`))

func renderPRPrompt(task *taskmodel.Task) (string, error) {
	var buf bytes.Buffer
	if err := prTemplate.Execute(&buf, struct {
		TaskID      string
		Description string
		Branch      string
	}{task.ID, task.Description, task.Git.BranchName}); err != nil {
		return "", fmt.Errorf("kernel: render PR prompt: %w", err)
	}
	return buf.String(), nil
}

const workerSystemPrompt = "You are a disciplined software engineering agent operating under strict JSON output rules."
