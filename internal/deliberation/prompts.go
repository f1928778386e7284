package deliberation

import (
	"bytes"
	"strings"
	"text/template"
)

const synthesizerSystemPrompt = `You are a synthesizer. Combine the sub-problem analyses below into one
answer. Reply as the structured AgentResponse JSON shape, with your
confidence (0-1) as validation_score and the final answer as
reasoning_trace.`

var synthesizerTemplate = template.Must(template.New("synthesize").Parse(`Background: {{.Background}}
{{- if .Constraints}}
Constraints: {{.Constraints}}
{{- end}}

Sub-problems:
{{- range .SubProblems}}
- {{.}}
{{- end}}

Worker outputs:
{{- range .WorkerOutputs}}
- {{.}}
{{- end}}
`))

type synthesizerPromptData struct {
	Background    string
	Constraints   string
	SubProblems   []string
	WorkerOutputs []string
}

func renderSynthesizerPrompt(subProblems, workerOutputs []string, background string, constraints []string) string {
	var buf bytes.Buffer
	data := synthesizerPromptData{
		Background:    background,
		Constraints:   strings.Join(constraints, ", "),
		SubProblems:   subProblems,
		WorkerOutputs: workerOutputs,
	}
	if err := synthesizerTemplate.Execute(&buf, data); err != nil {
		return background
	}
	return buf.String()
}
