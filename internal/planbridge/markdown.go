// Package planbridge implements C11: a hand-rolled Markdown grammar that
// mirrors the blackboard's task table as a human-editable plan file, in
// both directions.
// The grammar is deliberately narrow — status headers, a checkbox
// task line, and indented metadata children — so a small line scanner
// built on strings.Split/TrimSpace/HasPrefix is used rather than a
// general CommonMark engine.
package planbridge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// sectionHeaders is the fixed, case-sensitive header order: `## Todo`, `## In Progress`, `## Completed`.
var sectionHeaders = []struct {
	header string
	status taskmodel.Status
}{
	{"## Todo", taskmodel.StatusPending},
	{"## In Progress", taskmodel.StatusInProgress},
	{"## Completed", taskmodel.StatusCompleted},
}

// failedHeader is a supplemental section beyond the three named in the
// grammar, so a FAILED task isn't silently dropped from the plan file.
const failedHeader = "## Failed"

// outboundFlags is the whitelist of IntentKinds re-emitted by Generate
var outboundFlags = []taskmodel.IntentKind{
	taskmodel.GitCommitIntent,
	taskmodel.GitPRIntent,
}

// ParsedTask is one task line (plus its metadata children) read out of a
// plan file, before it is merged into the blackboard.
type ParsedTask struct {
	Description string
	Status      taskmodel.Status
	Role        taskmodel.Role
	InputFiles  []string
	Flags       map[taskmodel.IntentKind]bool
}

// checkboxStatus maps a task line's checkbox glyph to a Status
func checkboxStatus(box string) (taskmodel.Status, bool) {
	switch box {
	case " ":
		return taskmodel.StatusPending, true
	case "/":
		return taskmodel.StatusInProgress, true
	case "x", "X":
		return taskmodel.StatusCompleted, true
	default:
		return "", false
	}
}

// Parse reads a plan-file document into a flat list of ParsedTask,
// independent of which section each line appeared under — the checkbox
// glyph, not the enclosing header, is authoritative for status. It also
// returns any free-text lines found between the recognized grammar
// elements (section headers, task lines, metadata children), keyed by
// the section header each block follows ("" for anything before the
// first header), so a caller can preserve it across a load/save
// round-trip without attempting to parse it.
func Parse(doc string) ([]ParsedTask, map[string][]string) {
	var tasks []ParsedTask
	var current *ParsedTask
	freeText := map[string][]string{}
	currentHeader := ""

	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		if header, ok := matchHeader(trimmed); ok {
			if current != nil {
				tasks = append(tasks, *current)
				current = nil
			}
			currentHeader = header
			continue
		}

		if task, ok := parseTaskLine(trimmed); ok {
			if current != nil {
				tasks = append(tasks, *current)
			}
			current = task
			continue
		}

		if current != nil && strings.HasPrefix(line, "  ") {
			parseMetadataLine(trimmed, current)
			continue
		}

		freeText[currentHeader] = append(freeText[currentHeader], trimmed)
	}
	if current != nil {
		tasks = append(tasks, *current)
	}
	return tasks, freeText
}

func matchHeader(trimmed string) (string, bool) {
	for _, section := range sectionHeaders {
		if trimmed == section.header {
			return section.header, true
		}
	}
	if trimmed == failedHeader {
		return failedHeader, true
	}
	return "", false
}

// taskLineGlyphs lists the checkbox glyphs a task line may carry;
// checkboxStatus maps each one to a Status.
var taskLineGlyphs = []string{" ", "/", "x", "X"}

func parseTaskLine(trimmed string) (*ParsedTask, bool) {
	if !strings.HasPrefix(trimmed, "- [") {
		return nil, false
	}
	rest := trimmed[len("- ["):]
	closeIdx := strings.Index(rest, "]")
	if closeIdx != 1 {
		return nil, false
	}
	box := rest[:closeIdx]
	status, ok := checkboxStatus(box)
	if !ok {
		return nil, false
	}
	body := strings.TrimSpace(rest[closeIdx+1:])

	role := taskmodel.Role("")
	if at := strings.LastIndex(body, "@"); at != -1 {
		candidate := strings.TrimSpace(body[at+1:])
		if candidate != "" && !strings.ContainsAny(candidate, " \t") {
			role = taskmodel.Role(candidate)
			body = strings.TrimSpace(body[:at])
		}
	}

	return &ParsedTask{
		Description: body,
		Status:      status,
		Role:        role,
		Flags:       make(map[taskmodel.IntentKind]bool),
	}, true
}

func parseMetadataLine(trimmed string, task *ParsedTask) {
	switch {
	case strings.HasPrefix(trimmed, "- Context:"):
		value := strings.TrimSpace(strings.TrimPrefix(trimmed, "- Context:"))
		for _, f := range strings.Split(value, ",") {
			if f = strings.TrimSpace(f); f != "" {
				task.InputFiles = append(task.InputFiles, f)
			}
		}
	case strings.HasPrefix(trimmed, "- Flags:"):
		value := strings.TrimSpace(strings.TrimPrefix(trimmed, "- Flags:"))
		for _, pair := range strings.Split(value, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			kv := strings.SplitN(pair, "=", 2)
			key := taskmodel.IntentKind(strings.TrimSpace(kv[0]))
			val := true
			if len(kv) == 2 {
				if parsed, err := strconv.ParseBool(strings.TrimSpace(kv[1])); err == nil {
					val = parsed
				}
			}
			task.Flags[key] = val
		}
	}
}

// MergeInbound applies the inbound sync rules: match by
// description to an existing task; PENDING parsed status never downgrades
// a non-PENDING in-memory status; Context and Flags are authoritative
// (overwrite); unmatched descriptions become new tasks.
func MergeInbound(profile *taskmodel.ProjectProfile, parsed []ParsedTask) {
	byDescription := make(map[string]*taskmodel.Task, len(profile.Tasks))
	for _, t := range profile.Tasks {
		byDescription[t.Description] = t
	}

	for _, p := range parsed {
		existing, ok := byDescription[p.Description]
		if !ok {
			next := taskmodel.NewTask(p.Description)
			applyParsed(next, p)
			profile.Tasks[next.ID] = next
			byDescription[p.Description] = next
			continue
		}
		if !(p.Status == taskmodel.StatusPending && existing.Status != taskmodel.StatusPending) {
			existing.Status = p.Status
		}
		applyParsed(existing, p)
	}
}

func applyParsed(task *taskmodel.Task, p ParsedTask) {
	if p.Role != "" {
		task.AssignedWorker = string(p.Role)
	}
	task.InputFiles = p.InputFiles
	for kind, value := range p.Flags {
		task.Intents.Set(kind, value)
	}
}

// Generate renders the blackboard's tasks as a canonical plan document,
// grouped by status under the three fixed headers, with only the
// whitelisted flags re-emitted. Any free text previously captured by
// Parse (profile.PlanFreeText) is replayed immediately under the header
// it followed, so hand-written notes between sections survive a
// load/save round-trip.
func Generate(profile *taskmodel.ProjectProfile) string {
	grouped := map[taskmodel.Status][]*taskmodel.Task{}
	for _, t := range profile.Tasks {
		grouped[t.Status] = append(grouped[t.Status], t)
	}
	for _, tasks := range grouped {
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Description < tasks[j].Description })
	}

	var b strings.Builder
	if preamble := profile.PlanFreeText[""]; len(preamble) > 0 {
		writeFreeText(&b, preamble)
		b.WriteString("\n")
	}
	for i, section := range sectionHeaders {
		tasks := grouped[section.status]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(section.header)
		b.WriteString("\n")
		writeFreeText(&b, profile.PlanFreeText[section.header])
		for _, t := range tasks {
			writeTaskLine(&b, t)
		}
	}

	if failed := grouped[taskmodel.StatusFailed]; len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Description < failed[j].Description })
		b.WriteString("\n" + failedHeader + "\n")
		writeFreeText(&b, profile.PlanFreeText[failedHeader])
		for _, t := range failed {
			writeTaskLine(&b, t)
		}
	}

	return b.String()
}

func writeFreeText(b *strings.Builder, lines []string) {
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeTaskLine(b *strings.Builder, t *taskmodel.Task) {
	box := checkboxGlyph(t.Status)
	line := fmt.Sprintf("- [%s] %s", box, t.Description)
	if t.AssignedWorker != "" {
		line += " @" + t.AssignedWorker
	}
	b.WriteString(line)
	b.WriteString("\n")

	if len(t.InputFiles) > 0 {
		b.WriteString("  - Context: " + strings.Join(t.InputFiles, ", "))
		b.WriteString("\n")
	}

	var flags []string
	for _, kind := range outboundFlags {
		if t.Intents.Has(kind) {
			flags = append(flags, string(kind)+"=True")
		}
	}
	if len(flags) > 0 {
		b.WriteString("  - Flags: " + strings.Join(flags, ", "))
		b.WriteString("\n")
	}
}

func checkboxGlyph(status taskmodel.Status) string {
	switch status {
	case taskmodel.StatusInProgress:
		return "/"
	case taskmodel.StatusCompleted:
		return "x"
	default:
		return " "
	}
}
