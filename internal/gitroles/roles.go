package gitroles

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/swarmkernel/orchestrator/internal/graph"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// featureScout triggers on feature_discovery=true or the periodic scan
// flag.
type featureScout struct{}

func (featureScout) Name() taskmodel.Role { return taskmodel.RoleFeatureScout }

func (featureScout) TriggerCheck(task *taskmodel.Task, ctx Context) bool {
	return task.Intents.Has(taskmodel.FeatureScoutIntent) || ctx.PeriodicScout
}

// maxTODOFindings and maxUnderdevelopedFindings bound how many proposals
// a single scout pass surfaces, matching the source's top-N limits.
const (
	maxTODOFindings           = 10
	maxUnderdevelopedFindings = 5
)

var todoCommentRe = regexp.MustCompile(`(?i)(TODO|FIXME)\s*[:)]`)

// featureIdea is one candidate the scout surfaces. Each becomes one line
// of the ExitReport's RemainingWork summary; no task or GitHub issue is
// created from it (this system has no issue tracker integration).
type featureIdea struct {
	title string
	file  string
	line  int
}

func (featureScout) Execute(task *taskmodel.Task, ctx Context) taskmodel.ExitReport {
	var warnings []string
	var ideas []featureIdea

	todos, err := findTODOs(ctx.Workspace, maxTODOFindings)
	if err != nil {
		warnings = append(warnings, "todo scan: "+err.Error())
	}
	ideas = append(ideas, todos...)

	if ctx.Graph != nil {
		ideas = append(ideas, findUnderdevelopedModules(ctx.Graph, maxUnderdevelopedFindings)...)
	} else {
		warnings = append(warnings, "knowledge graph not built - skipping underdeveloped-module scan")
	}

	var files []string
	seen := map[string]bool{}
	for _, idea := range ideas {
		if idea.file != "" && !seen[idea.file] {
			seen[idea.file] = true
			files = append(files, idea.file)
		}
	}

	titles := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		titles = append(titles, idea.title)
	}

	return taskmodel.ExitReport{
		TaskID:        task.ID,
		Status:        taskmodel.HandoffCompleted,
		FilesTouched:  files,
		RemainingWork: fmt.Sprintf("scouted %d candidate features: %s", len(ideas), strings.Join(titles, "; ")),
		Warnings:      warnings,
	}
}

// findTODOs scans every source file under root for a line-level TODO or
// FIXME comment, returning at most limit hits in deterministic
// (file, line) order.
func findTODOs(root string, limit int) ([]featureIdea, error) {
	if root == "" {
		return nil, nil
	}
	var found []featureIdea
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isScannableSource(path) {
			return nil
		}
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil // unreadable file, skip
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if todoCommentRe.MatchString(line) {
				rel, _ := filepath.Rel(root, path)
				found = append(found, featureIdea{
					title: fmt.Sprintf("TODO in %s", filepath.Base(path)),
					file:  rel,
					line:  lineNo,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].file != found[j].file {
			return found[i].file < found[j].file
		}
		return found[i].line < found[j].line
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

// findUnderdevelopedModules flags zero-out-degree functions/methods/classes
// outside test files as candidates for follow-up work: code with no
// outgoing calls is either a stub, an orphaned utility, or genuinely done,
// and a human should decide which.
func findUnderdevelopedModules(g *graph.Graph, limit int) []featureIdea {
	outDegree := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Type == taskmodel.EdgeCalls {
			outDegree[e.From]++
		}
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var found []featureIdea
	for _, id := range ids {
		if outDegree[id] != 0 {
			continue
		}
		node := g.Nodes[id]
		switch node.NodeType {
		case taskmodel.NodeFunction, taskmodel.NodeMethod, taskmodel.NodeClass:
		default:
			continue
		}
		if node.File == "" || strings.Contains(node.File, "_test.") || strings.Contains(node.File, "test_") {
			continue
		}
		found = append(found, featureIdea{
			title: fmt.Sprintf("underdeveloped: %s has no outgoing calls", node.Name),
			file:  node.File,
			line:  node.StartLine,
		})
		if len(found) >= limit {
			break
		}
	}
	return found
}

func isScannableSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go", ".py", ".js", ".jsx", ".ts", ".tsx":
		return true
	default:
		return false
	}
}

// codeAuditor triggers on code_audit=true or the periodic scan flag, and
// runs a static-quality pass over the changed files.
type codeAuditor struct{}

func (codeAuditor) Name() taskmodel.Role { return taskmodel.RoleCodeAuditor }

func (codeAuditor) TriggerCheck(task *taskmodel.Task, ctx Context) bool {
	return task.Intents.Has(taskmodel.CodeAuditIntent) || ctx.PeriodicAudit
}

// maxAuditFiles and maxPriorityFindings match the source's top-N caps on
// how much a single pass surfaces.
const (
	maxAuditFiles       = 20
	maxPriorityFindings = 5
)

type auditSeverity string

const (
	severityCritical auditSeverity = "critical"
	severityHigh     auditSeverity = "high"
	severityLow      auditSeverity = "low"
)

type auditFinding struct {
	file     string
	line     int
	severity auditSeverity
	message  string
}

// securityPatterns is checked line-by-line against every audited file.
var securityPatterns = []struct {
	re       *regexp.Regexp
	message  string
	severity auditSeverity
}{
	{regexp.MustCompile(`(?i)password\s*=\s*["'][^"']+["']`), "hardcoded password", severityCritical},
	{regexp.MustCompile(`(?i)api_key\s*=\s*["'][^"']+["']`), "hardcoded API key", severityCritical},
	{regexp.MustCompile(`\beval\s*\(`), "use of eval()", severityHigh},
	{regexp.MustCompile(`\bexec\s*\(`), "use of exec()", severityHigh},
	{regexp.MustCompile(`(?i)shell\s*=\s*true`), "shell injection risk", severityHigh},
}

func (codeAuditor) Execute(task *taskmodel.Task, ctx Context) taskmodel.ExitReport {
	files := task.OutputFiles
	if len(files) == 0 {
		files = task.InputFiles
	}
	if len(files) > maxAuditFiles {
		files = files[:maxAuditFiles]
	}

	var findings []auditFinding
	for _, rel := range files {
		path := rel
		if ctx.Workspace != "" && !filepath.IsAbs(rel) {
			path = filepath.Join(ctx.Workspace, rel)
		}
		fileFindings, err := analyzeFile(path, rel)
		if err != nil {
			findings = append(findings, auditFinding{file: rel, severity: "medium", message: "could not analyze: " + err.Error()})
			continue
		}
		findings = append(findings, fileFindings...)
	}

	var critical, high []auditFinding
	for _, f := range findings {
		switch f.severity {
		case severityCritical:
			critical = append(critical, f)
		case severityHigh:
			high = append(high, f)
		}
	}

	priority := append(append([]auditFinding{}, critical...), high...)
	if len(priority) > maxPriorityFindings {
		priority = priority[:maxPriorityFindings]
	}

	return taskmodel.ExitReport{
		TaskID:       task.ID,
		Status:       taskmodel.HandoffCompleted,
		FilesTouched: files,
		RemainingWork: fmt.Sprintf("found %d issues (%d critical, %d high); flagged %d for priority follow-up",
			len(findings), len(critical), len(high), len(priority)),
	}
}

// analyzeFile runs the security-pattern and TODO scan over a single file,
// tagging findings with rel (the path recorded on the finding, kept
// workspace-relative regardless of how path was resolved on disk).
func analyzeFile(path, rel string) ([]auditFinding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var findings []auditFinding
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		for _, p := range securityPatterns {
			if p.re.MatchString(line) {
				findings = append(findings, auditFinding{file: rel, line: lineNo, severity: p.severity, message: p.message})
			}
		}
		if todoCommentRe.MatchString(line) {
			findings = append(findings, auditFinding{file: rel, line: lineNo, severity: severityLow, message: "TODO/FIXME comment found"})
		}
	}
	return findings, scanner.Err()
}

// issueTriage triggers on issue_triage_needed=true or a non-zero
// new_issues_count. Its Execute returns a COMPLETED report and does not
// file or label any issue.
type issueTriage struct{}

func (issueTriage) Name() taskmodel.Role { return taskmodel.RoleIssueTriage }

func (issueTriage) TriggerCheck(task *taskmodel.Task, ctx Context) bool {
	return task.Intents.Has(taskmodel.IssueTriageIntent) || task.NewIssuesCount > 0
}

func (issueTriage) Execute(task *taskmodel.Task, ctx Context) taskmodel.ExitReport {
	return taskmodel.ExitReport{
		TaskID: task.ID,
		Status: taskmodel.HandoffCompleted,
	}
}

// branchManager triggers on PR approval + CI pass, or the stacked-update
// flag. Its Execute returns a COMPLETED report carrying the task's branch
// name; it does not rebase, merge or push anything.
type branchManager struct{}

func (branchManager) Name() taskmodel.Role { return taskmodel.RoleBranchManager }

func (branchManager) TriggerCheck(task *taskmodel.Task, ctx Context) bool {
	return (ctx.PRApproved && ctx.CIPassed) || task.Intents.Has(taskmodel.BranchManagerIntent)
}

func (branchManager) Execute(task *taskmodel.Task, ctx Context) taskmodel.ExitReport {
	return taskmodel.ExitReport{
		TaskID: task.ID,
		Status: taskmodel.HandoffCompleted,
		Branch: task.Git.BranchName,
	}
}

// projectLifecycle triggers on project_bootstrap=true or a lifecycle task
// type. Its Execute returns a COMPLETED report and performs no
// repository setup or archival.
type projectLifecycle struct{}

func (projectLifecycle) Name() taskmodel.Role { return taskmodel.RoleProjectLifecycle }

func (projectLifecycle) TriggerCheck(task *taskmodel.Task, ctx Context) bool {
	return task.Intents.Has(taskmodel.ProjectLifecycleIntent) ||
		task.TaskType == "project_update" || task.TaskType == "project_archive"
}

func (projectLifecycle) Execute(task *taskmodel.Task, ctx Context) taskmodel.ExitReport {
	return taskmodel.ExitReport{
		TaskID: task.ID,
		Status: taskmodel.HandoffCompleted,
	}
}
