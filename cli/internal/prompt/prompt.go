// Package prompt assembles the generation request for a commit message: a
// fixed system prompt and a user prompt made of optional context blocks, the
// diff, and format-specific task instructions.
package prompt

import (
	"fmt"
	"strings"

	"gitmsg/cli/internal/branch"
	"gitmsg/cli/internal/diff"
	"gitmsg/cli/internal/format"
	"gitmsg/cli/internal/git"
)

// SystemPrompt is the role description sent with every request.
const SystemPrompt = `You are an expert commit message generator. Your role is to analyze code changes and produce clear, informative commit messages that help developers understand what changed and why.

Guidelines:
- Focus on WHAT changed and WHY (when obvious from diff)
- Be concise but informative
- Use technical terminology appropriately
- Avoid stating the obvious (e.g., "Updated file.py")
- Prioritize clarity over cleverness`

// Limits on how much of each list reaches the prompt.
const (
	MaxHistoryEntries = 5
	MaxExamples       = 5
)

// TruncationNotice precedes the diff when it was cut to fit the budget.
const TruncationNotice = "[Diff truncated to fit token limits]"

// Example is a generated message and the version the user actually committed.
type Example struct {
	Generated string
	Edited    string
}

// Context is everything known about the change being described. Only Diff
// is required; zero values of the other fields omit their block.
type Context struct {
	Diff         diff.Staged
	History      []git.CommitRecord // newest first
	Instructions git.Instructions
	Branch       *branch.Info
	Hint         string
	Examples     []Example
}

// Pair is the system and user prompt for one request.
type Pair struct {
	System string
	User   string
}

// Assemble renders c as blocks in fixed order (branch, history,
// instructions, hint, examples, diff summary, diff) separated by one blank
// line. Absent blocks contribute nothing.
func Assemble(c Context) string {
	var blocks []string
	add := func(b string) {
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	add(branchBlock(c.Branch))
	add(historyBlock(c.History))
	add(instructionsBlock(c.Instructions))
	if c.Hint != "" {
		add("User hint: " + c.Hint)
	}
	add(examplesBlock(c.Examples))
	add(summaryBlock(c.Diff))
	add(diffBlock(c.Diff))
	return strings.Join(blocks, "\n\n")
}

func branchBlock(b *branch.Info) string {
	if b == nil || (b.Type == "" && b.Summary == "") {
		return ""
	}
	lines := []string{"Branch context:"}
	if b.Type != "" {
		lines = append(lines, "- Branch type: "+b.Type)
	}
	if b.Summary != "" {
		lines = append(lines, "- Branch summary: "+b.Summary)
	}
	return strings.Join(lines, "\n")
}

func historyBlock(commits []git.CommitRecord) string {
	if len(commits) == 0 {
		return ""
	}
	lines := []string{"Recent commits for style reference:"}
	for i, c := range commits {
		if i == MaxHistoryEntries {
			break
		}
		lines = append(lines, "- "+c.Message)
	}
	return strings.Join(lines, "\n")
}

func instructionsBlock(inst git.Instructions) string {
	if !inst.Exists || inst.Content == "" {
		return ""
	}
	return "Repository instructions:\n" + inst.Content
}

func examplesBlock(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous style examples from this repository:\n\n")
	for i, ex := range examples {
		if i == MaxExamples {
			break
		}
		fmt.Fprintf(&b, "Example %d:\nGenerated: \"%s\"\nYou edited to: \"%s\"\n\n", i+1, ex.Generated, ex.Edited)
	}
	b.WriteString("Please match this editing style in your response.")
	return b.String()
}

func summaryBlock(d diff.Staged) string {
	return fmt.Sprintf("Staged changes summary:\n- Files changed: %d\n- Lines added: %d\n- Lines removed: %d",
		len(d.Files), d.LinesAdded, d.LinesRemoved)
}

func diffBlock(d diff.Staged) string {
	if d.Truncated {
		return TruncationNotice + "\nDiff:\n" + d.Raw
	}
	return "Diff:\n" + d.Raw
}

// Build returns the prompt pair for c in format f. maxChars > 0 appends an
// explicit length requirement. An invalid format is rejected before any
// text is built.
func Build(c Context, f format.Format, maxChars int) (Pair, error) {
	task, err := TaskFor(f, maxChars)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		System: SystemPrompt,
		User:   Assemble(c) + "\n\n" + task,
	}, nil
}
