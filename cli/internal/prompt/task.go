package prompt

import (
	"fmt"
	"strconv"

	"gitmsg/cli/internal/format"
)

// DefaultLengthGuidance is the conventional task's own length rule. It is
// left out when an explicit character limit is requested so the prompt never
// carries two length constraints.
const DefaultLengthGuidance = "- Keep total length under 100 characters\n"

const freeformTask = `Generate a commit message in natural language.

Requirements:
- Use imperative mood (e.g., "Add feature" not "Added feature")
- Keep it concise (1-3 sentences)
- Focus on the most significant changes
- No special formatting required

Output only the commit message text, nothing else.`

const conventionalTask = `Generate a commit message following Conventional Commits specification.

Format: type(scope): description

Types:
- feat: New feature
- fix: Bug fix
- docs: Documentation changes
- style: Code style/formatting (no logic change)
- refactor: Code restructuring (no behavior change)
- test: Adding or updating tests
- chore: Build process, dependencies, etc.

Requirements:
- type is REQUIRED
- scope is OPTIONAL (use if changes are focused on one area)
- description must be lowercase, imperative mood
%s- No period at end of description

Examples:
feat(auth): add JWT token validation
fix(api): handle null pointer in user endpoint
docs: update installation instructions

Output only the commit message (one line), nothing else.`

const gitmojiTask = `Generate a commit message with a relevant emoji prefix (gitmoji style).

Common emojis and their meanings:
✨ :sparkles: - New feature
🐛 :bug: - Bug fix
📝 :memo: - Documentation
💄 :lipstick: - UI/styling
♻️ :recycle: - Refactoring
✅ :white_check_mark: - Tests
🔧 :wrench: - Configuration
⚡ :zap: - Performance
🔒 :lock: - Security

Format: emoji description

Requirements:
- Choose emoji based on primary change type
- Description should be concise, imperative mood
- Use only ONE emoji (the most relevant)

Examples:
✨ Add JWT authentication
🐛 Fix null pointer in user endpoint
📝 Update installation guide

Output only the commit message (emoji + description), nothing else.`

// TaskFor returns the task instructions for f. maxChars > 0 drops the
// conventional default length rule and appends one explicit limit.
func TaskFor(f format.Format, maxChars int) (string, error) {
	var task string
	switch f {
	case format.Freeform:
		task = freeformTask
	case format.Conventional:
		guidance := DefaultLengthGuidance
		if maxChars > 0 {
			guidance = ""
		}
		task = fmt.Sprintf(conventionalTask, guidance)
	case format.Gitmoji:
		task = gitmojiTask
	default:
		return "", fmt.Errorf("unknown format %v: must be one of %v", f, format.Names())
	}
	if maxChars > 0 {
		task += "\n\nAdditional requirement:\n- Ensure the final commit message is at most " +
			strconv.Itoa(maxChars) + " characters long."
	}
	return task, nil
}
