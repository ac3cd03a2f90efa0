// Package memory implements the memory tool (C11): a sandboxed file store
// under <workspace>/.flowq/memories/, with view/create/str_replace/insert/
// delete/rename operations and defense against path traversal.
//
// Grounded on two sources: the tool's wire shape and command dispatch
// (execute_memory_command, the MemoryToolCommand tagged union) come from
// the original source's src-tauri/src/chat.rs; the original's
// memory_tool.rs itself is an unimplemented stub (method bodies absent), so
// the path-resolution defense is instead grounded on the teacher's
// internal/tools/files/resolver.go pattern (filepath.Rel + descendant
// check), hardened further: a leading "/" or "\\", a literal ".." anywhere
// in the path, or a percent-encoded dot ("%2e", any case) in the raw path
// is rejected outright
// before any cleaning happens, rather than merely clamped into the root.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/stevensu1977/flowq-agent-sdk/internal/sdkerrors"
)

// RootDirName is the fixed directory under the workspace root that sandboxes
// all memory files.
const RootDirName = ".flowq/memories"

// CommandKind discriminates the MemoryCommand tagged union.
type CommandKind string

const (
	CommandView       CommandKind = "view"
	CommandCreate     CommandKind = "create"
	CommandStrReplace CommandKind = "str_replace"
	CommandInsert     CommandKind = "insert"
	CommandDelete     CommandKind = "delete"
	CommandRename     CommandKind = "rename"
)

// Command is one memory-tool invocation, tagged by Kind.
type Command struct {
	Kind CommandKind

	Path string

	// View
	ViewRangeStart int
	ViewRangeEnd   int
	HasViewRange   bool

	// Create
	FileText string

	// StrReplace
	OldStr string
	NewStr string

	// Insert
	InsertLine int

	// Rename
	NewPath string
}

// Result is the outcome of executing a Command.
type Result struct {
	Success bool
	Output  string
	Error   string
}

func ok(output string) Result  { return Result{Success: true, Output: output} }
func fail(err error) Result    { return Result{Success: false, Error: err.Error()} }
func failMsg(msg string) Result { return Result{Success: false, Error: msg} }

// Tool is a sandboxed file store rooted at <workspace>/.flowq/memories/.
type Tool struct {
	root string
}

// New constructs a Tool rooted under workspace's memory directory, creating
// it if necessary.
func New(workspace string) (*Tool, error) {
	root := filepath.Join(workspace, filepath.FromSlash(RootDirName))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &sdkerrors.IoError{Cause: err}
	}
	return &Tool{root: root}, nil
}

// resolve validates and resolves a caller-supplied relative path against
// the sandbox root, rejecting any attempt to escape it.
func (t *Tool) resolve(rawPath string) (string, error) {
	if rawPath == "" || rawPath == "." {
		return t.root, nil
	}
	if strings.HasPrefix(rawPath, "/") || strings.HasPrefix(rawPath, "\\") {
		return "", fmt.Errorf("absolute paths are not allowed: %q", rawPath)
	}
	lower := strings.ToLower(rawPath)
	if strings.Contains(rawPath, "..") || strings.Contains(lower, "%2e") {
		return "", fmt.Errorf("path traversal is not allowed: %q", rawPath)
	}

	target := filepath.Join(t.root, filepath.FromSlash(rawPath))
	rel, err := filepath.Rel(t.root, target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes memory sandbox: %q", rawPath)
	}
	return target, nil
}

// Execute dispatches a Command to its handler, matching the original
// crate's execute_memory_command switch (§4.9).
func (t *Tool) Execute(cmd Command) Result {
	switch cmd.Kind {
	case CommandView:
		return t.view(cmd)
	case CommandCreate:
		return t.create(cmd)
	case CommandStrReplace:
		return t.strReplace(cmd)
	case CommandInsert:
		return t.insert(cmd)
	case CommandDelete:
		return t.delete(cmd)
	case CommandRename:
		return t.rename(cmd)
	default:
		return failMsg("unknown memory command: " + string(cmd.Kind))
	}
}

func (t *Tool) view(cmd Command) Result {
	target, err := t.resolve(cmd.Path)
	if err != nil {
		return fail(err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fail(err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			return fail(err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			return ok("(empty directory)")
		}
		return ok(strings.Join(names, "\n"))
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return fail(err)
	}
	lines := strings.Split(string(data), "\n")

	start, end := 1, len(lines)
	if cmd.HasViewRange {
		if cmd.ViewRangeStart > 0 {
			start = cmd.ViewRangeStart
		}
		if cmd.ViewRangeEnd > 0 && cmd.ViewRangeEnd < end {
			end = cmd.ViewRangeEnd
		}
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ok("")
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		b.WriteString(strconv.Itoa(i))
		b.WriteString("| ")
		b.WriteString(lines[i-1])
		b.WriteString("\n")
	}
	return ok(b.String())
}

func (t *Tool) create(cmd Command) Result {
	target, err := t.resolve(cmd.Path)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fail(err)
	}
	if err := os.WriteFile(target, []byte(cmd.FileText), 0o644); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("created %s", cmd.Path))
}

func (t *Tool) strReplace(cmd Command) Result {
	target, err := t.resolve(cmd.Path)
	if err != nil {
		return fail(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return fail(err)
	}
	content := string(data)

	count := strings.Count(content, cmd.OldStr)
	if count == 0 {
		return failMsg("old_str not found in file: " + cmd.Path)
	}
	if count > 1 {
		return failMsg(fmt.Sprintf("old_str is not unique in file (found %d occurrences): %s", count, cmd.Path))
	}

	replaced := strings.Replace(content, cmd.OldStr, cmd.NewStr, 1)
	if err := os.WriteFile(target, []byte(replaced), 0o644); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("replaced text in %s", cmd.Path))
}

func (t *Tool) insert(cmd Command) Result {
	target, err := t.resolve(cmd.Path)
	if err != nil {
		return fail(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return fail(err)
	}
	lines := strings.Split(string(data), "\n")

	at := cmd.InsertLine
	if at < 0 {
		at = 0
	}
	if at > len(lines) {
		return failMsg(fmt.Sprintf("insert line %d exceeds file length %d: %s", cmd.InsertLine, len(lines), cmd.Path))
	}

	inserted := strings.Split(cmd.NewStr, "\n")
	newLines := make([]string, 0, len(lines)+len(inserted))
	newLines = append(newLines, lines[:at]...)
	newLines = append(newLines, inserted...)
	newLines = append(newLines, lines[at:]...)

	if err := os.WriteFile(target, []byte(strings.Join(newLines, "\n")), 0o644); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("inserted text into %s at line %d", cmd.Path, at+1))
}

func (t *Tool) delete(cmd Command) Result {
	target, err := t.resolve(cmd.Path)
	if err != nil {
		return fail(err)
	}
	if target == t.root {
		return failMsg("cannot delete the memories root")
	}
	if err := os.RemoveAll(target); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("deleted %s", cmd.Path))
}

func (t *Tool) rename(cmd Command) Result {
	oldTarget, err := t.resolve(cmd.Path)
	if err != nil {
		return fail(err)
	}
	newTarget, err := t.resolve(cmd.NewPath)
	if err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(newTarget), 0o755); err != nil {
		return fail(err)
	}
	if err := os.Rename(oldTarget, newTarget); err != nil {
		return fail(err)
	}
	return ok(fmt.Sprintf("renamed %s to %s", cmd.Path, cmd.NewPath))
}
