package providers

import (
	"fmt"

	"github.com/stevensu1977/flowq-agent-sdk/internal/memory"
)

// memoryCommandFromInput translates a tool_use call's raw input map into a
// memory.Command, mirroring chat.rs's execute_memory_command field
// extraction for each command kind.
func memoryCommandFromInput(input map[string]any) (memory.Command, error) {
	kind, _ := input["command"].(string)
	switch memory.CommandKind(kind) {
	case memory.CommandView, memory.CommandCreate, memory.CommandStrReplace, memory.CommandInsert, memory.CommandDelete, memory.CommandRename:
	default:
		return memory.Command{}, fmt.Errorf("memory: unknown command %q", kind)
	}

	cmd := memory.Command{Kind: memory.CommandKind(kind)}
	cmd.Path, _ = input["path"].(string)
	cmd.FileText, _ = input["file_text"].(string)
	cmd.OldStr, _ = input["old_str"].(string)
	cmd.NewStr, _ = input["new_str"].(string)
	cmd.NewPath, _ = input["new_path"].(string)

	if v, ok := input["insert_line"].(float64); ok {
		cmd.InsertLine = int(v)
	}

	if raw, ok := input["view_range"].([]any); ok && len(raw) == 2 {
		start, okStart := raw[0].(float64)
		end, okEnd := raw[1].(float64)
		if okStart && okEnd {
			cmd.HasViewRange = true
			cmd.ViewRangeStart = int(start)
			cmd.ViewRangeEnd = int(end)
		}
	}

	return cmd, nil
}
