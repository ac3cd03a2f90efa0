package memory

import (
	"path/filepath"
	"testing"
)

func newTestTool(t *testing.T) *Tool {
	t.Helper()
	tool, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tool
}

func TestCreateThenViewRoundTrip(t *testing.T) {
	tool := newTestTool(t)

	res := tool.Execute(Command{Kind: CommandCreate, Path: "notes.md", FileText: "line one\nline two\n"})
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}

	res = tool.Execute(Command{Kind: CommandView, Path: "notes.md"})
	if !res.Success {
		t.Fatalf("view failed: %s", res.Error)
	}
	if res.Output == "" {
		t.Error("expected non-empty view output")
	}
}

func TestStrReplaceRequiresUniqueMatch(t *testing.T) {
	tool := newTestTool(t)
	tool.Execute(Command{Kind: CommandCreate, Path: "f.txt", FileText: "a b a"})

	res := tool.Execute(Command{Kind: CommandStrReplace, Path: "f.txt", OldStr: "a", NewStr: "z"})
	if res.Success {
		t.Fatal("expected failure on a non-unique old_str")
	}
}

func TestStrReplaceFailureLeavesFileUnchanged(t *testing.T) {
	tool := newTestTool(t)
	original := "only once here"
	tool.Execute(Command{Kind: CommandCreate, Path: "f.txt", FileText: original})

	res := tool.Execute(Command{Kind: CommandStrReplace, Path: "f.txt", OldStr: "missing", NewStr: "z"})
	if res.Success {
		t.Fatal("expected failure when old_str is absent")
	}

	view := tool.Execute(Command{Kind: CommandView, Path: "f.txt"})
	if view.Output != "1| "+original+"\n" {
		t.Errorf("file should be unchanged after a failed replace, got %q", view.Output)
	}
}

func TestStrReplaceSuccess(t *testing.T) {
	tool := newTestTool(t)
	tool.Execute(Command{Kind: CommandCreate, Path: "f.txt", FileText: "hello world"})

	res := tool.Execute(Command{Kind: CommandStrReplace, Path: "f.txt", OldStr: "world", NewStr: "there"})
	if !res.Success {
		t.Fatalf("replace failed: %s", res.Error)
	}
}

func TestDeleteAndRename(t *testing.T) {
	tool := newTestTool(t)
	tool.Execute(Command{Kind: CommandCreate, Path: "a.txt", FileText: "x"})

	res := tool.Execute(Command{Kind: CommandRename, Path: "a.txt", NewPath: "b.txt"})
	if !res.Success {
		t.Fatalf("rename failed: %s", res.Error)
	}

	res = tool.Execute(Command{Kind: CommandDelete, Path: "b.txt"})
	if !res.Success {
		t.Fatalf("delete failed: %s", res.Error)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	tool := newTestTool(t)
	cases := []string{
		"../x",
		"a/../../b",
		"%2e%2e/x",
		"/etc/passwd",
		`\windows\system32`,
	}
	for _, p := range cases {
		res := tool.Execute(Command{Kind: CommandCreate, Path: p, FileText: "x"})
		if res.Success {
			t.Errorf("expected path %q to be rejected", p)
		}
	}
}

func TestViewEmptyPathIsRoot(t *testing.T) {
	tool := newTestTool(t)

	res := tool.Execute(Command{Kind: CommandView, Path: ""})
	if !res.Success {
		t.Fatalf("view(\"\") failed: %s", res.Error)
	}
	if res.Output != "(empty directory)" {
		t.Errorf("view(\"\") = %q, want %q", res.Output, "(empty directory)")
	}

	dot := tool.Execute(Command{Kind: CommandView, Path: "."})
	if !dot.Success || dot.Output != "(empty directory)" {
		t.Errorf(`view(".") = %+v, want success with "(empty directory)"`, dot)
	}
}

func TestInsertBeyondFileLengthFails(t *testing.T) {
	tool := newTestTool(t)
	tool.Execute(Command{Kind: CommandCreate, Path: "f.txt", FileText: "a\nb\nc"})

	res := tool.Execute(Command{Kind: CommandInsert, Path: "f.txt", InsertLine: 99, NewStr: "z"})
	if res.Success {
		t.Fatal("expected failure when insert line exceeds file length")
	}

	view := tool.Execute(Command{Kind: CommandView, Path: "f.txt"})
	if view.Output != "1| a\n2| b\n3| c\n" {
		t.Errorf("file should be unchanged after a failed insert, got %q", view.Output)
	}
}

func TestInsertSplitsMultilineText(t *testing.T) {
	tool := newTestTool(t)
	tool.Execute(Command{Kind: CommandCreate, Path: "f.txt", FileText: "a\nd"})

	res := tool.Execute(Command{Kind: CommandInsert, Path: "f.txt", InsertLine: 1, NewStr: "b\nc"})
	if !res.Success {
		t.Fatalf("insert failed: %s", res.Error)
	}

	view := tool.Execute(Command{Kind: CommandView, Path: "f.txt"})
	if view.Output != "1| a\n2| b\n3| c\n4| d\n" {
		t.Errorf("view after multi-line insert = %q", view.Output)
	}
}

func TestDeleteRootIsForbidden(t *testing.T) {
	tool := newTestTool(t)
	tool.Execute(Command{Kind: CommandCreate, Path: "a.txt", FileText: "x"})

	for _, p := range []string{"", "."} {
		res := tool.Execute(Command{Kind: CommandDelete, Path: p})
		if res.Success {
			t.Errorf("expected delete(%q) of the memories root to fail", p)
		}
	}

	view := tool.Execute(Command{Kind: CommandView, Path: "a.txt"})
	if !view.Success {
		t.Fatalf("root contents should survive rejected root deletion: %s", view.Error)
	}
}

func TestMemoryRootIsSandboxed(t *testing.T) {
	workspace := t.TempDir()
	tool, err := New(workspace)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(workspace, ".flowq", "memories")
	if tool.root != want {
		t.Errorf("root = %q, want %q", tool.root, want)
	}
}
