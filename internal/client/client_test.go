package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stevensu1977/flowq-agent-sdk/internal/transport"
)

// fakeCLIScript writes a tiny shell "CLI" that echoes back one assistant
// message per line of stdin it receives, then exits on EOF. Good enough to
// exercise the read loop without a real Agent CLI binary.
func fakeCLIScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-claude.sh")
	script := `#!/bin/sh
while IFS= read -r line; do
  printf '{"type":"assistant","message":{"model":"fake","content":[{"type":"text","text":"echo"}]}}\n'
done
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewFailsWhenCliMissing(t *testing.T) {
	_, err := New(context.Background(), Options{
		Transport: &transport.Config{CliPath: "/nonexistent/path/to/claude"},
	})
	if err == nil {
		t.Fatal("expected an error when the CLI path does not exist")
	}
}

func TestSendAndNextRoundTripThroughFakeCli(t *testing.T) {
	cliPath := fakeCLIScript(t)
	ctx := context.Background()

	c, err := New(ctx, Options{Transport: &transport.Config{CliPath: cliPath}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Send("hello"); err != nil {
		t.Fatalf("send error: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for echoed assistant message")
		default:
		}
		msg, err, ok := c.Next()
		if !ok {
			t.Fatal("message stream closed before an assistant message arrived")
		}
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if msg.Assistant != nil {
			if len(msg.Assistant.Message.Content) == 0 || msg.Assistant.Message.Content[0].Text == nil {
				t.Fatalf("unexpected assistant content: %+v", msg.Assistant)
			}
			if !strings.Contains(msg.Assistant.Message.Content[0].Text.Text, "echo") {
				t.Fatalf("unexpected text: %q", msg.Assistant.Message.Content[0].Text.Text)
			}
			return
		}
	}
}

func TestSessionIDDefaultsThenLatchesOntoCliValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-claude-session.sh")
	script := `#!/bin/sh
while IFS= read -r line; do
  printf '{"type":"result","subtype":"success","is_error":false,"num_turns":1,"session_id":"cli-assigned-session"}\n'
done
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), Options{Transport: &transport.Config{CliPath: path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	before := c.SessionID()
	if before == "" {
		t.Fatal("expected a locally minted session id before any CLI reply")
	}

	if err := c.Send("hello"); err != nil {
		t.Fatalf("send error: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for result message")
		default:
		}
		msg, err, ok := c.Next()
		if !ok {
			t.Fatal("message stream closed before a result message arrived")
		}
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if msg.Result != nil {
			break
		}
	}

	// readLoop latches the session id asynchronously; poll briefly rather
	// than assuming it is visible the instant Next() returns.
	deadline = time.After(time.Second)
	for {
		if string(c.SessionID()) == "cli-assigned-session" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("SessionID() = %q, want cli-assigned-session", c.SessionID())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
