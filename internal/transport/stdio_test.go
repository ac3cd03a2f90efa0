package transport

import (
	"os"
	"strings"
	"testing"
)

func TestBuildArgvStreamingMode(t *testing.T) {
	cfg := (&Config{
		Mode:            ModeStreaming,
		SystemPrompt:    "be terse",
		AllowedTools:    []string{"Read", "Write"},
		DisallowedTools: []string{"Bash"},
		MaxTurns:        5,
		Model:           "claude-test",
		PermissionMode:  "default",
		AddDirs:         []string{"/tmp/a", "/tmp/b"},
		ExtraFlags:      map[string]string{"log-level": "debug", "unsanctioned": "nope"},
	}).withDefaults()

	args := buildArgv(cfg)
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--print", "--output-format stream-json", "--verbose",
		"--system-prompt be terse",
		"--allowedTools Read,Write",
		"--disallowedTools Bash",
		"--max-turns 5",
		"--model claude-test",
		"--permission-mode default",
		"--add-dir /tmp/a",
		"--add-dir /tmp/b",
		"--log-level debug",
		"--input-format stream-json",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("argv %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "unsanctioned") {
		t.Errorf("argv %q should not contain a non-allow-listed extra flag", joined)
	}
}

func TestBuildArgvStringModeAppendsPromptAfterSentinel(t *testing.T) {
	cfg := (&Config{Mode: ModeString, Prompt: "What is 2+2?"}).withDefaults()
	args := buildArgv(cfg)
	if args[len(args)-2] != "--" || args[len(args)-1] != "What is 2+2?" {
		t.Errorf("expected trailing -- <prompt>, got %v", args[len(args)-2:])
	}
}

func TestBuildEnvRejectsDeniedVarsEvenWhenCallerSuppliesThem(t *testing.T) {
	cfg := (&Config{
		Env: map[string]string{
			"LD_PRELOAD": "evil.so",
			"PATH":       "/evil/bin",
			"MY_VAR":     "ok",
		},
	}).withDefaults()

	env := buildEnv(cfg)
	for _, kv := range env {
		if strings.HasPrefix(kv, "LD_PRELOAD=") || kv == "PATH=/evil/bin" {
			t.Errorf("deny-listed variable leaked into child env: %s", kv)
		}
	}

	var sawMyVar, sawMarker, sawVersion bool
	for _, kv := range env {
		if kv == "MY_VAR=ok" {
			sawMyVar = true
		}
		if strings.HasPrefix(kv, "CLAUDE_CODE_ENTRYPOINT=") {
			sawMarker = true
		}
		if strings.HasPrefix(kv, "CLAUDE_AGENT_SDK_VERSION=") {
			sawVersion = true
		}
	}
	if !sawMyVar {
		t.Error("caller-supplied non-denied var should be present")
	}
	if !sawMarker || !sawVersion {
		t.Error("SDK identity markers should always be injected")
	}
}

func TestBuildEnvStripsParentDeniedVarsToo(t *testing.T) {
	t.Setenv("NODE_OPTIONS", "--inspect")
	cfg := (&Config{}).withDefaults()
	env := buildEnv(cfg)
	for _, kv := range env {
		if strings.HasPrefix(kv, "NODE_OPTIONS=") {
			t.Errorf("parent's NODE_OPTIONS should never be propagated, got %s", kv)
		}
	}
}

func TestFindCLIExplicitPathMustExist(t *testing.T) {
	dir := t.TempDir()
	fake := dir + "/claude"
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	path, err := findCLI(fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != fake {
		t.Errorf("path = %q, want %q", path, fake)
	}
}

func TestFindCLIExplicitPathMissingIsCliNotFound(t *testing.T) {
	_, err := findCLI("/nonexistent/path/to/claude")
	if err == nil {
		t.Fatal("expected an error for a nonexistent explicit path")
	}
}
