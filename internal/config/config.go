// Package config implements the SDK's ambient configuration loader (A2): a
// YAML document supplying defaults for every client.Options/transport.Config
// field the caller would otherwise have to set by hand (CLI path,
// allowed/disallowed tools, permission mode, MCP config path, provider
// credentials, memory workspace root), with optional live reload.
//
// Grounded on the teacher's internal/config package family (config.go's
// struct-of-structs shape decoded via gopkg.in/yaml.v3, loader.go's
// os.ExpandEnv-before-parse step) generalized to the SDK's own surface; the
// $include directive and JSON5 support in the teacher's loader have no
// SPEC_FULL.md component to bind to (the SDK config is a single small
// document, not nexus's multi-file deployment config) and are not carried.
package config

import (
	"time"
)

// Config is the top-level SDK configuration document.
type Config struct {
	CLI        CLIConfig        `yaml:"cli"`
	Memory     MemoryConfig     `yaml:"memory"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Logging    LoggingConfig    `yaml:"logging"`
	Permission PermissionConfig `yaml:"permission"`
}

// CLIConfig configures how the subprocess transport (C3) locates and runs
// the Agent CLI.
type CLIConfig struct {
	// Path overrides CLI resolution entirely, matching transport.Config.CliPath.
	Path string `yaml:"path"`

	AllowedTools    []string `yaml:"allowed_tools"`
	DisallowedTools []string `yaml:"disallowed_tools"`

	MaxTurns int    `yaml:"max_turns"`
	Model    string `yaml:"model"`

	PermissionPromptTool string `yaml:"permission_prompt_tool"`
	PermissionMode       string `yaml:"permission_mode"`

	SettingsPath   string   `yaml:"settings_path"`
	AddDirs        []string `yaml:"add_dirs"`
	McpConfig      string   `yaml:"mcp_config"`
	SettingSources []string `yaml:"setting_sources"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	CloseTimeout time.Duration `yaml:"close_timeout"`
	MaxLineBytes int           `yaml:"max_line_bytes"`
}

// MemoryConfig configures the memory tool's (C11) sandboxed root.
type MemoryConfig struct {
	// WorkspaceRoot is the directory under which .flowq/memories/ is
	// created. Defaults to the current working directory when empty.
	WorkspaceRoot string `yaml:"workspace_root"`
}

// ProvidersConfig configures the direct-provider loop's (C10) backends.
// At most one backend is normally active per SDK instance; all three are
// modeled so a config file can select between them with a "default"
// backend name.
type ProvidersConfig struct {
	Default   string        `yaml:"default"`
	Anthropic AnthropicConf `yaml:"anthropic"`
	Bedrock   BedrockConf   `yaml:"bedrock"`
	OpenAI    OpenAIConf    `yaml:"openai"`
}

type AnthropicConf struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

type BedrockConf struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	Profile         string `yaml:"profile"`
	DefaultModel    string `yaml:"default_model"`
}

type OpenAIConf struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// LoggingConfig configures the observability logger (A1).
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// PermissionConfig seeds the permission manager's (C6) allow/deny lists.
// The callback itself is always supplied in-process, never from config.
type PermissionConfig struct {
	Mode      string   `yaml:"mode"`
	AllowList []string `yaml:"allow_list"`
	DenyList  []string `yaml:"deny_list"`
}

// Default returns a Config with the same zero-value defaults the
// transport, memory, and observability packages themselves fall back to
// when left unset, so a freshly loaded Config is always safe to wire in
// directly.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		CLI: CLIConfig{
			ReadTimeout:  5 * time.Minute,
			CloseTimeout: 5 * time.Second,
			MaxLineBytes: 1 << 20,
		},
	}
}
