package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file at path, expanding ${VAR}/$VAR
// environment references before parsing (grounded on the teacher's
// loader.go, which does the same os.ExpandEnv-before-decode step so that
// provider API keys never need to be committed to the config file itself),
// and merges the result onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var decoded Config
	if err := yaml.Unmarshal([]byte(expanded), &decoded); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	mergeInto(&cfg, decoded)
	return cfg, nil
}

// mergeInto overlays every non-zero field of decoded onto base. Go has no
// generic "is this the zero value" helper for nested structs at this
// granularity beyond reflection, so this mirrors the teacher's config
// package's field-by-field merge style (see config_llm.go's Merge methods)
// rather than reaching for reflect.
func mergeInto(base *Config, decoded Config) {
	if decoded.CLI.Path != "" {
		base.CLI.Path = decoded.CLI.Path
	}
	if len(decoded.CLI.AllowedTools) > 0 {
		base.CLI.AllowedTools = decoded.CLI.AllowedTools
	}
	if len(decoded.CLI.DisallowedTools) > 0 {
		base.CLI.DisallowedTools = decoded.CLI.DisallowedTools
	}
	if decoded.CLI.MaxTurns != 0 {
		base.CLI.MaxTurns = decoded.CLI.MaxTurns
	}
	if decoded.CLI.Model != "" {
		base.CLI.Model = decoded.CLI.Model
	}
	if decoded.CLI.PermissionPromptTool != "" {
		base.CLI.PermissionPromptTool = decoded.CLI.PermissionPromptTool
	}
	if decoded.CLI.PermissionMode != "" {
		base.CLI.PermissionMode = decoded.CLI.PermissionMode
	}
	if decoded.CLI.SettingsPath != "" {
		base.CLI.SettingsPath = decoded.CLI.SettingsPath
	}
	if len(decoded.CLI.AddDirs) > 0 {
		base.CLI.AddDirs = decoded.CLI.AddDirs
	}
	if decoded.CLI.McpConfig != "" {
		base.CLI.McpConfig = decoded.CLI.McpConfig
	}
	if len(decoded.CLI.SettingSources) > 0 {
		base.CLI.SettingSources = decoded.CLI.SettingSources
	}
	if decoded.CLI.ReadTimeout != 0 {
		base.CLI.ReadTimeout = decoded.CLI.ReadTimeout
	}
	if decoded.CLI.CloseTimeout != 0 {
		base.CLI.CloseTimeout = decoded.CLI.CloseTimeout
	}
	if decoded.CLI.MaxLineBytes != 0 {
		base.CLI.MaxLineBytes = decoded.CLI.MaxLineBytes
	}

	if decoded.Memory.WorkspaceRoot != "" {
		base.Memory.WorkspaceRoot = decoded.Memory.WorkspaceRoot
	}

	if decoded.Providers.Default != "" {
		base.Providers.Default = decoded.Providers.Default
	}
	base.Providers.Anthropic = mergeAnthropic(base.Providers.Anthropic, decoded.Providers.Anthropic)
	base.Providers.Bedrock = mergeBedrock(base.Providers.Bedrock, decoded.Providers.Bedrock)
	base.Providers.OpenAI = mergeOpenAI(base.Providers.OpenAI, decoded.Providers.OpenAI)

	if decoded.Logging.Level != "" {
		base.Logging.Level = decoded.Logging.Level
	}
	if decoded.Logging.Format != "" {
		base.Logging.Format = decoded.Logging.Format
	}
	if decoded.Logging.AddSource {
		base.Logging.AddSource = true
	}

	if decoded.Permission.Mode != "" {
		base.Permission.Mode = decoded.Permission.Mode
	}
	if len(decoded.Permission.AllowList) > 0 {
		base.Permission.AllowList = decoded.Permission.AllowList
	}
	if len(decoded.Permission.DenyList) > 0 {
		base.Permission.DenyList = decoded.Permission.DenyList
	}
}

func mergeAnthropic(base, decoded AnthropicConf) AnthropicConf {
	if decoded.APIKey != "" {
		base.APIKey = decoded.APIKey
	}
	if decoded.BaseURL != "" {
		base.BaseURL = decoded.BaseURL
	}
	if decoded.DefaultModel != "" {
		base.DefaultModel = decoded.DefaultModel
	}
	return base
}

func mergeBedrock(base, decoded BedrockConf) BedrockConf {
	if decoded.Region != "" {
		base.Region = decoded.Region
	}
	if decoded.AccessKeyID != "" {
		base.AccessKeyID = decoded.AccessKeyID
	}
	if decoded.SecretAccessKey != "" {
		base.SecretAccessKey = decoded.SecretAccessKey
	}
	if decoded.SessionToken != "" {
		base.SessionToken = decoded.SessionToken
	}
	if decoded.Profile != "" {
		base.Profile = decoded.Profile
	}
	if decoded.DefaultModel != "" {
		base.DefaultModel = decoded.DefaultModel
	}
	return base
}

func mergeOpenAI(base, decoded OpenAIConf) OpenAIConf {
	if decoded.APIKey != "" {
		base.APIKey = decoded.APIKey
	}
	if decoded.BaseURL != "" {
		base.BaseURL = decoded.BaseURL
	}
	if decoded.DefaultModel != "" {
		base.DefaultModel = decoded.DefaultModel
	}
	return base
}
