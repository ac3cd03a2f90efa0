package main

import (
	"github.com/stevensu1977/flowq-agent-sdk/internal/config"
	"github.com/stevensu1977/flowq-agent-sdk/internal/transport"
)

// loadSDKConfig loads the config file named by the global --config flag, or
// falls back to config.Default() when none was given — the demo CLI should
// run with zero setup against a locally installed Agent CLI.
func loadSDKConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// transportConfigFromSDK projects the ambient config's CLI section onto a
// transport.Config, the shape C3/C8/C9 all consume directly.
func transportConfigFromSDK(cfg config.Config) *transport.Config {
	return &transport.Config{
		CliPath:              cfg.CLI.Path,
		AllowedTools:         cfg.CLI.AllowedTools,
		DisallowedTools:      cfg.CLI.DisallowedTools,
		MaxTurns:             cfg.CLI.MaxTurns,
		Model:                cfg.CLI.Model,
		PermissionPromptTool: cfg.CLI.PermissionPromptTool,
		PermissionMode:       cfg.CLI.PermissionMode,
		SettingsPath:         cfg.CLI.SettingsPath,
		AddDirs:              cfg.CLI.AddDirs,
		McpConfig:            cfg.CLI.McpConfig,
		SettingSources:       cfg.CLI.SettingSources,
		ReadTimeout:          cfg.CLI.ReadTimeout,
		CloseTimeout:         cfg.CLI.CloseTimeout,
		MaxLineBytes:         cfg.CLI.MaxLineBytes,
	}
}
