package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"recogni/internal/config"
	"recogni/internal/deps"
	"recogni/internal/logging"
)

type commandContext struct {
	configFlag    *string
	envFileFlag   *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	logPath    string
	loggerErr  error

	// runner executes detection commands; nil uses os/exec.
	runner deps.Runner
}

func newCommandContext(configFlag, envFileFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		envFileFlag:   envFileFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if envFile := flagValue(c.envFileFlag); envFile != "" {
			if _, err := config.LoadEnvFile(envFile); err != nil {
				c.configErr = err
				return
			}
		}
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// runLogger builds the console logger and, for commands that write files, the
// per-run log file. Old run logs are pruned after the new one is opened.
func (c *commandContext) runLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, logPath, err := logging.NewFromConfig(cfg, time.Now())
		if err != nil {
			c.loggerErr = fmt.Errorf("setup logging: %w", err)
			return
		}
		if logPath != "" {
			logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
		}
		c.logger = logger
		c.logPath = logPath
	})
	return c.logger, c.loggerErr
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
