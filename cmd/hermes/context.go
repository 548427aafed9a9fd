package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Aidajafarbigloo/hermes/internal/config"
	"github.com/Aidajafarbigloo/hermes/internal/journal"
	"github.com/Aidajafarbigloo/hermes/internal/logging"
	"github.com/Aidajafarbigloo/hermes/internal/pipeline"
	"github.com/Aidajafarbigloo/hermes/internal/plugin"
	"github.com/Aidajafarbigloo/hermes/internal/workspace"
)

type commandContext struct {
	pathFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(pathFlag, configFlag *string) *commandContext {
	return &commandContext{
		pathFlag:   pathFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) projectDir() (string, error) {
	dir := "."
	if c.pathFlag != nil && strings.TrimSpace(*c.pathFlag) != "" {
		dir = strings.TrimSpace(*c.pathFlag)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory %s: %w", dir, err)
	}
	return abs, nil
}

func (c *commandContext) ensureConfig() (*config.Config, string, error) {
	c.configOnce.Do(func() {
		dir, err := c.projectDir()
		if err != nil {
			c.configErr = err
			return
		}
		var explicit string
		if c.configFlag != nil {
			explicit = strings.TrimSpace(*c.configFlag)
		}
		cfg, path, _, err := config.Load(dir, explicit)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configPath, c.configErr
}

// runEnv is everything a stage command needs: the locked workspace, the run
// journal, and the pipeline wired to the built-in collaborators.
type runEnv struct {
	projectDir string
	config     *config.Config
	logger     *slog.Logger
	ws         *workspace.Workspace
	journal    *journal.Journal
	pipeline   *pipeline.Pipeline
}

// withRun sets up a locked run environment, executes fn, and tears the
// environment down again. Stage commands share this to guarantee the
// workspace lock and journal are always released.
func (c *commandContext) withRun(fn func(*runEnv) error) error {
	cfg, configPath, err := c.ensureConfig()
	if err != nil {
		return err
	}
	dir, err := c.projectDir()
	if err != nil {
		return err
	}

	ws := workspace.New(dir)
	if err := ws.Acquire(); err != nil {
		return err
	}
	defer func() { _ = ws.Release() }()

	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: ws.LogPath(),
	})
	if err != nil {
		return err
	}

	jrnl, err := journal.Open(ws.JournalPath())
	if err != nil {
		return err
	}
	defer func() { _ = jrnl.Close() }()

	inv := &plugin.Invocation{
		ProjectDir: dir,
		ConfigPath: configPath,
		Config:     cfg,
		Logger:     logger,
	}
	env := &runEnv{
		projectDir: dir,
		config:     cfg,
		logger:     logger,
		ws:         ws,
		journal:    jrnl,
		pipeline:   pipeline.New(inv, pipeline.Builtins(ws), ws, jrnl),
	}
	return fn(env)
}

// withWorkspace is the lighter variant for read-only commands that inspect
// caches without running a stage.
func (c *commandContext) withWorkspace(fn func(*workspace.Workspace) error) error {
	dir, err := c.projectDir()
	if err != nil {
		return err
	}
	return fn(workspace.New(dir))
}
