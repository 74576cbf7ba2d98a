package internal

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/todosync/internal/parser"
	"github.com/starford/todosync/internal/schedule"
	"github.com/starford/todosync/internal/session"
	"github.com/starford/todosync/internal/state"
	"github.com/starford/todosync/internal/storage"
	"github.com/starford/todosync/internal/tag"
	"github.com/starford/todosync/internal/watch"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Notes     NotesConfig       `yaml:"notes"`
	Markers   []parser.Marker   `yaml:"markers"`
	Tags      TagsConfig        `yaml:"tags"`
	State     StateConfig       `yaml:"state"`
	Schedule  ScheduleConfig    `yaml:"schedule"`
	Session   SessionConfig     `yaml:"session"`
	Watch     WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Workspace.Validate(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := c.Notes.Validate(); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	for i := range c.Markers {
		if err := validateMarker(&c.Markers[i]); err != nil {
			return fmt.Errorf("markers[%d]: %w", i, err)
		}
	}
	if err := c.Tags.Validate(); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	if err := c.State.Validate(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level      `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	LogFile   string          `yaml:"log_file"`
	LogRotate LogRotateConfig `yaml:"log_rotate"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
		validation.Field(&c.LogRotate),
	)
}

// LogRotateConfig bounds the log file when LogFile is set.
type LogRotateConfig struct {
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Validate validates the rotation limits.
func (c LogRotateConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// WorkspaceConfig locates the documents. Every other path is relative to
// Root.
type WorkspaceConfig struct {
	Root   string `yaml:"root"`
	Master string `yaml:"master"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	if c.Master != "" {
		c.Master = storage.Clean(c.Master)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Master, validation.Required, validation.By(relativePath)),
	)
}

// NotesConfig selects the note documents.
type NotesConfig struct {
	Dirs       []string `yaml:"dirs"`
	Extensions []string `yaml:"extensions"`
	Recursive  bool     `yaml:"recursive"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	for i, d := range c.Dirs {
		if d != "" {
			c.Dirs[i] = storage.Clean(d)
		}
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dirs, validation.Required, validation.Each(validation.Required, validation.By(relativePath))),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Required)),
	)
}

// TagsConfig holds the identifier format.
type TagsConfig struct {
	Width int `yaml:"width"`
}

// Validate validates the tags configuration.
func (c *TagsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1), validation.Max(16)),
	)
}

// StateConfig selects where state is persisted. Path is a directory for
// the yaml backend and a database file for sqlite.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = state.BackendYAML
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(state.BackendYAML, state.BackendSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// ScheduleConfig tunes the session scheduler.
type ScheduleConfig struct {
	PriorityThreshold int `yaml:"priority_threshold"`
}

// SessionConfig tunes the interactive session.
type SessionConfig struct {
	Tick time.Duration `yaml:"tick"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

func validateMarker(m *parser.Marker) error {
	if err := validation.ValidateStruct(m,
		validation.Field(&m.Unchecked, validation.Required),
		validation.Field(&m.Checked, validation.Required),
	); err != nil {
		return err
	}
	if m.Unchecked == m.Checked {
		return fmt.Errorf("unchecked and checked markers are both %q", m.Checked)
	}
	return nil
}

func relativePath(value any) error {
	s, _ := value.(string)
	if path.IsAbs(s) || s == ".." || strings.HasPrefix(s, "../") {
		return fmt.Errorf("must be relative to the workspace root")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			LogRotate: LogRotateConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Workspace: WorkspaceConfig{
			Root:   ".",
			Master: "todo.md",
		},
		Notes: NotesConfig{
			Dirs:       []string{"notes"},
			Extensions: []string{".md", ".txt"},
		},
		Markers: append([]parser.Marker(nil), parser.DefaultMarkers...),
		Tags: TagsConfig{
			Width: tag.DefaultWidth,
		},
		State: StateConfig{
			Backend: state.BackendYAML,
			Path:    ".data",
		},
		Schedule: ScheduleConfig{
			PriorityThreshold: schedule.DefaultThreshold,
		},
		Session: SessionConfig{
			Tick: session.DefaultTick,
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
	}
}
