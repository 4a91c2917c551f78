// Package settings loads the organization configuration (time windows,
// action bindings and market schedules) from a YAML file owned by an
// external configuration collaborator, and hands out immutable point-in-time
// snapshots of it.
package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/validate"
)

// Source hands out settings snapshots. Each call returns one consistent view;
// callers pass it explicitly into every evaluation.
type Source interface {
	Snapshot(ctx context.Context) (*domain.Settings, error)
}

type fileSettings struct {
	Timezone               string                `yaml:"timezone" validate:"omitempty,timezone"`
	FinalizationOffsetDays *int                  `yaml:"finalization_deadline_offset_days" validate:"omitempty,min=0,max=7"`
	Windows                map[string]fileWindow `yaml:"windows" validate:"dive"`
	Actions                map[string]string     `yaml:"actions" validate:"dive,keys,oneof=punch_in finalize,endkeys,required"`
	TaskWindows            map[string]string     `yaml:"task_windows" validate:"dive,keys,tasktype,endkeys,required"`
	MarketSchedules        []fileSchedule        `yaml:"market_schedules" validate:"dive"`
}

type fileWindow struct {
	Start        string `yaml:"start" validate:"required,timeofday"`
	End          string `yaml:"end" validate:"required,timeofday"`
	GraceMinutes int    `yaml:"grace_minutes" validate:"min=0,max=1440"`
}

type fileSchedule struct {
	MarketID  string `yaml:"market_id" validate:"required"`
	DayOfWeek *int   `yaml:"day_of_week" validate:"required,min=0,max=6"`
	IsActive  *bool  `yaml:"is_active"`
}

// Parse decodes and validates a settings document. Unknown keys are rejected
// so that typos in window names do not silently ungate an action.
func Parse(data []byte) (*domain.Settings, error) {
	var fsettings fileSettings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fsettings); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.Validation("settings", fmt.Sprintf("parse settings: %v", err))
	}
	if err := validate.Struct(fsettings); err != nil {
		return nil, err
	}

	out := domain.DefaultSettings()
	if fsettings.Timezone != "" {
		loc, err := time.LoadLocation(fsettings.Timezone)
		if err != nil {
			return nil, domain.Validation("timezone", fmt.Sprintf("unknown timezone %q", fsettings.Timezone))
		}
		out.Windows.Location = loc
	}
	if fsettings.FinalizationOffsetDays != nil {
		out.Windows.FinalizationOffsetDays = *fsettings.FinalizationOffsetDays
	}
	for name, w := range fsettings.Windows {
		// Both already passed the timeofday tag.
		start, _ := domain.ParseTimeOfDay(w.Start)
		end, _ := domain.ParseTimeOfDay(w.End)
		out.Windows.Windows[name] = domain.Window{Name: name, Start: start, End: end, GraceMinutes: w.GraceMinutes}
	}
	for action, name := range fsettings.Actions {
		out.Actions[domain.Action(action)] = name
	}
	for task, name := range fsettings.TaskWindows {
		out.TaskWindows[domain.TaskType(task)] = name
	}
	for _, ms := range fsettings.MarketSchedules {
		active := true
		if ms.IsActive != nil {
			active = *ms.IsActive
		}
		out.Schedules = append(out.Schedules, domain.MarketSchedule{
			MarketID:  ms.MarketID,
			DayOfWeek: *ms.DayOfWeek,
			IsActive:  active,
		})
	}
	return out, nil
}

// Load reads and parses the settings file at path. A missing file yields the
// default snapshot.
func Load(path string) (*domain.Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(data)
}

// FileSource serves snapshots of a settings file and re-reads it whenever its
// modification time or size changes.
type FileSource struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	current *domain.Settings
	modTime time.Time
	size    int64
	exists  bool
}

// NewFileSource returns a source for path. The file need not exist yet.
func NewFileSource(path string, now func() time.Time) *FileSource {
	if now == nil {
		now = time.Now
	}
	return &FileSource{path: path, now: now}
}

func (s *FileSource) Path() string { return s.path }

// Snapshot returns the current settings, reloading the file if it changed
// since the last call. A file that fails to parse is reported as an error;
// the previous snapshot is not served in its place.
func (s *FileSource) Snapshot(ctx context.Context) (*domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if s.current == nil || s.exists {
			s.current = domain.DefaultSettings()
			s.current.LoadedAt = s.now()
			s.exists = false
		}
		return s.current, nil
	case err != nil:
		return nil, fmt.Errorf("stat settings %s: %w", s.path, err)
	}

	if s.current != nil && s.exists && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.current, nil
	}
	loaded, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	loaded.LoadedAt = s.now()
	s.current = loaded
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.exists = true
	return s.current, nil
}

// Static serves one fixed snapshot.
type Static struct {
	Settings *domain.Settings
}

func (s Static) Snapshot(ctx context.Context) (*domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Settings == nil {
		return domain.DefaultSettings(), nil
	}
	return s.Settings, nil
}
