package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/marketshift/internal/domain"
)

const sampleYAML = `
timezone: Asia/Kolkata
finalization_deadline_offset_days: 0
windows:
  selfie_gps:       {start: "14:15", end: "14:20", grace_minutes: 0}
  eod_finalization: {start: "00:00", end: "11:00"}
  outside_rates:    {start: "09:00", end: "17:00", grace_minutes: 15}
actions:
  punch_in: selfie_gps
  finalize: eod_finalization
task_windows:
  money_recovery: outside_rates
market_schedules:
  - {market_id: m-001, day_of_week: 1, is_active: true}
  - {market_id: m-002, day_of_week: 1}
  - {market_id: m-003, day_of_week: 1, is_active: false}
`

func TestParse_Full(t *testing.T) {
	s, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "Asia/Kolkata", s.Windows.Loc().String())
	assert.Equal(t, 0, s.Windows.FinalizationOffsetDays)
	require.Len(t, s.Windows.Windows, 3)

	w, ok := s.Windows.Lookup("outside_rates")
	require.True(t, ok)
	assert.Equal(t, "outside_rates", w.Name)
	assert.Equal(t, domain.MustTimeOfDay("09:00"), w.Start)
	assert.Equal(t, 15*time.Minute, w.Grace())

	name, ok := s.WindowForAction(domain.ActionPunchIn)
	assert.True(t, ok)
	assert.Equal(t, "selfie_gps", name)
	name, ok = s.WindowForTask(domain.TaskMoneyRecovery)
	assert.True(t, ok)
	assert.Equal(t, "outside_rates", name)

	assert.Equal(t, []string{"m-001", "m-002"}, s.ActiveMarkets(time.Monday))
}

func TestParse_EmptyDocumentIsDefault(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Windows.Loc())
	assert.Equal(t, 1, s.Windows.FinalizationOffsetDays)
	assert.Empty(t, s.Windows.Windows)
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"bad time":        "windows:\n  w: {start: \"25:00\", end: \"10:00\"}\n",
		"missing end":     "windows:\n  w: {start: \"09:00\"}\n",
		"negative grace":  "windows:\n  w: {start: \"09:00\", end: \"10:00\", grace_minutes: -5}\n",
		"bad action":      "actions:\n  teleport: w\n",
		"bad task type":   "task_windows:\n  selfie: w\n",
		"bad weekday":     "market_schedules:\n  - {market_id: m, day_of_week: 7}\n",
		"missing market":  "market_schedules:\n  - {day_of_week: 1}\n",
		"missing weekday": "market_schedules:\n  - {market_id: m}\n",
		"bad timezone":    "timezone: Mars/Olympus\n",
		"unknown key":     "windowz: {}\n",
		"offset too big":  "finalization_deadline_offset_days: 30\n",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), name)
	}
}

func TestLoad_MissingFileIsDefault(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.Schedules)
}

func TestFileSource_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	src := NewFileSource(path, func() time.Time { return time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	first, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, first.Windows.Windows)

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	second, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, second.Windows.Windows, 3)
	assert.Empty(t, first.Windows.Windows, "earlier snapshot is not mutated")

	third, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, second, third)

	updated := sampleYAML + "  - {market_id: m-004, day_of_week: 1}\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	fourth, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, fourth.ActiveMarkets(time.Monday), "m-004")
}

func TestFileSource_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("windows: [oops"), 0o644))
	_, err := NewFileSource(path, nil).Snapshot(context.Background())
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestStatic(t *testing.T) {
	s, err := Static{}.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
}
