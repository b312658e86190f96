package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/projdock/internal/config"
	"github.com/harrison/projdock/internal/launcher"
	"github.com/harrison/projdock/internal/logger"
)

// launchRecorder captures handler invocations instead of starting processes
type launchRecorder struct {
	mu      sync.Mutex
	targets []string
}

func (r *launchRecorder) run(_ context.Context, _ string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(args) > 0 {
		r.targets = append(r.targets, args[len(args)-1])
	}
	return nil
}

func (r *launchRecorder) opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...)
}

type testEnv struct {
	t        *testing.T
	home     string
	drive    string
	launches *launchRecorder
}

// newTestEnv creates a projdock home with a config pointing at a temporary
// project drive
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	drive := t.TempDir()
	t.Setenv(config.HomeEnv, home)

	for _, dir := range []string{
		"2024638.001 Palm Beach Project/Electrical",
		"2024638.002 Palm Beach Garage",
		"2023101 Jupiter Medical Center",
		"Projects 2022/2022_417_Riverside Tower",
		"Admin",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(drive, filepath.FromSlash(dir)), 0755))
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(drive, "2024638.001 Palm Beach Project", "Electrical", "E-101 panel schedule.pdf"),
		[]byte("%PDF"), 0644))

	cfg := config.DefaultConfig()
	cfg.Roots = []string{drive}
	cfg.Search.Debounce = 0
	require.NoError(t, cfg.Save(context.Background(), filepath.Join(home, config.FileName)))

	rec := &launchRecorder{}
	prev := newOpener
	newOpener = func(log logger.Logger) *launcher.Opener {
		return launcher.NewWithRunner("linux", rec.run, log)
	}
	t.Cleanup(func() { newOpener = prev })

	return &testEnv{t: t, home: home, drive: drive, launches: rec}
}

// run executes projdock with args and returns stdout
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return e.runContext(context.Background(), args...)
}

func (e *testEnv) runContext(ctx context.Context, args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "projdock %s", strings.Join(args, " "))
	return out
}

func (e *testEnv) scan() {
	e.t.Helper()
	e.mustRun("scan")
}

func TestScanAndSearch(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	out := env.mustRun("search", "palm", "beach")
	assert.Contains(t, out, "2024638.001")
	assert.Contains(t, out, "2024638.002")
	assert.NotContains(t, out, "Jupiter")

	out = env.mustRun("search", "riverside")
	assert.Contains(t, out, "2022_417")

	out = env.mustRun("search", "year:2023")
	assert.Contains(t, out, "Jupiter Medical Center")
	assert.NotContains(t, out, "Palm Beach")

	out = env.mustRun("search", "--scores", "-n", "1")
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestSearch_NoMatches(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("search", "palm")
	assert.Contains(t, out, `No projects match "palm"`)
	assert.Contains(t, out, "projdock scan")

	env.scan()
	out = env.mustRun("search", "xyzzy")
	assert.Contains(t, out, `No projects match "xyzzy"`)
	assert.NotContains(t, out, "projdock scan")
}

func TestScan_RootOverrideAndDepth(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("scan", "--depth", "-1")
	require.Error(t, err)

	other := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(other, "2025004 Annex"), 0755))
	env.mustRun("scan", "--root", other)

	out := env.mustRun("projects", "list")
	assert.Contains(t, out, "2025004")
	assert.NotContains(t, out, "Palm Beach")
}

func TestScan_TopLevelOnly(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("scan", "--depth", "0")
	out := env.mustRun("projects", "list")
	assert.Contains(t, out, "2024638.001")
	assert.NotContains(t, out, "2022_417", "grouping folders are not descended")

	env.mustRun("scan")
	out = env.mustRun("projects", "list")
	assert.Contains(t, out, "2022_417")

	cfg := config.DefaultConfig()
	cfg.Roots = []string{env.drive}
	cfg.ScanDepth = 0
	require.NoError(t, cfg.Save(context.Background(), filepath.Join(env.home, config.FileName)))

	env.mustRun("scan")
	out = env.mustRun("projects", "list")
	assert.NotContains(t, out, "2022_417")
}

func TestRootAliases(t *testing.T) {
	root := NewRootCommand()
	tests := map[string]string{
		"p":    "pick",
		"proj": "projects",
		"ql":   "launch",
		"t":    "tasks",
	}
	for alias, want := range tests {
		found, _, err := root.Find([]string{alias})
		require.NoError(t, err, alias)
		assert.Equal(t, want, found.Name(), alias)
	}
}

func TestScan_NoRoots(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Save(context.Background(), filepath.Join(env.home, config.FileName)))

	_, err := env.run("scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project roots configured")
}

func TestScan_WithDocs(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("scan", "--docs")
	assert.Contains(t, out, "Indexed documents for 4 project(s)")

	out = env.mustRun("projects", "show", "638.001")
	assert.NotContains(t, out, "not indexed")
}

func TestProjects_TagPinShowExport(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	env.mustRun("projects", "tag", "638.001", "healthcare", "retail")
	out := env.mustRun("projects", "show", "2024638.001")
	assert.Contains(t, out, "Palm Beach Project")
	assert.Contains(t, out, "healthcare")
	assert.Contains(t, out, "retail")

	out = env.mustRun("projects", "untag", "638.001", "retail")
	assert.Contains(t, out, "Removed 1 tag(s)")

	out = env.mustRun("projects", "pin", "2023101")
	assert.Contains(t, out, "2023101")
	out = env.mustRun("search")
	first := strings.SplitN(out, "\n", 2)[0]
	assert.Contains(t, first, "2023101")

	env.mustRun("projects", "meta", "638.001", "client", "Palm", "Beach", "County")
	out = env.mustRun("projects", "meta", "638.001", "client")
	assert.Equal(t, "Palm Beach County\n", out)

	out = env.mustRun("search", "#healthcare")
	assert.Contains(t, out, "2024638.001")
	assert.NotContains(t, out, "2024638.002")

	exportPath := filepath.Join(t.TempDir(), "projects.json")
	out = env.mustRun("projects", "export", "-o", exportPath)
	assert.Contains(t, out, "Exported 4 project(s)")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var records []exportedProject
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 4)

	byNumber := map[string]exportedProject{}
	for _, r := range records {
		byNumber[r.Number] = r
	}
	assert.Equal(t, []string{"healthcare"}, byNumber["2024638.001"].Tags)
	assert.Equal(t, "Palm Beach County", byNumber["2024638.001"].Metadata["client"])
	assert.True(t, byNumber["2023101"].Pinned)
}

func TestProjects_UnknownNumber(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	_, err := env.run("projects", "show", "999.999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no project numbered "999.999"`)
}

func TestProjects_OpenCountsLaunches(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	out := env.mustRun("frequent")
	assert.Contains(t, out, "No projects opened yet")

	env.mustRun("projects", "open", "638.002")
	env.mustRun("projects", "open", "638.002")
	env.mustRun("search", "jupiter", "--open")

	opened := env.launches.opened()
	require.Len(t, opened, 3)
	assert.Equal(t, filepath.Join(env.drive, "2024638.002 Palm Beach Garage"), opened[0])
	assert.Equal(t, filepath.Join(env.drive, "2023101 Jupiter Medical Center"), opened[2])

	out = env.mustRun("frequent")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "2024638.002")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "2 "))
}

func TestDocs(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	out := env.mustRun("docs", "638.001")
	assert.Contains(t, out, "Type:")
	assert.Contains(t, out, "E-101 panel schedule.pdf")

	// Matched words are bracketed when stdout is not a terminal
	out = env.mustRun("docs", "638.001", "panel", "ext:pdf")
	assert.Contains(t, out, "Electrical/E-101 [panel] schedule.pdf")
	assert.NotContains(t, out, "Type:")

	out = env.mustRun("docs", "638.001", "ext:dwg")
	assert.Contains(t, out, "No documents match")

	out = env.mustRun("docs", "638.001", "panel", "--open")
	assert.Contains(t, out, "Opened ")
	require.Len(t, env.launches.opened(), 1)
	assert.True(t, strings.HasSuffix(env.launches.opened()[0], "E-101 panel schedule.pdf"))
}

func TestTasks(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	out := env.mustRun("tasks", "list")
	assert.Contains(t, out, "No tasks")

	out = env.mustRun("tasks", "add", "send", "panel", "schedule", "--project", "638.001", "--due", "2025-03-14")
	require.True(t, strings.HasPrefix(out, "Added "))
	id := strings.Fields(out)[1]
	require.Len(t, id, shortIDLen)

	env.mustRun("tasks", "add", "renew", "plotter", "lease")

	_, err := env.run("tasks", "add", "bad", "date", "--due", "14/03/2025")
	require.Error(t, err)

	out = env.mustRun("tasks", "list")
	assert.Contains(t, out, "send panel schedule")
	assert.Contains(t, out, "OVERDUE 2025-03-14")
	assert.Contains(t, out, "2024638.001")
	assert.Contains(t, out, "renew plotter lease")

	out = env.mustRun("tasks", "done", id)
	assert.Contains(t, out, "Completed "+id)

	out = env.mustRun("tasks", "list")
	assert.NotContains(t, out, "send panel schedule")

	out = env.mustRun("tasks", "list", "--all")
	assert.Contains(t, out, "[x] "+id)

	env.mustRun("tasks", "rm", id)
	out = env.mustRun("tasks", "list", "--all")
	assert.NotContains(t, out, id)
}

func TestTimer(t *testing.T) {
	env := newTestEnv(t)
	env.scan()

	out := env.mustRun("timer", "status")
	assert.Contains(t, out, "No timer running")

	_, err := env.run("timer", "stop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no timer is running")

	out = env.mustRun("timer", "start", "638.001", "--label", "panel schedules")
	assert.Contains(t, out, "Started 2024638.001 Palm Beach Project")

	_, err = env.run("timer", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	out = env.mustRun("timer", "status")
	assert.Contains(t, out, "Running")
	assert.Contains(t, out, "[panel schedules]")

	out = env.mustRun("timer", "stop")
	assert.Contains(t, out, "Stopped after")

	out = env.mustRun("timer", "report", "--days", "0")
	assert.Contains(t, out, "2024638.001 Palm Beach Project")
	assert.Contains(t, out, "total")
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0m00s", formatElapsed(0))
	assert.Equal(t, "12m30s", formatElapsed(12*time.Minute+30*time.Second))
	assert.Equal(t, "1h05m", formatElapsed(65*time.Minute))
	assert.Equal(t, "26h00m", formatElapsed(26*time.Hour))
}

func TestLaunch(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("launch", "list")
	assert.Contains(t, out, "No quick launch entries")

	env.mustRun("launch", "add", "timesheet", "https://intranet.example.com/timesheet")
	env.mustRun("launch", "add", "drive", env.drive)

	out = env.mustRun("launch", "list")
	assert.Contains(t, out, "timesheet")
	assert.Contains(t, out, "https://intranet.example.com/timesheet")

	env.mustRun("launch", "run", "TIMESHEET")
	env.mustRun("launch", "run", "drive")
	assert.Equal(t, []string{"https://intranet.example.com/timesheet", env.drive}, env.launches.opened())

	env.mustRun("launch", "rm", "timesheet")
	_, err := env.run("launch", "run", "timesheet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no quick launch entry named "timesheet"`)

	_, err = env.run("launch", "rm", "timesheet")
	require.Error(t, err)
}

func TestCheats(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("cheats", "list")
	assert.Contains(t, out, "No cheat sheets")

	dir := filepath.Join(env.home, "cheatsheets")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "revit.md"), []byte(`# Revit Shortcuts

## Views

- VV visibility graphics
- TL thin lines

## Modify

- AL align
`), 0644))

	out = env.mustRun("cheats", "list")
	assert.Contains(t, out, "revit")
	assert.Contains(t, out, "Revit Shortcuts (3 entries)")

	out = env.mustRun("cheats", "show", "rev")
	assert.Contains(t, out, "## Views")
	assert.Contains(t, out, "VV visibility graphics")

	out = env.mustRun("cheats", "find", "align")
	assert.Equal(t, "revit / Modify: AL align\n", out)

	_, err := env.run("cheats", "show", "autocad")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.scan()
	env.mustRun("projects", "tag", "638.001", "healthcare")
	env.mustRun("search", "palm")

	out := env.mustRun("stats")
	assert.Contains(t, out, "Projects: 4 (0 pinned)")
	assert.Contains(t, out, "healthcare")
	assert.Contains(t, out, "scan")
	assert.Contains(t, out, "search")

	out = env.mustRun("stats", "--purge", "--days", "0")
	assert.Contains(t, out, "Purged 0 event(s) older than 90 days")
}

func TestStats_TelemetryDisabled(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.DefaultConfig()
	cfg.Roots = []string{env.drive}
	cfg.Telemetry.Enabled = false
	require.NoError(t, cfg.Save(context.Background(), filepath.Join(env.home, config.FileName)))

	env.scan()
	out := env.mustRun("stats")
	assert.Contains(t, out, "Telemetry is disabled")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	configPath := filepath.Join(env.home, config.FileName)

	out := env.mustRun("config", "path")
	assert.Equal(t, configPath+"\n", out)

	out = env.mustRun("config", "show")
	assert.Contains(t, out, "scan_depth: 2")
	assert.Contains(t, out, env.drive)

	_, err := env.run("config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out = env.mustRun("config", "init", "--force", "--root", "/mnt/projects")
	assert.Contains(t, out, "Wrote "+configPath)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/projects"}, cfg.Roots)
}

func TestPersistentFlags(t *testing.T) {
	env := newTestEnv(t)
	db := filepath.Join(t.TempDir(), "alt.db")

	env.mustRun("--db", db, "scan")
	_, err := os.Stat(db)
	require.NoError(t, err)

	out := env.mustRun("projects", "list")
	assert.Contains(t, out, "No projects found")

	_, err = env.run("--log-level", "loud", "projects", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log_level")
}

func TestConfig_Malformed(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.home, config.FileName), []byte("roots: [unclosed\n"), 0644))

	_, err := env.run("projects", "list")
	require.Error(t, err)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := env.runContext(ctx, "watch", "--debounce", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Watching for changes")

	out = env.mustRun("projects", "list")
	assert.Contains(t, out, "2024638.001")
}

func TestWatch_InvalidDebounce(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("watch", "--debounce", "0s")
	require.Error(t, err)
}
