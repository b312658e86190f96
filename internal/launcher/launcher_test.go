package launcher

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func recorder(calls *[]call, err error) Runner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		return err
	}
}

func TestOpener_Command(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{goos: "windows", wantName: "cmd", wantArgs: []string{"/c", "start", "", `P:\2024638 Clinic`}},
		{goos: "darwin", wantName: "open", wantArgs: []string{`P:\2024638 Clinic`}},
		{goos: "linux", wantName: "xdg-open", wantArgs: []string{`P:\2024638 Clinic`}},
		{goos: "freebsd", wantName: "xdg-open", wantArgs: []string{`P:\2024638 Clinic`}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			o := NewWithRunner(tt.goos, nil, nil)
			name, args := o.Command(`P:\2024638 Clinic`)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestOpener_OpenPath(t *testing.T) {
	dir := t.TempDir()
	var calls []call
	o := NewWithRunner("linux", recorder(&calls, nil), nil)

	require.NoError(t, o.Open(context.Background(), "  "+dir+" "))
	require.Len(t, calls, 1)
	assert.Equal(t, call{name: "xdg-open", args: []string{dir}}, calls[0])
}

func TestOpener_OpenMissingPath(t *testing.T) {
	var calls []call
	o := NewWithRunner("linux", recorder(&calls, nil), nil)

	err := o.Open(context.Background(), filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Empty(t, calls)

	assert.Error(t, o.Open(context.Background(), ""))
}

func TestOpener_OpenURL(t *testing.T) {
	var calls []call
	o := NewWithRunner("darwin", recorder(&calls, nil), nil)

	require.NoError(t, o.Open(context.Background(), "https://acc.autodesk.com/projects"))
	require.Len(t, calls, 1)
	assert.Equal(t, "open", calls[0].name)
}

func TestOpener_RunnerError(t *testing.T) {
	var calls []call
	o := NewWithRunner("linux", recorder(&calls, errors.New("exec: not found")), nil)

	err := o.Open(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec: not found")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("HTTPS://example.com"))
	assert.True(t, IsURL("mailto:pm@example.com"))
	assert.True(t, IsURL("ms-excel:ofe|u|https://x"))
	assert.False(t, IsURL(`P:\Projects`))
	assert.False(t, IsURL("/mnt/projects"))
}

func TestStartDetached_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, StartDetached(ctx, "true"), context.Canceled)
}
