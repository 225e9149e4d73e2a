package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unused-buddy/npm-dist/internal/runner"
)

// fakeRunner records invocations and replays scripted results.
type fakeRunner struct {
	calls  [][]string
	dirs   []string
	result *runner.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (*runner.Result, error) {
	f.dirs = append(f.dirs, dir)
	f.calls = append(f.calls, append([]string{name}, args...))

	if f.err != nil {
		return nil, f.err
	}

	return f.result, nil
}

// TestPublish_ArgumentShape checks flag composition for each mode.
func TestPublish_ArgumentShape(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		opts Options
		want []string
	}{
		"plain": {
			opts: Options{},
			want: []string{"npm", "publish", "--access", "public"},
		},
		"dry run": {
			opts: Options{DryRun: true},
			want: []string{"npm", "publish", "--access", "public", "--dry-run"},
		},
		"provenance": {
			opts: Options{Provenance: true},
			want: []string{"npm", "publish", "--access", "public", "--provenance"},
		},
		"dry run with provenance": {
			opts: Options{DryRun: true, Provenance: true},
			want: []string{"npm", "publish", "--access", "public", "--dry-run", "--provenance"},
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeRunner{result: &runner.Result{ExitCode: 0}}
			client := NewClient("npm", fake)

			require.NoError(t, client.Publish(context.Background(), "/tmp/pkg", tc.opts))
			require.Equal(t, [][]string{tc.want}, fake.calls)
			require.Equal(t, []string{"/tmp/pkg"}, fake.dirs)
		})
	}
}

// TestPublish_NonZeroExit maps CLI failure to ErrPublishFailed with stderr attached.
func TestPublish_NonZeroExit(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{result: &runner.Result{ExitCode: 1, Stderr: "E403 forbidden"}}
	client := NewClient("npm", fake)

	err := client.Publish(context.Background(), "/tmp/pkg", Options{})
	require.ErrorIs(t, err, ErrPublishFailed)
	require.Contains(t, err.Error(), "E403 forbidden")
}

// TestPublish_RunnerError maps invocation failure to ErrPublishFailed.
func TestPublish_RunnerError(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{err: errors.New("npm: executable not found")}
	client := NewClient("npm", fake)

	err := client.Publish(context.Background(), "/tmp/pkg", Options{})
	require.ErrorIs(t, err, ErrPublishFailed)
}
