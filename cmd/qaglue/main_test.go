package main

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaplatform/qaglue/internal/devserver"
	"github.com/qaplatform/qaglue/internal/errors"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := execute(cmd)
	return out.String(), err
}

func backend(t *testing.T) string {
	t.Helper()
	srv := devserver.New(devserver.NewMemoryStore(),
		devserver.WithCSRFToken("cli-token"),
		devserver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestVoteCommand(t *testing.T) {
	url := backend(t)

	out, err := run(t, "vote", "question", "42", "up", "--base-url", url, "--csrf-token", "cli-token", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, "vote", "question", "42", "up", "--base-url", url, "--csrf-token", "cli-token", "--user", "bob")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "vote", "question", "42", "none", "--base-url", url, "--csrf-token", "cli-token", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestVoteCommandErrors(t *testing.T) {
	url := backend(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"bad type", []string{"vote", "comment", "1", "up", "--base-url", url}, "Q150"},
		{"bad direction", []string{"vote", "question", "1", "sideways", "--base-url", url}, "Q150"},
		{"rejected token", []string{"vote", "question", "1", "up", "--base-url", url, "--csrf-token", "wrong"}, "Q200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.New(tt.wantCode)), "got %v", err)
		})
	}
}

func TestUsageErrorsAreCoded(t *testing.T) {
	_, err := run(t, "vote", "question", "1")
	require.Error(t, err)

	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, "Q150", coded.Code)
	assert.Contains(t, err.Error(), "accepts 3 arg(s)")

	_, err = run(t, "enhance", filepath.Join(t.TempDir(), "missing.html"))
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, "Q151", coded.Code, "coded errors pass through unchanged")
}

func TestEnhanceCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	page := `<html><body><div class="card"><pre><code>x := 1</code></pre><a href="https://go.dev">go</a></div></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(page), 0644))

	out, err := run(t, "enhance", path)
	require.NoError(t, err)
	assert.Contains(t, out, `class="copy-code-btn"`)
	assert.Contains(t, out, `rel="noopener noreferrer"`)
	assert.Contains(t, out, "fade-in")

	_, err = run(t, "enhance", filepath.Join(t.TempDir(), "missing.html"))
	assert.True(t, stderrors.Is(err, errors.New("Q151")), "got %v", err)
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qaglue.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"vote":{"inFlight":"never"}}`), 0644))

	_, err := run(t, "--config", path, "vote", "question", "1", "up")
	assert.True(t, stderrors.Is(err, errors.New("Q102")), "got %v", err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Go version:"))
}
