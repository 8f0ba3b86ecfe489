package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Combine-Capital/pgcache/pkg/auth"
	"github.com/Combine-Capital/pgcache/pkg/cache"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/server"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PGCACHE_CLI_TEST_CACHE_BACKEND", "memory")
	t.Setenv("PGCACHE_CLI_TEST_LOG_LEVEL", "error")

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-prefix", "PGCACHE_CLI_TEST"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// TestOneShotCommands verifies each one-shot command against the memory backend
func TestOneShotCommands(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr func(error) bool
	}{
		{name: "set from argument", args: []string{"set", "k", "v", "--ttl", "1m"}},
		{name: "set from stdin", stdin: "payload", args: []string{"set", "k", "--sliding", "5m"}},
		{name: "get absent", args: []string{"get", "k"}, wantErr: errors.IsNotFound},
		{name: "remove absent", args: []string{"remove", "k"}},
		{name: "refresh absent", args: []string{"refresh", "k"}},
		{name: "purge", args: []string{"purge"}, want: "0\n"},
		{name: "bad duration", args: []string{"set", "k", "v", "--ttl", "soon"}, wantErr: errors.IsInvalidInput},
		{name: "empty key", args: []string{"get", ""}, wantErr: errors.IsInvalidInput},
		{name: "provision without schema", args: []string{"provision"}, wantErr: errors.IsInvalidInput},
		{name: "conflicting expirations", args: []string{"set", "k", "v", "--ttl", "1m", "--at", "2030-01-01T00:00:00Z"}, wantErr: func(err error) bool { return err != nil }},
		{name: "missing key argument", args: []string{"get"}, wantErr: func(err error) bool { return err != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, tt.args...)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("error = %v, not the expected kind", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error = %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

// TestRemoteMode verifies --server routes one-shot commands through the HTTP API
func TestRemoteMode(t *testing.T) {
	dc := cache.New(cache.NewMemory())
	ts := httptest.NewServer(server.New(dc, server.WithAuth(auth.NewWithKeys("secret").Middleware)).Handler())
	defer ts.Close()

	remote := []string{"--server", ts.URL, "--token", "secret"}

	if _, err := execute(t, "", append(remote, "set", "user/1", "remote value", "--ttl", "10m")...); err != nil {
		t.Fatalf("remote set error = %v", err)
	}
	value, ok, err := dc.Get(context.Background(), "user/1")
	if err != nil || !ok || string(value) != "remote value" {
		t.Fatalf("server cache Get() = %q, %v, %v", value, ok, err)
	}

	out, err := execute(t, "", append(remote, "get", "user/1")...)
	if err != nil {
		t.Fatalf("remote get error = %v", err)
	}
	if out != "remote value" {
		t.Errorf("remote get output = %q", out)
	}

	if _, err := execute(t, "", append(remote, "get", "missing")...); !errors.IsNotFound(err) {
		t.Errorf("remote get missing error = %v, want NotFound", err)
	}
	if _, err := execute(t, "", "--server", ts.URL, "get", "user/1"); !errors.IsUnauthorized(err) {
		t.Errorf("remote get without token error = %v, want Unauthorized", err)
	}
	if _, err := execute(t, "", append(remote, "provision")...); !errors.IsInvalidInput(err) {
		t.Errorf("remote provision error = %v, want InvalidInput", err)
	}

	if _, err := execute(t, "", append(remote, "rm", "user/1")...); err != nil {
		t.Fatalf("remote remove error = %v", err)
	}
	if _, ok, _ := dc.Get(context.Background(), "user/1"); ok {
		t.Error("entry still present after remote remove")
	}
}

// TestConfigFile verifies --config is read and environment variables override it
func TestConfigFile(t *testing.T) {
	path := t.TempDir() + "/pgcache.yaml"
	if err := writeFile(path, "cache:\n  backend: postgres\n"); err != nil {
		t.Fatal(err)
	}

	// No connection string: the file alone fails validation.
	t.Setenv("PGCACHE_CLI_FILE_LOG_LEVEL", "error")
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "--env-prefix", "PGCACHE_CLI_FILE", "purge"})
	if err := cmd.Execute(); !errors.IsInvalidInput(err) {
		t.Fatalf("Execute() error = %v, want InvalidInput", err)
	}

	t.Setenv("PGCACHE_CLI_FILE_CACHE_BACKEND", "memory")
	cmd = newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "--env-prefix", "PGCACHE_CLI_FILE", "purge"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() with env override error = %v", err)
	}
	if out.String() != "0\n" {
		t.Errorf("purge output = %q, want 0", out.String())
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
