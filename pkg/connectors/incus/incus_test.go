package incus

import (
	"context"
	"reflect"
	"testing"

	"github.com/kballard/go-shellquote"

	"github.com/tessera-io/tessera/pkg/connectors"
)

// fakeExecutor records the command lines it receives and answers them
// through a configurable handler.
type fakeExecutor struct {
	commands []string
	handler  func(command string) (bool, connectors.CommandOutput, error)
}

func (f *fakeExecutor) Run(_ context.Context, command string, _ connectors.ExecOptions) (bool, connectors.CommandOutput, error) {
	f.commands = append(f.commands, command)
	if f.handler == nil {
		return true, connectors.CommandOutput{}, nil
	}
	return f.handler(command)
}

// lastWords splits the most recent command line back into words.
func (f *fakeExecutor) lastWords(t *testing.T) []string {
	t.Helper()
	if len(f.commands) == 0 {
		t.Fatal("no command was run")
	}
	words, err := shellquote.Split(f.commands[len(f.commands)-1])
	if err != nil {
		t.Fatalf("failed to split command %q: %v", f.commands[len(f.commands)-1], err)
	}
	return words
}

func newTestConnector(t *testing.T, target string, executor connectors.Executor, opts ...Option) *Connector {
	t.Helper()
	conn, err := New(DefaultConfig(target), executor, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return conn
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectError bool
	}{
		{
			name:       "default config",
			modifyFunc: func(c *Config) {},
		},
		{
			name:       "lxc variant",
			modifyFunc: func(c *Config) { c.Binary = "lxc" },
		},
		{
			name:        "missing binary",
			modifyFunc:  func(c *Config) { c.Binary = "" },
			expectError: true,
		},
		{
			name:        "binary with path separator",
			modifyFunc:  func(c *Config) { c.Binary = "/usr/bin/incus" },
			expectError: true,
		},
		{
			name:        "unsupported shell",
			modifyFunc:  func(c *Config) { c.Shell = "fish" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("web1")
			tt.modifyFunc(cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestSplitTargetRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		remote   string
		instance string
	}{
		{"bare instance", "web1", "", "web1"},
		{"remote and instance", "myremote:web1", "myremote", "web1"},
		{"remote only", "myremote:", "myremote", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote, instance := SplitTarget(tt.target)
			if remote != tt.remote || instance != tt.instance {
				t.Errorf("expected (%q, %q), got (%q, %q)", tt.remote, tt.instance, remote, instance)
			}

			if joined := JoinTarget(remote, instance); joined != tt.target {
				t.Errorf("round trip mismatch: expected %q, got %q", tt.target, joined)
			}
		})
	}
}

func TestExecuteCommandShape(t *testing.T) {
	uid := 1000

	tests := []struct {
		name     string
		opts     connectors.ExecOptions
		expected []string
	}{
		{
			name:     "plain command",
			opts:     connectors.ExecOptions{},
			expected: []string{"incus", "exec", "-T", "web1", "--", "sh", "-c", "uname -a"},
		},
		{
			name:     "pseudo-terminal requested",
			opts:     connectors.ExecOptions{WantPTY: true},
			expected: []string{"incus", "exec", "-t", "web1", "--", "sh", "-c", "uname -a"},
		},
		{
			name:     "run-as user id",
			opts:     connectors.ExecOptions{UserID: &uid},
			expected: []string{"incus", "exec", "-T", "--user", "1000", "web1", "--", "sh", "-c", "uname -a"},
		},
		{
			name: "directives folded into the composed command",
			opts: connectors.ExecOptions{
				WorkingDir: "/srv",
				Env:        map[string]string{"FOO": "bar"},
			},
			expected: []string{"incus", "exec", "-T", "web1", "--", "sh", "-c", "cd /srv && env FOO=bar uname -a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &fakeExecutor{}
			conn := newTestConnector(t, "web1", executor)

			ok, _, err := conn.Execute(context.Background(), "uname -a", tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Fatal("expected ok")
			}

			if words := executor.lastWords(t); !reflect.DeepEqual(words, tt.expected) {
				t.Errorf("expected command %v, got %v", tt.expected, words)
			}
		})
	}
}

func TestExecuteTargetsRemoteQualifiedInstance(t *testing.T) {
	executor := &fakeExecutor{}
	conn := newTestConnector(t, "myremote:db1", executor)

	if _, _, err := conn.Execute(context.Background(), "true", connectors.ExecOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	words := executor.lastWords(t)
	if words[3] != "myremote:db1" {
		t.Errorf("expected exec to target 'myremote:db1', got %q", words[3])
	}
}

func TestExecuteNonZeroExitPassedThrough(t *testing.T) {
	executor := &fakeExecutor{
		handler: func(string) (bool, connectors.CommandOutput, error) {
			return false, connectors.CommandOutput{Stderr: "command not found"}, nil
		},
	}
	conn := newTestConnector(t, "web1", executor)

	ok, out, err := conn.Execute(context.Background(), "nope", connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("expected no error for a remote non-zero exit, got %v", err)
	}
	if ok {
		t.Error("expected ok == false")
	}
	if out.Stderr != "command not found" {
		t.Errorf("expected captured stderr to pass through, got %q", out.Stderr)
	}
}

func TestExecuteRequiresBoundInstance(t *testing.T) {
	conn := newTestConnector(t, "", &fakeExecutor{})

	_, _, err := conn.Execute(context.Background(), "true", connectors.ExecOptions{})
	if !connectors.IsExecError(err) {
		t.Errorf("expected an execution error, got %v", err)
	}
}

func TestLXCVariantUsesConfiguredBinary(t *testing.T) {
	executor := &fakeExecutor{}
	cfg := DefaultConfig("web1")
	cfg.Binary = "lxc"
	conn, err := New(cfg, executor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conn.Kind() != "lxc" {
		t.Errorf("expected kind 'lxc', got %q", conn.Kind())
	}

	if _, _, err := conn.Execute(context.Background(), "true", connectors.ExecOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if words := executor.lastWords(t); words[0] != "lxc" {
		t.Errorf("expected the lxc binary to be invoked, got %q", words[0])
	}
}
