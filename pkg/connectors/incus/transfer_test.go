package incus

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"

	"github.com/tessera-io/tessera/pkg/connectors"
)

// pushPullFake emulates the CLI's file push/pull subcommands against an
// in-memory instance filesystem.
type pushPullFake struct {
	fakeExecutor

	// files maps "<instance>/<path>" to content.
	files map[string][]byte

	// stagedPaths records every local path seen by push/pull commands.
	stagedPaths []string

	failWith string
}

func newPushPullFake() *pushPullFake {
	f := &pushPullFake{files: make(map[string][]byte)}
	f.handler = func(command string) (bool, connectors.CommandOutput, error) {
		words, err := shellquote.Split(command)
		if err != nil {
			return false, connectors.CommandOutput{}, err
		}

		switch words[2] {
		case "push":
			f.stagedPaths = append(f.stagedPaths, words[3])
		case "pull":
			f.stagedPaths = append(f.stagedPaths, words[4])
		}
		if f.failWith != "" {
			return false, connectors.CommandOutput{Stderr: f.failWith}, nil
		}

		switch words[2] {
		case "push":
			localPath, remote := words[3], normalizeRemote(words[4])
			content, err := os.ReadFile(localPath)
			if err != nil {
				return false, connectors.CommandOutput{Stderr: err.Error()}, nil
			}
			f.files[remote] = content
		case "pull":
			remote, localPath := normalizeRemote(words[3]), words[4]
			content, ok := f.files[remote]
			if !ok {
				return false, connectors.CommandOutput{Stderr: "Error: file not found: " + remote}, nil
			}
			if err := os.WriteFile(localPath, content, 0o600); err != nil {
				return false, connectors.CommandOutput{Stderr: err.Error()}, nil
			}
		}
		return true, connectors.CommandOutput{}, nil
	}
	return f
}

// normalizeRemote collapses "<instance>//path" and "<instance>/path" to
// one key, mirroring how the CLI resolves instance paths.
func normalizeRemote(remote string) string {
	instance, path, _ := strings.Cut(remote, "/")
	return instance + "/" + strings.TrimLeft(path, "/")
}

// assertNoStagingLeftovers fails if any staging file created by a
// transfer call still exists, excluding paths the test itself owns.
func (f *pushPullFake) assertNoStagingLeftovers(t *testing.T, ownPaths ...string) {
	t.Helper()
	owned := make(map[string]bool, len(ownPaths))
	for _, p := range ownPaths {
		owned[p] = true
	}
	for _, p := range f.stagedPaths {
		if owned[p] {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			t.Errorf("staging file %s was not cleaned up", p)
		}
	}
}

func TestUploadFromLocalFile(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "payload")
	if err := os.WriteFile(srcPath, []byte("payload bytes"), 0o600); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	fake := newPushPullFake()
	conn := newTestConnector(t, "web1", fake)

	err := conn.Upload(context.Background(), connectors.FileSource{Path: srcPath}, "/tmp/payload", connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fake.files["web1/tmp/payload"]; string(got) != "payload bytes" {
		t.Errorf("expected pushed content 'payload bytes', got %q", got)
	}
	// A regular file is pushed directly; no staging file is created.
	fake.assertNoStagingLeftovers(t, srcPath)
}

func TestUploadFromStreamStagesAndCleansUp(t *testing.T) {
	fake := newPushPullFake()
	conn := newTestConnector(t, "web1", fake)

	content := []byte("streamed content")
	err := conn.Upload(context.Background(), connectors.FileSource{Reader: bytes.NewReader(content)}, "/tmp/streamed", connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fake.files["web1/tmp/streamed"]; !bytes.Equal(got, content) {
		t.Errorf("expected pushed content %q, got %q", content, got)
	}
	if len(fake.stagedPaths) != 1 {
		t.Fatalf("expected one staging path, got %d", len(fake.stagedPaths))
	}
	fake.assertNoStagingLeftovers(t)
}

func TestUploadFailureCleansUpStagingFile(t *testing.T) {
	fake := newPushPullFake()
	fake.failWith = "Error: not authorized"
	conn := newTestConnector(t, "web1", fake)

	err := conn.Upload(context.Background(), connectors.FileSource{Reader: strings.NewReader("x")}, "/tmp/x", connectors.ExecOptions{})
	if !connectors.IsTransferError(err) {
		t.Fatalf("expected a transfer error, got %v", err)
	}
	if !strings.Contains(err.Error(), "not authorized") {
		t.Errorf("expected the error to carry stderr, got %q", err.Error())
	}
	fake.assertNoStagingLeftovers(t)
}

func TestUploadMissingSource(t *testing.T) {
	fake := newPushPullFake()
	conn := newTestConnector(t, "web1", fake)

	err := conn.Upload(context.Background(), connectors.FileSource{Path: "/does/not/exist"}, "/tmp/x", connectors.ExecOptions{})
	if !connectors.IsTransferError(err) {
		t.Errorf("expected a transfer error for a missing source, got %v", err)
	}
	if len(fake.commands) != 0 {
		t.Error("expected no CLI call for a missing source")
	}
}

func TestUploadPrintsConfirmation(t *testing.T) {
	fake := newPushPullFake()
	var printed bytes.Buffer
	conn := newTestConnector(t, "web1", fake, WithPrintWriter(&printed))

	err := conn.Upload(context.Background(), connectors.FileSource{Reader: strings.NewReader("x")}, "/tmp/x", connectors.ExecOptions{PrintOutput: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(printed.String(), "/tmp/x") {
		t.Errorf("expected confirmation naming the destination, got %q", printed.String())
	}
}

func TestDownloadToPath(t *testing.T) {
	fake := newPushPullFake()
	fake.files["web1/var/log/app.log"] = []byte("log lines")
	conn := newTestConnector(t, "web1", fake)

	dstPath := filepath.Join(t.TempDir(), "app.log")
	err := conn.Download(context.Background(), "/var/log/app.log", connectors.FileDest{Path: dstPath}, connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(got) != "log lines" {
		t.Errorf("expected 'log lines', got %q", got)
	}
	fake.assertNoStagingLeftovers(t, dstPath)
}

func TestDownloadStripsLeadingSlash(t *testing.T) {
	fake := newPushPullFake()
	fake.files["web1/etc/hostname"] = []byte("web1\n")
	conn := newTestConnector(t, "web1", fake)

	var out bytes.Buffer
	err := conn.Download(context.Background(), "/etc/hostname", connectors.FileDest{Writer: &out}, connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	words := fake.lastWords(t)
	if words[3] != "web1/etc/hostname" {
		t.Errorf("expected the pull source to strip the leading slash, got %q", words[3])
	}
}

func TestDownloadFailureCarriesStderrAndCleansUp(t *testing.T) {
	fake := newPushPullFake()
	conn := newTestConnector(t, "web1", fake)

	var out bytes.Buffer
	err := conn.Download(context.Background(), "/missing", connectors.FileDest{Writer: &out}, connectors.ExecOptions{})
	if !connectors.IsTransferError(err) {
		t.Fatalf("expected a transfer error, got %v", err)
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Errorf("expected the error to carry stderr, got %q", err.Error())
	}
	fake.assertNoStagingLeftovers(t)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	fake := newPushPullFake()
	conn := newTestConnector(t, "web1", fake)

	content := []byte("round trip \x00 bytes \xff")
	err := conn.Upload(context.Background(), connectors.FileSource{Reader: bytes.NewReader(content)}, "/tmp/blob", connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected upload error: %v", err)
	}

	var out bytes.Buffer
	err = conn.Download(context.Background(), "/tmp/blob", connectors.FileDest{Writer: &out}, connectors.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected download error: %v", err)
	}

	if !bytes.Equal(out.Bytes(), content) {
		t.Errorf("round trip mismatch: pushed %q, pulled %q", content, out.Bytes())
	}
	fake.assertNoStagingLeftovers(t)
}
