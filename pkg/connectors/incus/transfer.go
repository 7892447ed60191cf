package incus

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/tessera-io/tessera/pkg/connectors"
	"github.com/tessera-io/tessera/pkg/telemetry"
)

// Upload copies a local file or stream to remotePath inside the bound
// instance using the CLI's file push subcommand.
//
// When the source is a stream, or a path that does not name a regular
// file, the content is first materialized into a staging file. The
// staging file is exclusively owned by this call and is deleted on every
// exit path, success or failure.
func (c *Connector) Upload(ctx context.Context, src connectors.FileSource, remotePath string, opts connectors.ExecOptions) (err error) {
	defer func() {
		telemetry.Transfers.WithLabelValues(c.Kind(), "push", telemetry.StatusOf(err)).Inc()
	}()

	op := c.cfg.Binary + " file push"
	if c.target == "" {
		err = connectors.NewTransferError(op, "", errNoTarget)
		return err
	}

	localPath := regularFilePath(src.Path)
	if localPath == "" {
		if src.Reader == nil {
			if src.Path != "" {
				err = connectors.NewTransferError(op, "", fmt.Errorf("local file %q not found", src.Path))
				return err
			}
			err = connectors.NewTransferError(op, "", fmt.Errorf("no upload source given"))
			return err
		}

		staging, stageErr := os.CreateTemp("", "tessera-upload-")
		if stageErr != nil {
			err = connectors.NewTransferError(op, "", stageErr)
			return err
		}
		defer os.Remove(staging.Name())

		if _, copyErr := io.Copy(staging, src.Reader); copyErr != nil {
			staging.Close()
			err = connectors.NewTransferError(op, "", copyErr)
			return err
		}
		if closeErr := staging.Close(); closeErr != nil {
			err = connectors.NewTransferError(op, "", closeErr)
			return err
		}
		localPath = staging.Name()
	}

	ok, out, runErr := c.exec.Run(
		ctx,
		shellquote.Join(c.cfg.Binary, "file", "push", localPath, c.target+"/"+remotePath),
		opts.PrintFlags(),
	)
	if runErr != nil {
		err = connectors.NewTransferError(op, out.Stderr, runErr)
		return err
	}
	if !ok {
		err = connectors.NewTransferError(op, out.Stderr, nil)
		return err
	}

	if opts.PrintOutput {
		fmt.Fprintf(c.printTo, "[%s] file uploaded to instance: %s\n", c.target, remotePath)
	}
	return nil
}

// Download copies remotePath from the bound instance into dst using the
// CLI's file pull subcommand. The pull lands in a staging file first,
// whose bytes are then copied into the destination path or writer. The
// staging file is deleted on every exit path.
func (c *Connector) Download(ctx context.Context, remotePath string, dst connectors.FileDest, opts connectors.ExecOptions) (err error) {
	defer func() {
		telemetry.Transfers.WithLabelValues(c.Kind(), "pull", telemetry.StatusOf(err)).Inc()
	}()

	op := c.cfg.Binary + " file pull"
	if c.target == "" {
		err = connectors.NewTransferError(op, "", errNoTarget)
		return err
	}

	staging, stageErr := os.CreateTemp("", "tessera-download-")
	if stageErr != nil {
		err = connectors.NewTransferError(op, "", stageErr)
		return err
	}
	stagingPath := staging.Name()
	staging.Close()
	defer os.Remove(stagingPath)

	ok, out, runErr := c.exec.Run(
		ctx,
		shellquote.Join(
			c.cfg.Binary,
			"file",
			"pull",
			c.target+"/"+strings.TrimLeft(remotePath, "/"),
			stagingPath,
		),
		opts.PrintFlags(),
	)
	if runErr != nil {
		err = connectors.NewTransferError(op, out.Stderr, runErr)
		return err
	}
	if !ok {
		err = connectors.NewTransferError(op, out.Stderr, nil)
		return err
	}

	if copyErr := copyStaging(stagingPath, dst); copyErr != nil {
		err = connectors.NewTransferError(op, "", copyErr)
		return err
	}

	if opts.PrintOutput {
		fmt.Fprintf(c.printTo, "[%s] file downloaded from instance: %s\n", c.target, remotePath)
	}
	return nil
}

// copyStaging writes the staging file's bytes into the caller-supplied
// destination, opened for binary writing when it is a path.
func copyStaging(stagingPath string, dst connectors.FileDest) error {
	in, err := os.Open(stagingPath)
	if err != nil {
		return err
	}
	defer in.Close()

	if dst.Writer != nil {
		_, err = io.Copy(dst.Writer, in)
		return err
	}
	if dst.Path == "" {
		return fmt.Errorf("no download destination given")
	}

	out, err := os.Create(dst.Path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// regularFilePath resolves path to an absolute path when it names a
// regular file, and returns "" otherwise.
func regularFilePath(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	return abs
}
