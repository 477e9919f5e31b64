// Package main implements the archive-dater command.
// It lists the entries of an archive grouped by the UTC date of their
// modification time, newest date first.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d-kuro/archive-dater/internal/config"
	"github.com/d-kuro/archive-dater/internal/dater"
	"github.com/d-kuro/archive-dater/internal/errors"
	"github.com/d-kuro/archive-dater/internal/logging"
	"github.com/d-kuro/archive-dater/internal/report"
	"github.com/d-kuro/archive-dater/pkg/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "archive-dater: %v\n", err)
	if errors.Is(err, errors.ErrUsage) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return errors.ExitCode(err)
}

// newRootCmd creates the root command writing the report to stdout and
// diagnostics to stderr. An archive named "-" is read from stdin.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive-dater [flags] <archive>",
		Short: "List archive entries grouped by modification date",
		Long: `archive-dater reads the modification time of every entry in an archive
and prints the entry paths grouped by UTC calendar date, newest date first.

Supported containers are tar, zip, 7z, ar, cpio and ISO9660 images,
optionally compressed with gzip, zstd, bzip2, xz, lzma or lz4. Use "-" to
read the archive from standard input. Entries without a recorded
modification time are left out.`,
		Version:       version.GetVersion().String(),
		Args:          exactlyOneArchive,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDater(cmd, args[0])
		},
	}

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Usage(err.Error())
	})

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func exactlyOneArchive(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.Usage(fmt.Sprintf("expected exactly one archive, got %d arguments", len(args)))
	}
	return nil
}

// runDater scans the archive and prints the report. Nothing is written to
// stdout unless the whole archive was read successfully.
func runDater(cmd *cobra.Command, path string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)

	res, err := dater.Run(cmd.Context(), path, dater.Options{
		MaxDates: cfg.MaxDates,
		Logger:   logger,
		Stdin:    cmd.InOrStdin(),
	})
	if err != nil {
		return errors.Wrap(err, "%s", path)
	}

	logger.WithArchive(path).Info("Archive scanned",
		slog.String("format", res.Format),
		slog.String("filter", res.Filter),
		slog.Int("entries", res.Stats.Entries),
		slog.Int("skipped", res.Stats.Skipped),
		slog.Int("dates", res.Buckets.Len()))

	return report.Write(cmd.OutOrStdout(), cfg.Format, res.Buckets.Buckets())
}
