package dater

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	"github.com/d-kuro/archive-dater/internal/archive"
	"github.com/d-kuro/archive-dater/internal/datebucket"
	"github.com/d-kuro/archive-dater/internal/errors"
)

// sliceSource replays a fixed list of entries.
type sliceSource struct {
	entries []archive.Entry
	err     error
}

func (s *sliceSource) Next() (*archive.Entry, error) {
	if len(s.entries) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	e := s.entries[0]
	s.entries = s.entries[1:]
	return &e, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestCollect(t *testing.T) {
	src := &sliceSource{entries: []archive.Entry{
		{Pathname: "a", ModTime: day(2020, 1, 2), HasModTime: true},
		{Pathname: "undated"},
		{Pathname: "b", ModTime: day(2020, 1, 2), HasModTime: true},
		{Pathname: "c", ModTime: day(2020, 1, 1), HasModTime: true},
	}}
	b := datebucket.New(datebucket.DefaultMaxDates)

	stats, err := Collect(context.Background(), src, b, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if diff := cmp.Diff(Stats{Entries: 4, Skipped: 1}, stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	want := []datebucket.Bucket{
		{Date: "2020-01-02", Files: []string{"a", "b"}},
		{Date: "2020-01-01", Files: []string{"c"}},
	}
	if diff := cmp.Diff(want, b.Buckets()); diff != "" {
		t.Errorf("Buckets mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectErrors(t *testing.T) {
	t.Run("source error", func(t *testing.T) {
		src := &sliceSource{err: errors.Archive("bad header")}
		_, err := Collect(context.Background(), src, datebucket.New(0), nil)
		if !errors.Is(err, errors.ErrArchive) {
			t.Errorf("Collect() error = %v, want archive error", err)
		}
	})

	t.Run("capacity", func(t *testing.T) {
		src := &sliceSource{entries: []archive.Entry{
			{Pathname: "a", ModTime: day(2020, 1, 1), HasModTime: true},
			{Pathname: "b", ModTime: day(2020, 1, 2), HasModTime: true},
		}}
		_, err := Collect(context.Background(), src, datebucket.New(1), nil)
		if !errors.Is(err, datebucket.ErrTooManyDates) {
			t.Errorf("Collect() error = %v, want ErrTooManyDates", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := &sliceSource{entries: []archive.Entry{{Pathname: "a", ModTime: day(2020, 1, 1), HasModTime: true}}}
		_, err := Collect(ctx, src, datebucket.New(0), nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Collect() error = %v, want context.Canceled", err)
		}
	})
}

func writeTarGz(t *testing.T, path string, files []archive.Entry) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for _, f := range files {
		if err := tw.WriteHeader(&tar.Header{Name: f.Pathname, Mode: 0644, ModTime: f.ModTime}); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.tar.gz")
	writeTarGz(t, path, []archive.Entry{
		{Pathname: "a", ModTime: day(2020, 1, 2)},
		{Pathname: "b", ModTime: day(2020, 1, 2)},
		{Pathname: "c", ModTime: day(2020, 1, 1)},
	})

	res, err := Run(context.Background(), path, Options{MaxDates: datebucket.DefaultMaxDates})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Format != archive.FormatTar || res.Filter != archive.FilterGzip {
		t.Errorf("format/filter = %s/%s, want tar/gzip", res.Format, res.Filter)
	}
	if res.Stats.Entries != 3 || res.Stats.Skipped != 0 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
	want := []datebucket.Bucket{
		{Date: "2020-01-02", Files: []string{"a", "b"}},
		{Date: "2020-01-01", Files: []string{"c"}},
	}
	if diff := cmp.Diff(want, res.Buckets.Buckets()); diff != "" {
		t.Errorf("Buckets mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMissingArchive(t *testing.T) {
	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "nope.tar"), Options{})
	if !errors.Is(err, errors.ErrArchive) {
		t.Errorf("Run() error = %v, want archive error", err)
	}
}

func TestRunStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.tar.gz")
	writeTarGz(t, path, []archive.Entry{
		{Pathname: "a", ModTime: day(2020, 1, 2)},
		{Pathname: "c", ModTime: day(2020, 1, 1)},
	})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), StdinPath, Options{Stdin: bytes.NewReader(data)})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Filter != archive.FilterGzip || res.Buckets.Len() != 2 {
		t.Errorf("unexpected result: filter %s, %d dates", res.Filter, res.Buckets.Len())
	}

	_, err = Run(context.Background(), StdinPath, Options{})
	if !errors.Is(err, errors.ErrArchive) {
		t.Errorf("Run() without stdin error = %v, want archive error", err)
	}
}
