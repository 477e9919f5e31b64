// Package archive reads entry metadata from tar, zip, 7z, ar, cpio and
// ISO9660 archives, optionally wrapped in gzip, zstd, bzip2, xz, lzma or lz4
// compression. The container and compression formats are detected from the
// content, not the file name.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/d-kuro/archive-dater/internal/errors"
)

// MaxBuffered caps how much of a stream is held in memory for formats that
// need random access (zip, 7z, ISO9660). Only unfiltered files avoid it.
const MaxBuffered = 1 << 30

// ErrUnsupportedFormat is returned when the content is not a known archive.
var ErrUnsupportedFormat = errors.Archive("unrecognized archive format")

// Entry is the metadata of one archive member.
type Entry struct {
	Pathname   string
	ModTime    time.Time
	HasModTime bool
}

// Reader iterates the entries of an archive.
type Reader struct {
	filter  string
	format  string
	next    func() (*Entry, error)
	closers []func() error
}

// Open opens the archive at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ArchiveWithCause("failed to open archive", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.ArchiveWithCause("failed to stat archive", err)
	}

	r, err := newReader(f, f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closers = append(r.closers, f.Close)
	return r, nil
}

// NewReader reads an archive from a stream such as standard input.
// Formats that need random access are buffered in memory.
func NewReader(src io.Reader) (*Reader, error) {
	return newReader(src, nil, 0)
}

// newReader detects the filter on src. When ra is set it must read the same
// bytes as src and is used directly by random-access formats.
func newReader(src io.Reader, ra io.ReaderAt, size int64) (*Reader, error) {
	br := bufio.NewReader(src)
	head, err := peek(br, filterHeadSize)
	if err != nil {
		return nil, err
	}

	r := &Reader{filter: detectFilter(head)}

	stream, err := r.decompress(br)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if r.filter != FilterNone {
		ra = nil
	}

	if err := r.detectFormat(stream, ra, size); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func peek(br *bufio.Reader, n int) ([]byte, error) {
	head, err := br.Peek(n)
	if err != nil && err != io.EOF {
		return nil, errors.ArchiveWithCause("failed to read archive", err)
	}
	return head, nil
}

func (r *Reader) decompress(br *bufio.Reader) (io.Reader, error) {
	switch r.filter {
	case FilterGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.ArchiveWithCause("failed to open gzip stream", err)
		}
		r.closers = append(r.closers, zr.Close)
		return zr, nil
	case FilterZstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.ArchiveWithCause("failed to open zstd stream", err)
		}
		r.closers = append(r.closers, func() error {
			zr.Close()
			return nil
		})
		return zr, nil
	case FilterXz:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.ArchiveWithCause("failed to open xz stream", err)
		}
		return xr, nil
	case FilterLzma:
		lr, err := lzma.NewReader(br)
		if err != nil {
			return nil, errors.ArchiveWithCause("failed to open lzma stream", err)
		}
		return lr, nil
	case FilterLz4:
		return lz4.NewReader(br), nil
	case FilterBzip2:
		return bzip2.NewReader(br), nil
	default:
		return br, nil
	}
}

func (r *Reader) detectFormat(stream io.Reader, ra io.ReaderAt, size int64) error {
	br := bufio.NewReaderSize(stream, 2*formatHeadSize)
	head, err := peek(br, formatHeadSize)
	if err != nil {
		return err
	}

	switch {
	case len(head) == 0:
		r.format = FormatEmpty
		r.next = func() (*Entry, error) { return nil, io.EOF }
		return nil
	case isZip(head):
		ra, size, err := randomAccess(br, ra, size)
		if err != nil {
			return err
		}
		return r.openZip(ra, size)
	case is7z(head):
		ra, size, err := randomAccess(br, ra, size)
		if err != nil {
			return err
		}
		return r.open7z(ra, size)
	case isAr(head):
		r.openAr(br)
		return nil
	case isCpio(head):
		r.openCpio(br)
		return nil
	case isISO9660(head):
		ra, _, err := randomAccess(br, ra, size)
		if err != nil {
			return err
		}
		return r.openISO9660(ra)
	case isTar(head):
		r.openTar(br)
		return nil
	default:
		return ErrUnsupportedFormat
	}
}

// randomAccess returns ra when the archive is a plain file and otherwise
// buffers the rest of the stream.
func randomAccess(br *bufio.Reader, ra io.ReaderAt, size int64) (io.ReaderAt, int64, error) {
	if ra != nil {
		return ra, size, nil
	}
	data, err := io.ReadAll(io.LimitReader(br, MaxBuffered+1))
	if err != nil {
		return nil, 0, errors.ArchiveWithCause("failed to read archive stream", err)
	}
	if len(data) > MaxBuffered {
		return nil, 0, errors.ResourceWithCause("archive stream too large to buffer", io.ErrShortBuffer)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func (r *Reader) openTar(src io.Reader) {
	r.format = FormatTar
	tr := tar.NewReader(src)
	r.next = func() (*Entry, error) {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.ArchiveWithCause("failed to read tar header", err)
		}
		return &Entry{
			Pathname:   hdr.Name,
			ModTime:    hdr.ModTime,
			HasModTime: !hdr.ModTime.IsZero(),
		}, nil
	}
}

// msdosZero is what a zip reader reports for all-zero MS-DOS date/time fields.
var msdosZero = time.Date(1980, 0, 0, 0, 0, 0, 0, time.UTC)

func (r *Reader) openZip(ra io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return errors.ArchiveWithCause("failed to read zip directory", err)
	}
	r.format = FormatZip

	files := zr.File
	r.next = func() (*Entry, error) {
		if len(files) == 0 {
			return nil, io.EOF
		}
		f := files[0]
		files = files[1:]

		noDOSTime := f.ModifiedDate == 0 && f.ModifiedTime == 0
		return &Entry{
			Pathname:   f.Name,
			ModTime:    f.Modified,
			HasModTime: !f.Modified.IsZero() && !(noDOSTime && f.Modified.Equal(msdosZero)),
		}, nil
	}
	return nil
}

// Next returns the next entry, or io.EOF after the last one.
func (r *Reader) Next() (*Entry, error) {
	return r.next()
}

// Format returns the detected container format.
func (r *Reader) Format() string {
	return r.format
}

// Filter returns the detected compression filter.
func (r *Reader) Filter() string {
	return r.filter
}

// Close releases the decompressor and the underlying file.
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	if len(errs) > 0 {
		return errors.ArchiveWithCause("failed to close archive", errs[0])
	}
	return nil
}
