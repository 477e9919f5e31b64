package archive

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/blakesmith/ar"
	"github.com/bodgit/sevenzip"
	"github.com/cavaliergopher/cpio"
	"github.com/kdomanski/iso9660"

	"github.com/d-kuro/archive-dater/internal/errors"
)

// maxArNameTable bounds the GNU long name table read into memory.
const maxArNameTable = 16 << 20

// openAr iterates a Unix ar archive. Symbol tables are skipped and GNU and
// BSD long names are resolved. Every ar header carries an mtime.
func (r *Reader) openAr(src io.Reader) {
	r.format = FormatAr
	rd := ar.NewReader(src)
	var names []byte

	r.next = func() (*Entry, error) {
		for {
			hdr, err := rd.Next()
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, errors.ArchiveWithCause("failed to read ar header", err)
			}

			name, err := arMemberName(hdr, rd, &names)
			if err != nil {
				return nil, err
			}
			if name == "" {
				continue
			}
			return &Entry{
				Pathname:   name,
				ModTime:    hdr.ModTime,
				HasModTime: true,
			}, nil
		}
	}
}

// arMemberName returns the member name for hdr, or "" for the special
// members that are not files. The GNU name table is stored into names.
func arMemberName(hdr *ar.Header, body io.Reader, names *[]byte) (string, error) {
	switch {
	case hdr.Name == "/" || hdr.Name == "/SYM64/" || strings.HasPrefix(hdr.Name, "__.SYMDEF"):
		return "", nil
	case hdr.Name == "//":
		table, err := io.ReadAll(io.LimitReader(body, maxArNameTable))
		if err != nil {
			return "", errors.ArchiveWithCause("failed to read ar name table", err)
		}
		*names = table
		return "", nil
	case strings.HasPrefix(hdr.Name, "#1/"):
		n, err := strconv.Atoi(hdr.Name[3:])
		if err != nil || n <= 0 || int64(n) > hdr.Size {
			return "", errors.Archive("invalid BSD ar name length " + strconv.Quote(hdr.Name))
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(body, buf); err != nil {
			return "", errors.ArchiveWithCause("failed to read ar member name", err)
		}
		return string(bytes.TrimRight(buf, "\x00")), nil
	case len(hdr.Name) > 1 && hdr.Name[0] == '/':
		off, err := strconv.Atoi(hdr.Name[1:])
		if err != nil || off < 0 || off >= len(*names) {
			return "", errors.Archive("invalid GNU ar name reference " + strconv.Quote(hdr.Name))
		}
		name := (*names)[off:]
		if i := bytes.IndexByte(name, '\n'); i >= 0 {
			name = name[:i]
		}
		return strings.TrimSuffix(string(name), "/"), nil
	default:
		return strings.TrimSuffix(hdr.Name, "/"), nil
	}
}

// openCpio iterates an SVR4 cpio archive up to its trailer. Every header
// carries an mtime.
func (r *Reader) openCpio(src io.Reader) {
	r.format = FormatCpio
	cr := cpio.NewReader(src)
	r.next = func() (*Entry, error) {
		hdr, err := cr.Next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.ArchiveWithCause("failed to read cpio header", err)
		}
		return &Entry{
			Pathname:   hdr.Name,
			ModTime:    hdr.ModTime,
			HasModTime: true,
		}, nil
	}
}

// open7z lists a 7z archive from its header. The mtime is optional per file.
func (r *Reader) open7z(ra io.ReaderAt, size int64) error {
	zr, err := sevenzip.NewReader(ra, size)
	if err != nil {
		return errors.ArchiveWithCause("failed to read 7z header", err)
	}
	r.format = Format7z

	files := zr.File
	r.next = func() (*Entry, error) {
		if len(files) == 0 {
			return nil, io.EOF
		}
		f := files[0]
		files = files[1:]
		return &Entry{
			Pathname:   f.Name,
			ModTime:    f.Modified,
			HasModTime: !f.Modified.IsZero(),
		}, nil
	}
	return nil
}

// isoNoDate is how an all-zero ISO9660 recording date decodes.
var isoNoDate = time.Date(1900, 0, 0, 0, 0, 0, 0, time.UTC)

type isoNode struct {
	file *iso9660.File
	path string
}

// openISO9660 walks the directory tree depth first. Rock Ridge names are
// used when present; directories are reported with a trailing slash.
func (r *Reader) openISO9660(ra io.ReaderAt) error {
	img, err := iso9660.OpenImage(ra)
	if err != nil {
		return errors.ArchiveWithCause("failed to read ISO9660 volume", err)
	}
	root, err := img.RootDir()
	if err != nil {
		return errors.ArchiveWithCause("failed to read ISO9660 root directory", err)
	}
	r.format = FormatISO9660

	stack, err := pushChildren(nil, root, "")
	if err != nil {
		return err
	}
	r.next = func() (*Entry, error) {
		if len(stack) == 0 {
			return nil, io.EOF
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		name := n.path
		if n.file.IsDir() {
			name += "/"
			var err error
			if stack, err = pushChildren(stack, n.file, name); err != nil {
				return nil, err
			}
		}
		mtime := n.file.ModTime()
		return &Entry{
			Pathname:   name,
			ModTime:    mtime,
			HasModTime: !mtime.Equal(isoNoDate),
		}, nil
	}
	return nil
}

// pushChildren pushes the children of dir in reverse so they pop in
// directory order.
func pushChildren(stack []isoNode, dir *iso9660.File, prefix string) ([]isoNode, error) {
	children, err := dir.GetChildren()
	if err != nil {
		return nil, errors.ArchiveWithCause("failed to read ISO9660 directory "+strconv.Quote(prefix), err)
	}
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, isoNode{file: children[i], path: prefix + children[i].Name()})
	}
	return stack, nil
}
