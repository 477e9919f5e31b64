package archive

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Filter names reported by Reader.Filter.
const (
	FilterNone  = "none"
	FilterGzip  = "gzip"
	FilterZstd  = "zstd"
	FilterBzip2 = "bzip2"
	FilterXz    = "xz"
	FilterLzma  = "lzma"
	FilterLz4   = "lz4"
)

// Format names reported by Reader.Format.
const (
	FormatTar     = "tar"
	FormatZip     = "zip"
	FormatAr      = "ar"
	FormatCpio    = "cpio"
	Format7z      = "7zip"
	FormatISO9660 = "iso9660"
	FormatEmpty   = "empty"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	lz4Magic   = []byte{0x04, 0x22, 0x4d, 0x18}

	zipLocalMagic = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	sevenZipMagic = []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}
	arMagic       = []byte("!<arch>\n")
	cpioNewcMagic = []byte("070701")
	cpioCRCMagic  = []byte("070702")
	isoMagic      = []byte("CD001")
)

const (
	tarBlockSize = 512

	// lzmaHeaderSize is the properties byte, the dictionary size and the
	// uncompressed size of a .lzma stream.
	lzmaHeaderSize = 13
	filterHeadSize = lzmaHeaderSize + 1

	// The primary volume descriptor lives in sector 16; its identifier
	// follows the one-byte descriptor type.
	isoMagicOffset = 16*2048 + 1
	formatHeadSize = isoMagicOffset + 5
)

func detectFilter(head []byte) string {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return FilterGzip
	case bytes.HasPrefix(head, zstdMagic):
		return FilterZstd
	case bytes.HasPrefix(head, xzMagic):
		return FilterXz
	case bytes.HasPrefix(head, lz4Magic):
		return FilterLz4
	case bytes.HasPrefix(head, bzip2Magic) && len(head) > 3 && head[3] >= '1' && head[3] <= '9':
		return FilterBzip2
	case isLzma(head):
		return FilterLzma
	default:
		return FilterNone
	}
}

// isLzma checks the legacy .lzma header, which carries no magic number: a
// valid properties byte, a dictionary size of 2^n or 2^n+2^(n-1), a
// plausible uncompressed size, and a zero first range coder byte.
func isLzma(head []byte) bool {
	if len(head) < filterHeadSize {
		return false
	}
	if head[0] >= 9*5*5 {
		return false
	}
	dict := binary.LittleEndian.Uint32(head[1:5])
	if dict < 1<<12 {
		return false
	}
	for dict&1 == 0 {
		dict >>= 1
	}
	if dict != 1 && dict != 3 {
		return false
	}
	size := binary.LittleEndian.Uint64(head[5:lzmaHeaderSize])
	if size != math.MaxUint64 && size >= 1<<48 {
		return false
	}
	return head[lzmaHeaderSize] == 0
}

func isZip(head []byte) bool {
	return bytes.HasPrefix(head, zipLocalMagic) || bytes.HasPrefix(head, zipEmptyMagic)
}

func is7z(head []byte) bool {
	return bytes.HasPrefix(head, sevenZipMagic)
}

func isAr(head []byte) bool {
	return bytes.HasPrefix(head, arMagic)
}

// isCpio accepts the SVR4 "newc" layout with or without checksums.
func isCpio(head []byte) bool {
	return bytes.HasPrefix(head, cpioNewcMagic) || bytes.HasPrefix(head, cpioCRCMagic)
}

// isISO9660 looks for the volume descriptor identifier. An image starts with
// 32 KiB of system area, usually zeros, so this must run before isTar.
func isISO9660(head []byte) bool {
	return len(head) >= formatHeadSize && bytes.Equal(head[isoMagicOffset:formatHeadSize], isoMagic)
}

// isTar reports whether block looks like a tar header: a ustar/GNU magic,
// a valid V7 checksum, or an all-zero end-of-archive block.
func isTar(block []byte) bool {
	if len(block) < tarBlockSize {
		return false
	}
	block = block[:tarBlockSize]
	if bytes.Equal(block, make([]byte, tarBlockSize)) {
		return true
	}
	if bytes.HasPrefix(block[257:], []byte("ustar")) {
		return true
	}
	return validTarChecksum(block)
}

func validTarChecksum(block []byte) bool {
	field := strings.Trim(string(block[148:156]), " \x00")
	want, err := strconv.ParseInt(field, 8, 64)
	if err != nil {
		return false
	}
	var unsigned, signed int64
	for i, c := range block {
		if i >= 148 && i < 156 {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return want == unsigned || want == signed
}
