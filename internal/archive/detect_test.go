package archive

import (
	"bytes"
	"testing"
)

func TestDetectFilter(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08}, FilterGzip},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, FilterZstd},
		{"xz", []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, FilterXz},
		{"bzip2", []byte("BZh91AY"), FilterBzip2},
		{"bzip2 bad level", []byte("BZhx"), FilterNone},
		{"lz4", []byte{0x04, 0x22, 0x4d, 0x18, 0x64}, FilterLz4},
		{"lzma", lzmaHead(0x5d, 1<<23, 0), FilterLzma},
		{"lzma 3*2^n dictionary", lzmaHead(0x5d, 3<<20, 0), FilterLzma},
		{"lzma bad properties", lzmaHead(0xe1, 1<<23, 0), FilterNone},
		{"lzma bad dictionary", lzmaHead(0x5d, 5<<20, 0), FilterNone},
		{"lzma nonzero coder byte", lzmaHead(0x5d, 1<<23, 1), FilterNone},
		{"tar name", append([]byte("a"), make([]byte, 20)...), FilterNone},
		{"zip", []byte("PK\x03\x04"), FilterNone},
		{"empty", nil, FilterNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectFilter(tt.head); got != tt.want {
				t.Errorf("detectFilter(%q) = %q, want %q", tt.head, got, tt.want)
			}
		})
	}
}

func lzmaHead(props byte, dict uint32, first byte) []byte {
	head := []byte{props, byte(dict), byte(dict >> 8), byte(dict >> 16), byte(dict >> 24)}
	head = append(head, bytes.Repeat([]byte{0xff}, 8)...)
	return append(head, first)
}

func TestFormatSignatures(t *testing.T) {
	iso := make([]byte, formatHeadSize)
	iso[isoMagicOffset-1] = 1
	copy(iso[isoMagicOffset:], "CD001")

	tests := []struct {
		name  string
		head  []byte
		check func([]byte) bool
		want  bool
	}{
		{"7z", []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c, 0x00, 0x04}, is7z, true},
		{"xz is not 7z", []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, is7z, false},
		{"ar", []byte("!<arch>\ndebian-binary"), isAr, true},
		{"thin ar", []byte("!<thin>\n"), isAr, false},
		{"cpio newc", []byte("07070100000001"), isCpio, true},
		{"cpio crc", []byte("07070200000001"), isCpio, true},
		{"cpio odc", []byte("070707000001"), isCpio, false},
		{"iso9660", iso, isISO9660, true},
		{"iso9660 short", iso[:isoMagicOffset+2], isISO9660, false},
		{"zero block", make([]byte, formatHeadSize), isISO9660, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.head); got != tt.want {
				t.Errorf("check(%q) = %v, want %v", tt.head[:min(len(tt.head), 16)], got, tt.want)
			}
		})
	}
}

func TestIsTar(t *testing.T) {
	v7 := make([]byte, tarBlockSize)
	copy(v7, "hello.txt")
	copy(v7[100:], "0000644\x00")
	copy(v7[124:], "00000000000\x00")
	copy(v7[136:], "13600000000\x00")
	var sum int
	for i, c := range v7 {
		if i >= 148 && i < 156 {
			c = ' '
		}
		sum += int(c)
	}
	copy(v7[148:], []byte(octal6(sum)+"\x00 "))

	corrupt := make([]byte, tarBlockSize)
	copy(corrupt, v7)
	corrupt[0] = 'j'

	tests := []struct {
		name  string
		block []byte
		want  bool
	}{
		{"zero block", make([]byte, tarBlockSize), true},
		{"v7 checksum", v7, true},
		{"bad checksum", corrupt, false},
		{"short", []byte("ustar"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTar(tt.block); got != tt.want {
				t.Errorf("isTar() = %v, want %v", got, tt.want)
			}
		})
	}
}

func octal6(n int) string {
	digits := []byte("000000")
	for i := len(digits) - 1; i >= 0; i-- {
		digits[i] = byte('0' + n%8)
		n /= 8
	}
	return string(digits)
}
