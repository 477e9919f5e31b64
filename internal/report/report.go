// Package report renders date buckets.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/d-kuro/archive-dater/internal/datebucket"
	"github.com/d-kuro/archive-dater/internal/errors"
)

// Format selects the output rendering.
type Format string

const (
	// Text prints each date, its files as "* path" lines, then a blank line.
	Text Format = "text"
	// JSON prints an array of {"date", "files"} objects.
	JSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON:
		return f, nil
	default:
		return "", errors.Configuration(fmt.Sprintf("unknown output format %q (want text or json)", s))
	}
}

// Write renders buckets to w in the given format.
func Write(w io.Writer, format Format, buckets []datebucket.Bucket) error {
	switch format {
	case JSON:
		return writeJSON(w, buckets)
	case Text, "":
		return writeText(w, buckets)
	default:
		return errors.Configuration(fmt.Sprintf("unknown output format %q", format))
	}
}

func writeText(w io.Writer, buckets []datebucket.Bucket) error {
	bw := bufio.NewWriter(w)
	for _, b := range buckets {
		fmt.Fprintln(bw, b.Date)
		for _, file := range b.Files {
			fmt.Fprintf(bw, "* %s\n", file)
		}
		fmt.Fprintln(bw)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	return nil
}

func writeJSON(w io.Writer, buckets []datebucket.Bucket) error {
	if buckets == nil {
		buckets = []datebucket.Bucket{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(buckets); err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	return nil
}
