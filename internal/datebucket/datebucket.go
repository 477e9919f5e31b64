// Package datebucket groups archive pathnames by the UTC calendar date of
// their modification time.
package datebucket

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/d-kuro/archive-dater/internal/collections"
	"github.com/d-kuro/archive-dater/internal/errors"
)

// DefaultMaxDates is the default cap on distinct dates.
const DefaultMaxDates = 1024

// DateLayout is the key format. Fixed width, so string order is date order.
const DateLayout = "2006-01-02"

// ErrTooManyDates is returned when a new date would exceed the cap.
var ErrTooManyDates = errors.Capacity("too many dates")

// Bucket holds the files seen for one date, in insertion order.
type Bucket struct {
	Date  string   `json:"date"`
	Files []string `json:"files"`
}

// Bucketer maps dates to files, newest date first.
type Bucketer struct {
	maxDates int
	dates    *collections.OrderedSlice[string, []string]
}

// New creates an empty Bucketer. maxDates <= 0 removes the cap.
func New(maxDates int) *Bucketer {
	return &Bucketer{
		maxDates: maxDates,
		dates: collections.NewOrderedSlice[string, []string](func(a, b string) int {
			return strings.Compare(b, a)
		}),
	}
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Add records path under date. The table is left unchanged on error.
func (b *Bucketer) Add(date, path string) error {
	if b.maxDates > 0 && b.dates.Len() >= b.maxDates && !b.dates.Contains(date) {
		return fmt.Errorf("%w: limit is %d", ErrTooManyDates, b.maxDates)
	}
	files, _ := b.dates.GetOrInsert(date, func() []string { return nil })
	*files = append(*files, path)
	return nil
}

// AddTime records path under the UTC date of t.
func (b *Bucketer) AddTime(t time.Time, path string) error {
	return b.Add(DateOf(t), path)
}

// Len returns the number of distinct dates.
func (b *Bucketer) Len() int {
	return b.dates.Len()
}

// Buckets returns a copy of the table, newest date first.
func (b *Bucketer) Buckets() []Bucket {
	buckets := make([]Bucket, 0, b.dates.Len())
	for date, files := range b.dates.All() {
		buckets = append(buckets, Bucket{Date: date, Files: slices.Clone(files)})
	}
	return buckets
}
