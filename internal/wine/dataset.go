package wine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndexOf returns the position of the record with the given id, or -1.
func (d Dataset) IndexOf(id string) int {
	for i := range d {
		if d[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the record with the given id.
func (d Dataset) Find(id string) (Wine, bool) {
	i := d.IndexOf(id)
	if i < 0 {
		return Wine{}, false
	}
	return d[i], true
}

// Without returns a copy of d with the record removed. The second result is
// false when no record had that id, in which case the copy equals d.
func (d Dataset) Without(id string) (Dataset, bool) {
	out := make(Dataset, 0, len(d))
	found := false
	for _, w := range d {
		if w.ID == id {
			found = true
			continue
		}
		out = append(out, w)
	}
	return out, found
}

// Replace returns a copy of d with the record sharing w's id swapped for w,
// keeping its position.
func (d Dataset) Replace(w Wine) (Dataset, bool) {
	i := d.IndexOf(w.ID)
	if i < 0 {
		return d, false
	}
	out := make(Dataset, len(d))
	copy(out, d)
	out[i] = w
	return out, true
}

// IDs returns the set of ids in use.
func (d Dataset) IDs() map[string]bool {
	ids := make(map[string]bool, len(d))
	for _, w := range d {
		ids[w.ID] = true
	}
	return ids
}

// SequentialID returns max(numeric id) + 1. Non-numeric ids are ignored.
func SequentialID(d Dataset) string {
	var max int64
	for _, w := range d {
		n, err := strconv.ParseInt(w.ID, 10, 64)
		if err == nil && n > max {
			max = n
		}
	}
	next := max + 1
	ids := d.IDs()
	for ids[strconv.FormatInt(next, 10)] {
		next++
	}
	return strconv.FormatInt(next, 10)
}

// TimestampID derives an id from now in unix milliseconds, bumping it until
// it no longer collides with an existing record.
func TimestampID(d Dataset, now time.Time) string {
	next := now.UnixMilli()
	ids := d.IDs()
	for ids[strconv.FormatInt(next, 10)] {
		next++
	}
	return strconv.FormatInt(next, 10)
}

// Summary flattens records one per line for use as LLM context.
func (d Dataset) Summary() string {
	var b strings.Builder
	for _, w := range d {
		fmt.Fprintf(&b, "[%s] %s", w.ID, w.Name)
		if w.Vintage != 0 {
			fmt.Fprintf(&b, " %d", w.Vintage)
		}
		for _, part := range []string{w.Country, w.Region, w.Grapes, w.Style} {
			if part != "" {
				b.WriteString(" | ")
				b.WriteString(part)
			}
		}
		if w.DrinkingWindow != "" {
			fmt.Fprintf(&b, " | window %s", w.DrinkingWindow)
		}
		fmt.Fprintf(&b, " | qty %d\n", w.Quantity)
	}
	return b.String()
}
