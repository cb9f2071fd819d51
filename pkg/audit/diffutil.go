package audit

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// lines renders a record image as one sorted `field: "value"` line per field
// so diffs are stable and count one line per changed field.
func lines(v map[string]string) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + ": " + strconv.Quote(v[k]) + "\n"
	}
	return out
}

// Diff returns a unified diff between two record images and the number of
// added and removed field lines. A nil image is an absent record.
func Diff(before, after map[string]string) (unified string, added, removed int) {
	diff := difflib.UnifiedDiff{
		A:        lines(before),
		B:        lines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  3,
	}
	s, _ := difflib.GetUnifiedDiffString(diff)
	for _, l := range strings.Split(s, "\n") {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
		case strings.HasPrefix(l, "+"):
			added++
		case strings.HasPrefix(l, "-"):
			removed++
		}
	}
	return s, added, removed
}

// DiffJSON is Diff over stored JSON images. Empty or invalid input is
// treated as an absent record.
func DiffJSON(before, after []byte) (string, int, int) {
	return Diff(decode(before), decode(after))
}

func decode(b []byte) map[string]string {
	if len(b) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
