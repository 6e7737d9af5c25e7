package goes

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Entry is one listed file name with the fields parsed out of it
type Entry struct {
	Name string
	// Timestamp is the leading YYYYDDDHHMM token
	Timestamp int64
	// Resolution is the second-to-last token, e.g. "1250x750"
	Resolution string
}

// Sampled is an entry kept for download together with its index in the selection
type Sampled struct {
	Index int
	Entry Entry
}

// Window is the open interval (Start, End) of encoded timestamps plus the wanted resolution
type Window struct {
	Start int64
	End   int64
	Res   string
}

var separators = strings.NewReplacer("_", "-", ".", "-")

// EncodeTimestamp packs t into the YYYYDDDHHMM integer used by archive file
// names. Every field is fixed width with the year most significant, so the
// integers sort chronologically, including across Dec 31 -> Jan 1.
func EncodeTimestamp(t time.Time) int64 {
	return int64(t.Year())*10_000_000 +
		int64(t.YearDay())*10_000 +
		int64(t.Hour())*100 +
		int64(t.Minute())
}

// NewWindow builds the window covering rangeHours after start
func NewWindow(start time.Time, rangeHours int, res string) Window {
	end := start.Add(time.Duration(rangeHours) * time.Hour)
	return Window{
		Start: EncodeTimestamp(start),
		End:   EncodeTimestamp(end),
		Res:   res,
	}
}

// Contains reports whether e lies strictly inside the window with the wanted resolution
func (w Window) Contains(e Entry) bool {
	return e.Timestamp > w.Start && e.Timestamp < w.End && e.Resolution == w.Res
}

// ParseEntry splits a listed name on '-', '_' and '.' and reads the timestamp
// and resolution tokens. Names that are not archive frames (parent links,
// index pages, thumbnails without a numeric prefix) report false.
func ParseEntry(name string) (Entry, bool) {
	tokens := strings.Split(separators.Replace(name), "-")
	if len(tokens) < 2 {
		return Entry{}, false
	}

	// ParseFloat also reads hex floats like 0x1p4, which are not timestamps
	token := strings.TrimSpace(tokens[0])
	if strings.ContainsAny(token, "xX_") {
		return Entry{}, false
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Entry{}, false
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return Entry{}, false
	}

	return Entry{
		Name:       name,
		Timestamp:  int64(f),
		Resolution: tokens[len(tokens)-2],
	}, true
}

// Select keeps the names inside w, in listing order
func Select(names []string, w Window) []Entry {
	var kept []Entry
	for _, name := range names {
		e, ok := ParseEntry(name)
		if !ok {
			continue
		}
		if w.Contains(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// Sample keeps every stride-th entry starting with the first. A stride below
// one is treated as one.
func Sample(entries []Entry, stride int) []Sampled {
	if stride < 1 {
		stride = 1
	}
	sampled := make([]Sampled, 0, (len(entries)+stride-1)/stride)
	for i, e := range entries {
		if i%stride == 0 {
			sampled = append(sampled, Sampled{Index: i, Entry: e})
		}
	}
	return sampled
}
