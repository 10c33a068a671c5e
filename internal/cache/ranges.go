package cache

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DateRange is a closed interval of YYYY-MM-DD days. It is stored as a
// two-element JSON array.
type DateRange struct {
	Start string
	End   string
}

func (r DateRange) String() string {
	return r.Start + ".." + r.End
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{r.Start, r.End})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("date range needs 2 elements, got %d", len(pair))
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// MergeRanges returns the ranges sorted by start with overlapping or
// touching intervals folded together. The input is not modified.
func MergeRanges(ranges []DateRange) []DateRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]DateRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// DetectGaps returns the parts of [start, end] not covered by fetched.
// With nothing fetched the whole request is one gap. Otherwise a gap shares
// its boundary days with the neighbouring fetched ranges and must satisfy
// start < end, except that an uncovered single-day request returns itself as
// a one-day gap. The cursor walk alone would report nothing there, leaving
// that day unfetchable forever.
func DetectGaps(fetched []DateRange, start, end string) []DateRange {
	if start > end {
		return nil
	}
	if len(fetched) == 0 {
		return []DateRange{{Start: start, End: end}}
	}
	merged := MergeRanges(fetched)

	// A single-day request has no room for a cursor walk.
	if start == end {
		for _, r := range merged {
			if r.Start <= start && start <= r.End {
				return nil
			}
		}
		return []DateRange{{Start: start, End: end}}
	}

	var gaps []DateRange
	cursor := start
	for _, r := range merged {
		if r.Start > cursor {
			gapEnd := min(r.Start, end)
			if cursor < gapEnd {
				gaps = append(gaps, DateRange{Start: cursor, End: gapEnd})
			}
		}
		cursor = max(cursor, r.End)
	}
	if cursor < end {
		gaps = append(gaps, DateRange{Start: cursor, End: end})
	}
	return gaps
}
