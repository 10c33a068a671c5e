package cache

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/colthorp/likes-cli-go/internal/core"
)

func TestMergeRanges(t *testing.T) {
	tests := []struct {
		name string
		in   []DateRange
		want []DateRange
	}{
		{"empty", nil, nil},
		{"single", []DateRange{{"2024-01-01", "2024-01-05"}}, []DateRange{{"2024-01-01", "2024-01-05"}}},
		{
			"overlapping unsorted",
			[]DateRange{{"2024-01-08", "2024-01-12"}, {"2024-01-01", "2024-01-10"}},
			[]DateRange{{"2024-01-01", "2024-01-12"}},
		},
		{
			"shared boundary day merges",
			[]DateRange{{"2024-01-01", "2024-01-10"}, {"2024-01-10", "2024-01-20"}},
			[]DateRange{{"2024-01-01", "2024-01-20"}},
		},
		{
			"next day does not merge",
			[]DateRange{{"2024-01-01", "2024-01-10"}, {"2024-01-11", "2024-01-20"}},
			[]DateRange{{"2024-01-01", "2024-01-10"}, {"2024-01-11", "2024-01-20"}},
		},
		{
			"contained",
			[]DateRange{{"2024-01-01", "2024-01-31"}, {"2024-01-05", "2024-01-06"}},
			[]DateRange{{"2024-01-01", "2024-01-31"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeRanges(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeRanges(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMergeRangesDoesNotMutateInput(t *testing.T) {
	in := []DateRange{{"2024-02-01", "2024-02-10"}, {"2024-01-01", "2024-02-05"}}
	MergeRanges(in)
	if in[0].Start != "2024-02-01" || in[1].End != "2024-02-05" {
		t.Errorf("input was modified: %v", in)
	}
}

func TestDetectGapsExample(t *testing.T) {
	fetched := []DateRange{{"2024-01-01", "2024-01-10"}}
	got := DetectGaps(fetched, "2024-01-01", "2024-01-20")
	want := []DateRange{{"2024-01-10", "2024-01-20"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectGaps = %v, want %v", got, want)
	}
}

func TestDetectGaps(t *testing.T) {
	tests := []struct {
		name       string
		fetched    []DateRange
		start, end string
		want       []DateRange
	}{
		{"nothing fetched", nil, "2024-01-01", "2024-01-31", []DateRange{{"2024-01-01", "2024-01-31"}}},
		{"fully covered", []DateRange{{"2023-12-01", "2024-02-01"}}, "2024-01-01", "2024-01-31", nil},
		{
			"hole in the middle",
			[]DateRange{{"2024-01-01", "2024-01-10"}, {"2024-01-20", "2024-01-31"}},
			"2024-01-01", "2024-01-31",
			[]DateRange{{"2024-01-10", "2024-01-20"}},
		},
		{
			"leading gap",
			[]DateRange{{"2024-01-15", "2024-02-15"}},
			"2024-01-01", "2024-01-31",
			[]DateRange{{"2024-01-01", "2024-01-15"}},
		},
		{
			"range after request",
			[]DateRange{{"2024-03-01", "2024-03-31"}},
			"2024-01-01", "2024-01-31",
			[]DateRange{{"2024-01-01", "2024-01-31"}},
		},
		{"inverted request", nil, "2024-01-31", "2024-01-01", nil},
		{"single day covered", []DateRange{{"2024-01-01", "2024-01-10"}}, "2024-01-10", "2024-01-10", nil},
		{
			"single day uncovered",
			[]DateRange{{"2024-01-01", "2024-01-10"}},
			"2024-01-15", "2024-01-15",
			[]DateRange{{"2024-01-15", "2024-01-15"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectGaps(tt.fetched, tt.start, tt.end)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectGaps(%v, %s, %s) = %v, want %v", tt.fetched, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

// randomRanges draws n ranges within the first 120 days of 2024.
func randomRanges(r *rand.Rand, n int) []DateRange {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]DateRange, n)
	for i := range out {
		s := r.Intn(120)
		e := s + r.Intn(20)
		out[i] = DateRange{core.FormatDate(base.AddDate(0, 0, s)), core.FormatDate(base.AddDate(0, 0, e))}
	}
	return out
}

func TestMergeRangesProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		in := randomRanges(r, r.Intn(12))
		once := MergeRanges(in)
		twice := MergeRanges(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("merge not idempotent for %v: %v then %v", in, once, twice)
		}
		for j := 1; j < len(once); j++ {
			if once[j-1].End >= once[j].Start {
				t.Fatalf("ranges overlap or touch after merge: %v", once)
			}
		}
	}
}

func TestDetectGapsProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		fetched := MergeRanges(randomRanges(r, r.Intn(6)))
		s := r.Intn(120)
		e := s + r.Intn(40)
		start := core.FormatDate(base.AddDate(0, 0, s))
		end := core.FormatDate(base.AddDate(0, 0, e))
		gaps := DetectGaps(fetched, start, end)

		for _, g := range gaps {
			if g.Start < start || g.End > end || g.Start > g.End {
				t.Fatalf("gap %v outside request %s..%s", g, start, end)
			}
			if g.Start == g.End && start != end {
				t.Fatalf("empty gap %v for %s..%s", g, start, end)
			}
			for _, f := range fetched {
				if g.Start < f.End && f.Start < g.End {
					t.Fatalf("gap %v overlaps fetched %v", g, f)
				}
			}
		}

		for d := s; d <= e; d++ {
			day := core.FormatDate(base.AddDate(0, 0, d))
			if !covers(fetched, day) && !covers(gaps, day) {
				t.Fatalf("day %s of %s..%s neither fetched %v nor in gaps %v", day, start, end, fetched, gaps)
			}
		}
	}
}

func covers(ranges []DateRange, day string) bool {
	for _, r := range ranges {
		if r.Start <= day && day <= r.End {
			return true
		}
	}
	return false
}

func TestDateRangeJSON(t *testing.T) {
	data, err := json.Marshal([]DateRange{{"2024-01-01", "2024-01-10"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[["2024-01-01","2024-01-10"]]` {
		t.Errorf("unexpected encoding %s", data)
	}

	var back []DateRange
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[0].End != "2024-01-10" {
		t.Errorf("round trip lost end: %v", back)
	}

	var bad DateRange
	if err := json.Unmarshal([]byte(`["2024-01-01"]`), &bad); err == nil {
		t.Error("expected error for one-element range")
	}
}
