package cache

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Store holds the records of one kind together with the ranges already
// fetched for it. It is the in-memory form of one cache document.
type Store[R Record] struct {
	kind    Kind
	records map[string]R
	ranges  []DateRange
}

type document[R Record] struct {
	Records       map[string]R `json:"records"`
	FetchedRanges []DateRange  `json:"_fetched_ranges"`
}

// rawDocument defers record decoding so one bad record cannot sink the rest.
type rawDocument struct {
	Records       map[string]json.RawMessage `json:"records"`
	FetchedRanges []DateRange                `json:"_fetched_ranges"`
}

func newStore[R Record](kind Kind) *Store[R] {
	return &Store[R]{kind: kind, records: make(map[string]R)}
}

// decodeStore parses a document. Records that fail to decode are reported to
// skip (when non-nil) and left out. Ranges are re-merged in case the file was
// edited by hand.
func decodeStore[R Record](kind Kind, data []byte, skip func(key string, err error)) (*Store[R], error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	s := newStore[R](kind)
	for k, raw := range doc.Records {
		if k == "" {
			continue
		}
		var r R
		if err := json.Unmarshal(raw, &r); err != nil {
			if skip != nil {
				skip(k, err)
			}
			continue
		}
		if !isNil(r) {
			s.records[k] = r
		}
	}
	s.ranges = MergeRanges(doc.FetchedRanges)
	return s, nil
}

func (s *Store[R]) encode() ([]byte, error) {
	doc := document[R]{Records: s.records, FetchedRanges: s.ranges}
	if doc.FetchedRanges == nil {
		doc.FetchedRanges = []DateRange{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Kind returns the entity kind of the store.
func (s *Store[R]) Kind() Kind { return s.kind }

// Len returns the number of stored records.
func (s *Store[R]) Len() int { return len(s.records) }

// Get returns the record stored under key.
func (s *Store[R]) Get(key string) (R, bool) {
	r, ok := s.records[key]
	return r, ok
}

// Select returns records whose date falls in [start, end], ordered by key.
func (s *Store[R]) Select(start, end string) []R {
	var out []R
	for _, k := range s.keys() {
		if r := s.records[k]; r.InRange(start, end) {
			out = append(out, r)
		}
	}
	return out
}

// MergeInsert stores items by identity key, overwriting earlier copies and
// stamping each with cachedAt. Items without a key are skipped. It returns
// the number stored.
func (s *Store[R]) MergeInsert(items []R, cachedAt string) int {
	n := 0
	for _, item := range items {
		key := item.Key()
		if key == "" {
			continue
		}
		item.SetCachedAt(cachedAt)
		s.records[key] = item
		n++
	}
	return n
}

// RecordRange marks [start, end] as fetched.
func (s *Store[R]) RecordRange(start, end string) {
	s.ranges = MergeRanges(append(s.ranges, DateRange{Start: start, End: end}))
}

// FetchedRanges returns a copy of the merged fetched ranges.
func (s *Store[R]) FetchedRanges() []DateRange {
	return append([]DateRange(nil), s.ranges...)
}

// Gaps returns the parts of [start, end] not fetched yet.
func (s *Store[R]) Gaps(start, end string) []DateRange {
	return DetectGaps(s.ranges, start, end)
}

// DeleteBefore removes records dated strictly before day. Records without a
// date are kept and fetched ranges are left alone.
func (s *Store[R]) DeleteBefore(day string) int {
	n := 0
	for k, r := range s.records {
		if d := r.Day(); d != "" && d < day {
			delete(s.records, k)
			n++
		}
	}
	return n
}

// DayBounds returns the oldest and newest record days.
func (s *Store[R]) DayBounds() (oldest, newest string) {
	for _, r := range s.records {
		d := r.Day()
		if d == "" {
			continue
		}
		if oldest == "" || d < oldest {
			oldest = d
		}
		if d > newest {
			newest = d
		}
	}
	return oldest, newest
}

func (s *Store[R]) keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isNil catches "key": null members, which decode to nil pointers.
func isNil[R Record](r R) bool {
	v := reflect.ValueOf(r)
	return !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil())
}
