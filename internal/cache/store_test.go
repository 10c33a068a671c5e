package cache

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/colthorp/likes-cli-go/internal/api"
)

func TestStoreMergeInsertIsIdempotent(t *testing.T) {
	s := newStore[*api.Activity](KindActivities)
	items := []*api.Activity{
		{ID: api.FlexInt(1), SignDate: api.FlexInt(at("2024-07-01"))},
		{ID: api.FlexInt(2), SignDate: api.FlexInt(at("2024-07-02"))},
	}

	if n := s.MergeInsert(items, "2024-07-20T08:00:00Z"); n != 2 {
		t.Fatalf("first insert stored %d, want 2", n)
	}
	again := []*api.Activity{
		{ID: api.FlexInt(1), SignDate: api.FlexInt(at("2024-07-01")), Title: "renamed"},
		{ID: api.FlexInt(2), SignDate: api.FlexInt(at("2024-07-02"))},
	}
	s.MergeInsert(again, "2024-07-21T08:00:00Z")

	if s.Len() != 2 {
		t.Fatalf("Len() = %d after re-insert, want 2", s.Len())
	}
	got, ok := s.Get("1")
	if !ok {
		t.Fatal("record 1 missing")
	}
	if got.Title != "renamed" {
		t.Errorf("Title = %q, want the later copy", got.Title)
	}
	if got.CachedAt != "2024-07-21T08:00:00Z" {
		t.Errorf("CachedAt = %q, want the latest stamp", got.CachedAt)
	}
}

func TestStoreSkipsKeylessRecords(t *testing.T) {
	s := newStore[*api.Feedback](KindFeedback)
	n := s.MergeInsert([]*api.Feedback{
		{Content: "no timestamp"},
		{CreatedTime: api.FlexInt(at("2024-07-03")), Content: "ok"},
	}, "2024-07-20T08:00:00Z")
	if n != 1 || s.Len() != 1 {
		t.Errorf("stored %d (Len %d), want 1", n, s.Len())
	}
}

func TestStoreSelectAndBounds(t *testing.T) {
	s := newStore[*api.Activity](KindActivities)
	s.MergeInsert([]*api.Activity{
		{ID: api.FlexInt(3), SignDate: api.FlexInt(at("2024-07-10"))},
		{ID: api.FlexInt(1), SignDate: api.FlexInt(at("2024-07-01"))},
		{ID: api.FlexInt(2), SignDate: api.FlexInt(at("2024-07-05"))},
	}, "2024-07-20T08:00:00Z")

	got := s.Select("2024-07-01", "2024-07-05")
	if len(got) != 2 || got[0].Key() != "1" || got[1].Key() != "2" {
		t.Errorf("Select = %v, want records 1 and 2 in key order", keysOf(got))
	}

	oldest, newest := s.DayBounds()
	if oldest != "2024-07-01" || newest != "2024-07-10" {
		t.Errorf("DayBounds = %s, %s", oldest, newest)
	}
}

func TestStoreDeleteBeforeKeepsRanges(t *testing.T) {
	s := newStore[*api.Plan](KindPlans)
	s.MergeInsert([]*api.Plan{{Start: "2024-06-30"}, {Start: "2024-07-01"}, {Start: "2024-07-02"}}, "2024-07-20T08:00:00Z")
	s.RecordRange("2024-06-01", "2024-07-31")

	if n := s.DeleteBefore("2024-07-01"); n != 1 {
		t.Errorf("DeleteBefore removed %d, want 1", n)
	}
	if _, ok := s.Get("2024-06-30"); ok {
		t.Error("2024-06-30 should be gone")
	}
	if _, ok := s.Get("2024-07-01"); !ok {
		t.Error("the cutoff day itself must be kept")
	}
	if len(s.FetchedRanges()) != 1 {
		t.Errorf("fetched ranges changed: %v", s.FetchedRanges())
	}
}

func TestStoreDocumentRoundTrip(t *testing.T) {
	s := newStore[*api.Activity](KindActivities)
	var a api.Activity
	if err := json.Unmarshal([]byte(`{"id":7,"sign_date":1719835200,"device":"watch"}`), &a); err != nil {
		t.Fatal(err)
	}
	s.MergeInsert([]*api.Activity{&a}, "2024-07-20T08:00:00Z")
	s.RecordRange("2024-07-10", "2024-07-20")
	s.RecordRange("2024-07-01", "2024-07-10")

	data, err := s.encode()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"records"`, `"_fetched_ranges"`, `"device": "watch"`, `"_cached_at": "2024-07-20T08:00:00Z"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %s:\n%s", want, data)
		}
	}

	back, err := decodeStore[*api.Activity](KindActivities, data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != 1 {
		t.Errorf("Len() = %d after decode", back.Len())
	}
	ranges := back.FetchedRanges()
	if len(ranges) != 1 || ranges[0] != (DateRange{"2024-07-01", "2024-07-20"}) {
		t.Errorf("ranges = %v", ranges)
	}
}

func TestStoreEmptyDocumentHasRangeList(t *testing.T) {
	data, err := newStore[*api.Plan](KindPlans).encode()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"_fetched_ranges": []`) {
		t.Errorf("empty store should write an empty range list:\n%s", data)
	}
}

func TestDecodeStoreDropsNullRecordsAndMergesRanges(t *testing.T) {
	doc := `{
	  "records": {"1": {"id": 1, "sign_date": 1719835200}, "2": null},
	  "_fetched_ranges": [["2024-07-05", "2024-07-09"], ["2024-07-01", "2024-07-06"]]
	}`
	s, err := decodeStore[*api.Activity](KindActivities, []byte(doc), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if got := s.FetchedRanges(); len(got) != 1 || got[0].End != "2024-07-09" {
		t.Errorf("ranges not merged on load: %v", got)
	}
}

func TestDecodeStoreSkipsUndecodableRecords(t *testing.T) {
	doc := `{
	  "records": {
	    "1": {"id": 1, "sign_date": 1719835200, "title": 42},
	    "2": {"id": [2], "sign_date": 1719921600},
	    "3": "oops"
	  },
	  "_fetched_ranges": [["2024-06-01", "2024-07-05"]]
	}`
	var skipped []string
	s, err := decodeStore[*api.Activity](KindActivities, []byte(doc), func(key string, err error) {
		skipped = append(skipped, key)
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("1"); !ok || s.Len() != 1 {
		t.Errorf("records = %v, want only 1", keysOf(s.Select("2024-01-01", "2024-12-31")))
	}
	sort.Strings(skipped)
	if len(skipped) != 2 || skipped[0] != "2" || skipped[1] != "3" {
		t.Errorf("skipped = %v, want [2 3]", skipped)
	}
	if got := s.FetchedRanges(); len(got) != 1 || got[0] != (DateRange{"2024-06-01", "2024-07-05"}) {
		t.Errorf("ranges = %v", got)
	}
}

func TestDecodeStoreRejectsGarbage(t *testing.T) {
	if _, err := decodeStore[*api.Activity](KindActivities, []byte("{not json"), nil); err == nil {
		t.Error("expected error")
	}
}

func keysOf[R Record](items []R) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.Key()
	}
	return out
}
