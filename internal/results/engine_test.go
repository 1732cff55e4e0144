package results

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"neuroscan/internal/api"
	"neuroscan/internal/historyclient"
	"neuroscan/internal/store"
	"neuroscan/pkg/domain"
)

// fakeBackend serves the history endpoints from a fixed record set and
// counts history fetches so tests can assert when the cache absorbed a
// query.
type fakeBackend struct {
	srv          *httptest.Server
	records      []domain.PredictionRecord
	historyCalls int32
}

func newFakeBackend(t *testing.T, records []domain.PredictionRecord) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{records: records}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/history/predictions/history":
			atomic.AddInt32(&fb.historyCalls, 1)
			fb.serveHistory(w, r)
		case "/history/predictions/statistics":
			_ = json.NewEncoder(w).Encode(domain.Statistics{
				TotalPredictions: len(fb.records),
				ByModelType:      map[string]int{"tumor": 2, "chest_xray": 1},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) serveHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perPage := 100
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	// The fake serves everything on page 1; pagination depth is covered by
	// the local pipeline tests.
	matched := fb.records
	if mt := q.Get("model_type"); mt != "" {
		var out []domain.PredictionRecord
		for _, rec := range matched {
			if string(rec.ModelType) == mt {
				out = append(out, rec)
			}
		}
		matched = out
	}
	if len(matched) > perPage {
		matched = matched[:perPage]
	}
	_ = json.NewEncoder(w).Encode(domain.HistoryPage{
		Results:    matched,
		Total:      len(matched),
		TotalPages: 1,
	})
}

func (fb *fakeBackend) calls() int32 {
	return atomic.LoadInt32(&fb.historyCalls)
}

func record(id int, name string, model domain.ModelType, prediction string, confidence float64, created time.Time) domain.PredictionRecord {
	return domain.PredictionRecord{
		ID:         id,
		Patient:    domain.Patient{ID: id, FullName: name, DateOfBirth: "1990-05-10"},
		ModelType:  model,
		Prediction: prediction,
		Confidence: confidence,
		Status:     domain.StatusCompleted,
		CreatedAt:  created,
	}
}

func testRecords(base time.Time) []domain.PredictionRecord {
	return []domain.PredictionRecord{
		record(1, "Asha Rai", domain.ModelTumor, "glioma", 0.97, base.Add(-3*time.Hour)),
		record(2, "Bikram Shah", domain.ModelChestXRay, "PNEUMONIA", 0.82, base.Add(-2*time.Hour)),
		record(3, "Asha Gurung", domain.ModelTumor, "no_tumor", 0.65, base.Add(-1*time.Hour)),
	}
}

func newTestEngine(t *testing.T, backendURL string, st store.Store, cfg Config) (*Engine, *time.Time) {
	t.Helper()
	history := historyclient.New(api.New(backendURL, time.Second, nil))
	e := NewEngine(history, st, cfg, time.UTC)
	current := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return current }
	return e, &current
}

func TestPrimeInstallsAndPersistsCache(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	st := store.NewMemoryStore()
	e, _ := newTestEngine(t, fb.srv.URL, st, Config{})

	e.Prime(context.Background(), 7)

	if !e.CacheUsable(7) {
		t.Fatalf("cache should be usable right after priming")
	}
	raw, ok, err := st.Get(store.KeyResultsCache)
	if err != nil || !ok {
		t.Fatalf("expected persisted cache blob: ok=%v err=%v", ok, err)
	}
	var blob cacheBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		t.Fatalf("decode blob: %v", err)
	}
	if blob.UserID != 7 || len(blob.Data) != 3 {
		t.Fatalf("unexpected blob: user=%d rows=%d", blob.UserID, len(blob.Data))
	}
}

func TestQueryServesActiveSearchFromCache(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	e, _ := newTestEngine(t, fb.srv.URL, store.NewMemoryStore(), Config{})

	e.Prime(context.Background(), 7)
	primed := fb.calls()

	page, err := e.Query(context.Background(), 7, Query{Search: "asha", Sort: SortPatient, Page: 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !page.Local {
		t.Fatalf("search with a fresh cache must be served locally")
	}
	if fb.calls() != primed {
		t.Fatalf("local query must not hit the backend")
	}
	if page.Total != 2 || len(page.Entries) != 2 {
		t.Fatalf("expected the two Asha rows, got total=%d rows=%d", page.Total, len(page.Entries))
	}
	if page.Entries[0].PatientName != "Asha Gurung" || page.Entries[1].PatientName != "Asha Rai" {
		t.Fatalf("patient sort is name ascending, got %q then %q",
			page.Entries[0].PatientName, page.Entries[1].PatientName)
	}
}

func TestQueryWithoutSearchDelegatesToBackend(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	e, _ := newTestEngine(t, fb.srv.URL, store.NewMemoryStore(), Config{})

	e.Prime(context.Background(), 7)
	before := fb.calls()

	page, err := e.Query(context.Background(), 7, Query{Filter: FilterBrain})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Local {
		t.Fatalf("browsing without a search term goes to the backend")
	}
	if fb.calls() != before+1 {
		t.Fatalf("expected one backend fetch, got %d", fb.calls()-before)
	}
	for _, entry := range page.Entries {
		if entry.ModelType != domain.ModelTumor {
			t.Fatalf("backend filter leaked a %s row", entry.ModelType)
		}
	}
}

func TestCacheFreshnessIsStrictlyUnderTTL(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	e, clock := newTestEngine(t, fb.srv.URL, store.NewMemoryStore(), Config{TTL: 5 * time.Minute})

	e.Prime(context.Background(), 7)

	*clock = clock.Add(5*time.Minute - time.Nanosecond)
	if !e.CacheUsable(7) {
		t.Fatalf("cache one nanosecond under the TTL is still fresh")
	}
	*clock = clock.Add(time.Nanosecond)
	if e.CacheUsable(7) {
		t.Fatalf("cache at exactly the TTL is expired")
	}

	before := fb.calls()
	page, err := e.Query(context.Background(), 7, Query{Search: "asha"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Local || fb.calls() != before+1 {
		t.Fatalf("expired cache must fall back to the backend")
	}
}

func TestCacheIsBoundToItsOwner(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	e, _ := newTestEngine(t, fb.srv.URL, store.NewMemoryStore(), Config{})

	e.Prime(context.Background(), 7)
	if e.CacheUsable(8) {
		t.Fatalf("another user must never read this cache")
	}

	before := fb.calls()
	page, err := e.Query(context.Background(), 8, Query{Search: "asha"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Local || fb.calls() != before+1 {
		t.Fatalf("a different user's search must go to the backend")
	}
}

func TestLoadPersistedHonorsOwnerAndTTL(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	st := store.NewMemoryStore()
	e, clock := newTestEngine(t, fb.srv.URL, st, Config{TTL: 5 * time.Minute})
	e.Prime(context.Background(), 7)

	// A fresh process restores the mirror without refetching.
	restored, clock2 := newTestEngine(t, fb.srv.URL, st, Config{TTL: 5 * time.Minute})
	*clock2 = *clock
	if !restored.LoadPersisted(7) {
		t.Fatalf("fresh blob for the same user must restore")
	}
	if !restored.CacheUsable(7) {
		t.Fatalf("restored cache should be usable")
	}

	// The wrong user discards the blob entirely.
	other, _ := newTestEngine(t, fb.srv.URL, st, Config{TTL: 5 * time.Minute})
	if other.LoadPersisted(8) {
		t.Fatalf("blob of another user must not restore")
	}
	if _, ok, _ := st.Get(store.KeyResultsCache); ok {
		t.Fatalf("foreign blob must be deleted, not left behind")
	}
}

func TestLoadPersistedDropsStaleAndCorruptBlobs(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	st := store.NewMemoryStore()
	e, clock := newTestEngine(t, fb.srv.URL, st, Config{TTL: 5 * time.Minute})
	e.Prime(context.Background(), 7)

	*clock = clock.Add(5 * time.Minute)
	if e.LoadPersisted(7) {
		t.Fatalf("blob at exactly the TTL must not restore")
	}
	if _, ok, _ := st.Get(store.KeyResultsCache); ok {
		t.Fatalf("stale blob must be deleted")
	}

	_ = st.Set(store.KeyResultsCache, []byte("not json"))
	if e.LoadPersisted(7) {
		t.Fatalf("corrupt blob must not restore")
	}
	if _, ok, _ := st.Get(store.KeyResultsCache); ok {
		t.Fatalf("corrupt blob must be deleted")
	}
}

func TestSortOrders(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: 1, PatientName: "Cara", Result: "glioma", Confidence: 65, CreatedAt: base.Add(-3 * time.Hour)},
		{ID: 2, PatientName: "Asha", Result: "no_tumor", Confidence: 97, CreatedAt: base.Add(-1 * time.Hour)},
		{ID: 3, PatientName: "Bikram", Result: "glioma", Confidence: 82, CreatedAt: base.Add(-2 * time.Hour)},
	}
	order := func(key SortKey) []int {
		rows := make([]Entry, len(entries))
		copy(rows, entries)
		sortEntries(rows, key)
		ids := make([]int, len(rows))
		for i, e := range rows {
			ids[i] = e.ID
		}
		return ids
	}

	cases := []struct {
		key  SortKey
		want []int
	}{
		{SortDate, []int{2, 3, 1}},       // newest first
		{SortPatient, []int{2, 3, 1}},    // name ascending
		{SortConfidence, []int{2, 3, 1}}, // highest first
		{SortResult, []int{1, 3, 2}},     // label ascending, tie keeps input order
	}
	for _, tc := range cases {
		got := order(tc.key)
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("sort %q = %v, want %v", tc.key, got, tc.want)
			}
		}
	}
}

func TestSortIsStableOnTies(t *testing.T) {
	rows := []Entry{
		{ID: 1, Result: "glioma", Confidence: 80},
		{ID: 2, Result: "glioma", Confidence: 80},
		{ID: 3, Result: "glioma", Confidence: 80},
	}
	sortEntries(rows, SortConfidence)
	for i, want := range []int{1, 2, 3} {
		if rows[i].ID != want {
			t.Fatalf("equal keys must keep their incoming order, got %v", rows)
		}
	}
}

func TestLocalPagination(t *testing.T) {
	rows := make([]Entry, 12)
	for i := range rows {
		rows[i] = Entry{ID: i + 1, PatientName: "Patient", Result: "glioma"}
	}
	e := &Engine{cfg: Config{}.withDefaults()}

	page := e.queryLocal(rows, Query{Page: 3}, "glioma")
	if page.Total != 12 || page.TotalPages != 3 {
		t.Fatalf("unexpected envelope: total=%d pages=%d", page.Total, page.TotalPages)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("last page should hold the 2 leftover rows, got %d", len(page.Entries))
	}
	if empty := e.queryLocal(rows, Query{Page: 4}, "glioma"); len(empty.Entries) != 0 {
		t.Fatalf("out-of-range page must be empty")
	}
}

func TestSearchMatchesAcrossDisplayFields(t *testing.T) {
	rows := []Entry{
		{ID: 1, PatientName: "Asha Rai", PatientID: "PT-000001", AnalysisType: "Brain Tumor Detection", Result: "glioma"},
		{ID: 2, PatientName: "Bikram Shah", PatientID: "PT-000002", AnalysisType: "Pneumonia Detection", Result: "NORMAL", Notes: "follow-up in May"},
	}
	cases := []struct {
		needle string
		want   int
	}{
		{"asha", 1},
		{"pt-000002", 2},
		{"pneumonia", 2},
		{"GLIOMA", 1},
		{"follow-up", 2},
	}
	for _, tc := range cases {
		got := filterEntries(rows, "", tc.needle)
		if len(got) != 1 || got[0].ID != tc.want {
			t.Fatalf("search %q matched %v, want row %d", tc.needle, got, tc.want)
		}
	}
	if got := filterEntries(rows, "", "absent"); len(got) != 0 {
		t.Fatalf("no field contains %q, got %v", "absent", got)
	}
}

func TestRefreshClearsAndReprimes(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	st := store.NewMemoryStore()
	e, _ := newTestEngine(t, fb.srv.URL, st, Config{})

	e.Prime(context.Background(), 7)
	before := fb.calls()

	e.Refresh(context.Background(), 7)
	if fb.calls() != before+1 {
		t.Fatalf("refresh must refetch, got %d extra calls", fb.calls()-before)
	}
	if !e.CacheUsable(7) {
		t.Fatalf("refresh leaves a fresh cache behind")
	}
}

func TestLoadDashboardFetchesPageAndStatistics(t *testing.T) {
	base := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	fb := newFakeBackend(t, testRecords(base))
	e, _ := newTestEngine(t, fb.srv.URL, store.NewMemoryStore(), Config{})

	page, stats, err := e.LoadDashboard(context.Background(), 7, Query{})
	if err != nil {
		t.Fatalf("load dashboard: %v", err)
	}
	if len(page.Entries) != 3 {
		t.Fatalf("expected all seeded rows, got %d", len(page.Entries))
	}
	if stats.TotalPredictions != 3 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}
