// Package results implements the prediction-history cache and hybrid
// search engine: a time-bounded, user-bound local cache served for active
// searches, with delegation to the backend's own filter/pagination
// everywhere else.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"neuroscan/internal/historyclient"
	"neuroscan/internal/store"
	"neuroscan/pkg/domain"
)

// Filter selects an analysis type in queries.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterBrain     Filter = "brain"
	FilterPneumonia Filter = "pneumonia"
)

// modelType maps a display filter to the raw model-type value the backend
// and the local cache match on.
func (f Filter) modelType() domain.ModelType {
	switch f {
	case FilterBrain:
		return domain.ModelTumor
	case FilterPneumonia:
		return domain.ModelChestXRay
	default:
		return ""
	}
}

// SortKey orders a result set.
type SortKey string

const (
	SortDate       SortKey = "date"       // newest first
	SortPatient    SortKey = "patient"    // name ascending
	SortConfidence SortKey = "confidence" // highest first
	SortResult     SortKey = "result"     // label ascending
)

// Config bounds the cache. Zero values fall back to the product defaults.
type Config struct {
	TTL       time.Duration
	PageSize  int
	PrimeSize int
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.PrimeSize <= 0 {
		c.PrimeSize = 100
	}
	return c
}

// Query names one page of results to produce.
type Query struct {
	Filter Filter
	Search string
	Sort   SortKey
	Page   int
}

// Page is a produced page plus its pagination envelope. Local reports
// whether it was served from the cache without a network call.
type Page struct {
	Entries    []Entry
	Total      int
	TotalPages int
	Local      bool
}

// cacheBlob is the durable mirror of the in-memory cache, keyed by owner so
// a reload before TTL expiry can skip the priming fetch.
type cacheBlob struct {
	Data      []Entry `json:"data"`
	Timestamp int64   `json:"timestamp"`
	UserID    int     `json:"user_id"`
}

// Engine owns the cache and runs the filter→sort→paginate pipeline. It is
// not safe for concurrent mutation from multiple goroutines beyond what
// the internal lock covers; all methods take the owning user explicitly so
// a session switch can never leak another user's rows.
type Engine struct {
	history *historyclient.Client
	store   store.Store
	cfg     Config
	loc     *time.Location
	now     func() time.Time

	mu       sync.Mutex
	all      []Entry
	cachedAt time.Time
	ownerID  int
}

// NewEngine builds the engine. loc is the presentation timezone for entry
// formatting; nil defaults to UTC.
func NewEngine(history *historyclient.Client, st store.Store, cfg Config, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		history: history,
		store:   st,
		cfg:     cfg.withDefaults(),
		loc:     loc,
		now:     time.Now,
	}
}

// Prime fetches a large first page and installs it as the cache for userID.
// Failures are logged and swallowed: caching is a pure optimization and the
// engine degrades to backend-paginated queries.
func (e *Engine) Prime(ctx context.Context, userID int) {
	page, err := e.history.PredictionHistory(ctx, historyclient.HistoryParams{
		Page:    1,
		PerPage: e.cfg.PrimeSize,
	})
	if err != nil {
		slog.Warn("results cache prime failed, serving from backend", "err", err)
		return
	}
	now := e.now()
	entries := make([]Entry, 0, len(page.Results))
	for _, rec := range page.Results {
		entries = append(entries, newEntry(rec, e.loc, now))
	}

	e.mu.Lock()
	e.all = entries
	e.cachedAt = now
	e.ownerID = userID
	e.mu.Unlock()

	blob, err := json.Marshal(cacheBlob{
		Data:      entries,
		Timestamp: now.UnixMilli(),
		UserID:    userID,
	})
	if err == nil {
		err = e.store.Set(store.KeyResultsCache, blob)
	}
	if err != nil {
		slog.Warn("persist results cache failed", "err", err)
	}
}

// LoadPersisted restores the durable cache mirror when it belongs to userID
// and is still inside the TTL. Stale or corrupt blobs are removed.
func (e *Engine) LoadPersisted(userID int) bool {
	raw, ok, err := e.store.Get(store.KeyResultsCache)
	if err != nil || !ok {
		return false
	}
	var blob cacheBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		slog.Warn("results cache blob corrupt, discarding", "err", err)
		_ = e.store.Delete(store.KeyResultsCache)
		return false
	}
	cachedAt := time.UnixMilli(blob.Timestamp)
	if blob.UserID != userID || e.now().Sub(cachedAt) >= e.cfg.TTL {
		_ = e.store.Delete(store.KeyResultsCache)
		return false
	}
	e.mu.Lock()
	e.all = blob.Data
	e.cachedAt = cachedAt
	e.ownerID = userID
	e.mu.Unlock()
	return true
}

// CacheUsable reports whether local reads are allowed: a non-empty cache,
// younger than the TTL, owned by the current user.
func (e *Engine) CacheUsable(userID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cacheUsableLocked(userID)
}

func (e *Engine) cacheUsableLocked(userID int) bool {
	if len(e.all) == 0 {
		return false
	}
	if e.ownerID != userID {
		return false
	}
	return e.now().Sub(e.cachedAt) < e.cfg.TTL
}

// CacheInfo reports cache size and age for status display.
func (e *Engine) CacheInfo() (size int, age time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.all) == 0 {
		return 0, 0
	}
	return len(e.all), e.now().Sub(e.cachedAt)
}

// Query produces one page. With a usable cache and a non-empty search the
// whole pipeline runs locally; otherwise filter and pagination are
// delegated to the backend and only the stable sort is applied here, since
// the backend does not sort.
func (e *Engine) Query(ctx context.Context, userID int, q Query) (Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort == "" {
		q.Sort = SortDate
	}
	search := strings.TrimSpace(q.Search)

	e.mu.Lock()
	usable := e.cacheUsableLocked(userID)
	var snapshot []Entry
	if usable && search != "" {
		snapshot = make([]Entry, len(e.all))
		copy(snapshot, e.all)
	}
	e.mu.Unlock()

	if snapshot != nil {
		return e.queryLocal(snapshot, q, search), nil
	}
	return e.queryRemote(ctx, q, search)
}

func (e *Engine) queryLocal(all []Entry, q Query, search string) Page {
	filtered := filterEntries(all, q.Filter.modelType(), search)
	sortEntries(filtered, q.Sort)
	total := len(filtered)
	totalPages := (total + e.cfg.PageSize - 1) / e.cfg.PageSize
	return Page{
		Entries:    paginate(filtered, q.Page, e.cfg.PageSize),
		Total:      total,
		TotalPages: totalPages,
		Local:      true,
	}
}

func (e *Engine) queryRemote(ctx context.Context, q Query, search string) (Page, error) {
	resp, err := e.history.PredictionHistory(ctx, historyclient.HistoryParams{
		Page:      q.Page,
		PerPage:   e.cfg.PageSize,
		ModelType: q.Filter.modelType(),
		Search:    search,
	})
	if err != nil {
		return Page{}, fmt.Errorf("load results: %w", err)
	}
	now := e.now()
	entries := make([]Entry, 0, len(resp.Results))
	for _, rec := range resp.Results {
		entries = append(entries, newEntry(rec, e.loc, now))
	}
	sortEntries(entries, q.Sort)
	return Page{
		Entries:    entries,
		Total:      resp.Total,
		TotalPages: resp.TotalPages,
	}, nil
}

// Refresh is the only way to force freshness before TTL expiry: it clears
// the in-memory cache and the durable mirror, then re-primes.
func (e *Engine) Refresh(ctx context.Context, userID int) {
	e.mu.Lock()
	e.all = nil
	e.cachedAt = time.Time{}
	e.ownerID = 0
	e.mu.Unlock()
	if err := e.store.Delete(store.KeyResultsCache); err != nil {
		slog.Warn("clear results cache blob failed", "err", err)
	}
	e.Prime(ctx, userID)
}

// LoadDashboard fires the page query and the statistics fetch together;
// they write to disjoint state and may interleave freely.
func (e *Engine) LoadDashboard(ctx context.Context, userID int, q Query) (Page, domain.Statistics, error) {
	var (
		page  Page
		stats domain.Statistics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = e.Query(gctx, userID, q)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = e.history.Statistics(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page{}, domain.Statistics{}, err
	}
	return page, stats, nil
}

// filterEntries applies the model-type filter, then the case-insensitive
// free-text filter over patient name, formatted id, analysis-type display,
// result label and notes. Any one field match qualifies.
func filterEntries(entries []Entry, modelType domain.ModelType, search string) []Entry {
	out := make([]Entry, 0, len(entries))
	needle := strings.ToLower(search)
	for _, entry := range entries {
		if modelType != "" && entry.ModelType != modelType {
			continue
		}
		if needle != "" && !entryMatches(entry, needle) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func entryMatches(entry Entry, needle string) bool {
	for _, field := range []string{
		entry.PatientName,
		entry.PatientID,
		entry.AnalysisType,
		entry.Result,
		entry.Notes,
	} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// sortEntries orders in place; the sort is stable so ties keep their
// incoming order across both the local and remote paths.
func sortEntries(entries []Entry, key SortKey) {
	sort.SliceStable(entries, func(i, j int) bool {
		switch key {
		case SortPatient:
			return entries[i].PatientName < entries[j].PatientName
		case SortConfidence:
			return entries[i].Confidence > entries[j].Confidence
		case SortResult:
			return entries[i].Result < entries[j].Result
		default:
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
	})
}

// paginate slices out a 1-indexed fixed-size page.
func paginate(entries []Entry, page, size int) []Entry {
	start := (page - 1) * size
	if start >= len(entries) {
		return nil
	}
	end := start + size
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}
