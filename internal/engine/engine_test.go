package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/dedup"
	"github.com/qwzhou89/foodcrawler/internal/extract"
	"github.com/qwzhou89/foodcrawler/internal/page"
	memstore "github.com/qwzhou89/foodcrawler/internal/store/memory"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
}

// mapFetcher serves canned documents keyed by URL.
type mapFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fails map[string]error
	hits  map[string]int
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{pages: map[string]string{}, fails: map[string]error{}, hits: map[string]int{}}
}

func (f *mapFetcher) Fetch(_ context.Context, url string) (*page.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[url]++
	if err, ok := f.fails[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return page.New(url, []byte(body))
}

const (
	seedURL       = "https://www.yelp.com/search?find_loc=HongKong"
	page2URL      = "https://www.yelp.com/search?find_loc=HongKong&start=10"
	restaurantURL = "https://www.yelp.com/biz/golden-dragon"
	reviewURL     = "https://www.yelp.com/biz/golden-dragon?l=fr"
)

const seedPage = `<html><body>
<div class="pagination-links"><a href="/search?find_loc=HongKong&amp;start=10">2</a></div>
<ul>
<li class="regular-search-result">
	<h3 class="search-result-title"><a href="/biz/golden-dragon">Golden Dragon</a></h3>
</li>
</ul>
</body></html>`

const emptyListingPage = `<html><body><ul></ul></body></html>`

const restaurantPage = `<html><body>
<div class="biz-page-header-left"><h1>Golden Dragon</h1></div>
<div class="biz-rating biz-rating-very-large">
	<div class="i-stars" title="4.0 star rating"></div>
	<span>2 reviews</span>
</div>
<div class="review-content">
	<div class="i-stars" title="5.0 star rating"></div>
	<span class="rating-qualifier">3/15/2021</span>
	<p lang="en">Great.</p>
</div>
<div class="feed">
	<div class="feed_language"><div class="dropdown_item"><a href="/biz/golden-dragon?l=fr">Français</a></div></div>
</div>
</body></html>`

const reviewPage = `<html><body>
<div class="review-content">
	<div class="i-stars" title="3.0 star rating"></div>
	<span class="rating-qualifier">24/12/2020</span>
	<p lang="fr">Correct.</p>
</div>
</body></html>`

func newTestEngine(store crawl.Store, fetcher crawl.Fetcher) (*Engine, *dedup.URLSet) {
	urls := dedup.NewURLSet()
	ids := &seqIDs{}
	logger := zap.NewNop()
	extractors := map[crawl.TaskType]extract.Extractor{
		crawl.TaskTypeListing:    extract.NewListing(urls, ids, logger),
		crawl.TaskTypeRestaurant: extract.NewRestaurant(urls, ids, logger),
		crawl.TaskTypeReview:     extract.NewReview(store, ids, logger),
	}
	seeds := []crawl.Seed{{City: "HongKong", URL: seedURL}}
	eng := New(store, urls, fetcher, extractors, fixedClock{}, ids, seeds, Config{Concurrency: 2}, logger)
	return eng, urls
}

func TestRunCrawlsSeedToCompletion(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher()
	fetcher.pages[seedURL] = seedPage
	fetcher.pages[page2URL] = emptyListingPage
	fetcher.pages[restaurantURL] = restaurantPage
	fetcher.pages[reviewURL] = reviewPage

	store := memstore.NewStore()
	eng, urls := newTestEngine(store, fetcher)

	require.NoError(t, eng.Run(context.Background()))

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	// Seed, second listing page, restaurant, review page.
	require.Len(t, all, 4)
	for _, task := range all {
		require.True(t, task.IsFinished, "task %s (%s) not finished", task.ID, task.URL)
	}

	pending, err := store.ListUnfinished(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)

	nRestaurants, err := store.CountRestaurants(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), nRestaurants)

	nReviews, err := store.CountReviews(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), nReviews)

	// Every stored review carries the restaurant's id, whether it came from
	// the restaurant page or a later review page.
	for _, review := range store.Reviews() {
		require.NotEmpty(t, review.RestaurantID)
	}

	require.Equal(t, 4, urls.Len())
	for _, u := range []string{seedURL, page2URL, restaurantURL, reviewURL} {
		require.True(t, urls.Seen(u))
		require.Equal(t, 1, fetcher.hits[u])
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	t.Parallel()

	store := memstore.NewStore()
	eng, _ := newTestEngine(store, newMapFetcher())

	first, err := eng.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, crawl.TaskTypeListing, first[0].Type)
	require.Equal(t, seedURL, first[0].URL)

	// A second bootstrap against the same store rebuilds the dedup set
	// instead of creating duplicate rows.
	eng2, urls2 := newTestEngine(store, newMapFetcher())
	second, err := eng2.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].ID, second[0].ID)
	require.True(t, urls2.Seen(seedURL))

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

// failingStore rejects every transition commit.
type failingStore struct {
	*memstore.Store
}

func (s *failingStore) CommitTransition(context.Context, crawl.Transition) error {
	return fmt.Errorf("commit refused")
}

func TestFailedCommitLeavesTaskUnfinished(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher()
	fetcher.pages[seedURL] = emptyListingPage

	store := &failingStore{Store: memstore.NewStore()}
	eng, _ := newTestEngine(store, fetcher)

	require.NoError(t, eng.Run(context.Background()))

	pending, err := store.ListUnfinished(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.False(t, pending[0].IsFinished)
}

// A fetch failure on one task does not stop the rest of the frontier.
func TestRunContinuesPastFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher()
	fetcher.pages[seedURL] = seedPage
	fetcher.pages[page2URL] = emptyListingPage
	fetcher.fails[restaurantURL] = fmt.Errorf("boom")

	store := memstore.NewStore()
	eng, _ := newTestEngine(store, fetcher)

	require.NoError(t, eng.Run(context.Background()))

	pending, err := store.ListUnfinished(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, restaurantURL, pending[0].URL)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher()
	fetcher.pages[seedURL] = seedPage

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := memstore.NewStore()
	eng, _ := newTestEngine(store, fetcher)

	err := eng.Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
