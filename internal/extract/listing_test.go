package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/dedup"
)

const listingHTML = `<html><body>
<div class="pagination-links">
	<a href="/search?find_loc=Hong+Kong&start=10">2</a>
	<a href="/search?find_loc=Hong+Kong&start=20">3</a>
</div>
<ul>
	<li class="regular-search-result">
		<h3 class="search-result-title"><a href="/biz/golden-dragon">Golden Dragon</a></h3>
	</li>
	<li class="regular-search-result">
		<h3 class="search-result-title"><a href="/biz/harbour-dim-sum">Harbour Dim Sum</a></h3>
	</li>
	<li class="regular-search-result">
		<h3 class="search-result-title"><span>Unclaimed Noodle House</span></h3>
	</li>
</ul>
</body></html>`

func TestListingExtractsPaginationAndRestaurants(t *testing.T) {
	t.Parallel()

	urls := dedup.NewURLSet()
	ext := NewListing(urls, &seqIDs{}, zap.NewNop())
	doc := mustDoc(t, "https://www.yelp.com/search?find_loc=Hong+Kong", listingHTML)
	task := crawl.Task{ID: "seed-1", City: "HongKong", Type: crawl.TaskTypeListing}

	out, err := ext.Extract(context.Background(), doc, task)
	require.NoError(t, err)
	require.Nil(t, out.Restaurant)
	require.Empty(t, out.Reviews)

	// Two pagination links and two real restaurants; the placeholder span
	// entry is skipped.
	require.Len(t, out.Tasks, 4)

	var listings, restaurants []crawl.Task
	for _, task := range out.Tasks {
		switch task.Type {
		case crawl.TaskTypeListing:
			listings = append(listings, task)
		case crawl.TaskTypeRestaurant:
			restaurants = append(restaurants, task)
		}
	}
	require.Len(t, listings, 2)
	require.Len(t, restaurants, 2)

	require.Equal(t, "https://www.yelp.com/search?find_loc=Hong+Kong&start=10", listings[0].URL)
	require.Equal(t, "https://www.yelp.com/biz/golden-dragon", restaurants[0].URL)
	require.Equal(t, "https://www.yelp.com/biz/harbour-dim-sum", restaurants[1].URL)

	for _, task := range out.Tasks {
		require.Equal(t, "HongKong", task.City)
		require.False(t, task.IsFinished)
		require.Empty(t, task.ParentID)
		require.True(t, urls.Seen(task.URL))
	}
}

func TestListingDeduplicatesAcrossDocuments(t *testing.T) {
	t.Parallel()

	urls := dedup.NewURLSet()
	ext := NewListing(urls, &seqIDs{}, zap.NewNop())
	task := crawl.Task{ID: "seed-1", City: "HongKong", Type: crawl.TaskTypeListing}

	first, err := ext.Extract(context.Background(), mustDoc(t, "https://www.yelp.com/search", listingHTML), task)
	require.NoError(t, err)
	require.Len(t, first.Tasks, 4)

	// The same page parsed again discovers only URLs already scheduled.
	second, err := ext.Extract(context.Background(), mustDoc(t, "https://www.yelp.com/search", listingHTML), task)
	require.NoError(t, err)
	require.Empty(t, second.Tasks)
}

func TestListingSkipsURLsAlreadyKnown(t *testing.T) {
	t.Parallel()

	urls := dedup.NewURLSet()
	urls.Seed([]string{"https://www.yelp.com/biz/golden-dragon"})
	ext := NewListing(urls, &seqIDs{}, zap.NewNop())
	task := crawl.Task{ID: "seed-1", City: "HongKong", Type: crawl.TaskTypeListing}

	out, err := ext.Extract(context.Background(), mustDoc(t, "https://www.yelp.com/search", listingHTML), task)
	require.NoError(t, err)
	require.Len(t, out.Tasks, 3)
	for _, task := range out.Tasks {
		require.NotEqual(t, "https://www.yelp.com/biz/golden-dragon", task.URL)
	}
}
