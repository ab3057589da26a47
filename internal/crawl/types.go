// Package crawl defines the core types shared across the crawler subsystems:
// tasks, domain records, and the collaborator interfaces the engine is wired
// with.
package crawl

import (
	"time"
)

// TaskType classifies what kind of page a task points at and therefore which
// extractor handles it.
type TaskType string

// Task type values persisted in the task store.
const (
	TaskTypeListing    TaskType = "listing"
	TaskTypeRestaurant TaskType = "restaurant"
	TaskTypeReview     TaskType = "review"
)

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeListing, TaskTypeRestaurant, TaskTypeReview:
		return true
	default:
		return false
	}
}

// Task is one unit of crawl work: a URL, the city it belongs to, and a
// completion flag. Tasks are never deleted; IsFinished flips false→true
// exactly once, inside the same transaction that persists whatever the task's
// page produced.
type Task struct {
	ID         string
	City       string
	URL        string
	Type       TaskType
	IsFinished bool

	// ParentID links a review-page task back to the restaurant task that
	// discovered it. Empty for listing and restaurant tasks.
	ParentID string
}

// Seed is an externally supplied starting point, used only when the task
// store is empty.
type Seed struct {
	City string `mapstructure:"city" json:"city"`
	URL  string `mapstructure:"url" json:"url"`
}

// Restaurant is the primary domain record, produced at most once per
// restaurant-page task. It is never updated after creation.
type Restaurant struct {
	ID          string
	City        string
	Name        string
	AlterNames  string // pipe-joined alternate names
	Rating      int    // rating ×10, one decimal digit preserved
	RatingCount string // pipe-joined histogram bucket counts
	URL         string // canonical page URL
	HostURL     string // restaurant's own website, unwrapped from the redirect
	Address     string
	Category    string // pipe-joined category list
	Latitude    string
	Longitude   string
	Phone       string
	ReviewCount int
	Tags        string
	TaskID      string
}

// ReviewRatingUnset is the sentinel stored when a review's rating could not
// be determined. Kept as a magic float rather than a nullable column,
// matching the persisted schema this crawler has always written.
const ReviewRatingUnset = -0.1

// Review is a single review block extracted from a restaurant page or from a
// secondary-language review page.
type Review struct {
	ID string

	// RestaurantID is empty for reviews found on the restaurant page itself;
	// the engine fills it from the restaurant persisted in the same
	// transition. Review-page reviews carry it explicitly.
	RestaurantID string

	Rating   float64 // rating ×10, ReviewRatingUnset when unknown
	Language string
	Content  []byte
	Date     time.Time
	Images   string // space-joined absolute image URLs
	TaskID   string
}

// Transition is the atomic output of processing one task: the records and
// follow-up tasks its page produced, committed together with the finished
// flip of the source task.
type Transition struct {
	TaskID     string
	NewTasks   []Task
	Restaurant *Restaurant
	Reviews    []Review
}
