package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwzhou89/foodcrawler/internal/page"
)

// seqIDs issues deterministic ids for tests.
type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

func mustDoc(t *testing.T, baseURL, html string) *page.Document {
	t.Helper()
	doc, err := page.New(baseURL, []byte(html))
	require.NoError(t, err)
	return doc
}
