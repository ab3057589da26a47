package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseReviewDateLocales(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		language string
		value    string
		want     time.Time
	}{
		{"japanese", "ja", "2021/3/15", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"chinese", "zh", "2021/03/15", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"french", "fr", "15/03/2021", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"spanish", "es", "1/12/2020", time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)},
		{"german", "de", "15.3.2021", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"danish", "da", "24.12.2019", time.Date(2019, 12, 24, 0, 0, 0, 0, time.UTC)},
		{"swedish", "sv", "2021-3-15", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"polish", "pl", "15-3-2021", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"dutch", "nl", "1-2-2021", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"english default", "en", "3/15/2021", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"unknown language default", "ko", "3/15/2021", time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"empty language default", "", "12/24/2019", time.Date(2019, 12, 24, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseReviewDate(tc.language, tc.value)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// The layout must follow the language code, not be guessed from the string:
// a day-first date is valid for French but out of range for the default
// month-first layout.
func TestParseReviewDateConsultsLocaleTable(t *testing.T) {
	t.Parallel()

	got, err := parseReviewDate("fr", "15/03/2021")
	require.NoError(t, err)
	require.Equal(t, 15, got.Day())
	require.Equal(t, time.March, got.Month())
	require.Equal(t, 2021, got.Year())

	_, err = parseReviewDate("en", "15/03/2021")
	require.Error(t, err)
}

func TestParseReviewDateRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := parseReviewDate("fr", "yesterday")
	require.Error(t, err)
}
