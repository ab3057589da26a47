package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScaledRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label   string
		want    int
		wantErr bool
	}{
		{label: "4.5 star rating", want: 45},
		{label: "5.0 star rating", want: 50},
		{label: "3.5", want: 35},
		{label: "評価 4.0 つ星", want: 40},
		{label: "no rating here", wantErr: true},
		{label: "5 stars", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseScaledRating(tt.label)
		if tt.wantErr {
			require.Error(t, err, "label %q", tt.label)
			continue
		}
		require.NoError(t, err, "label %q", tt.label)
		require.Equal(t, tt.want, got, "label %q", tt.label)
	}
}

func TestParseFirstInt(t *testing.T) {
	t.Parallel()

	n, err := parseFirstInt("123 reviews")
	require.NoError(t, err)
	require.Equal(t, 123, n)

	_, err = parseFirstInt("reviews")
	require.Error(t, err)
}
