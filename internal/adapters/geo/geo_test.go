package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

func TestStaticLocator(t *testing.T) {
	l := NewStaticLocator()
	ctx := context.Background()

	require.Equal(t, developmentLocation(), l.Locate(ctx, "127.0.0.1"))
	require.Equal(t, developmentLocation(), l.Locate(ctx, "::1"))
	require.Equal(t, developmentLocation(), l.Locate(ctx, "localhost"))
	require.Equal(t, developmentLocation(), l.Locate(ctx, "10.1.2.3"))
	require.Equal(t, domain.UnknownLocation(), l.Locate(ctx, "8.8.8.8"))
	require.Equal(t, domain.UnknownLocation(), l.Locate(ctx, ""))
	require.Equal(t, domain.UnknownLocation(), l.Locate(ctx, "not-an-ip"))
}

func TestNormalizeFillsMissingParts(t *testing.T) {
	require.Equal(t, domain.UnknownLocation(), normalize(domain.Location{City: "Paris"}))

	got := normalize(domain.Location{Country: "France"})
	require.Equal(t, "France", got.Country)
	require.Equal(t, "Unknown", got.City)
	require.Equal(t, "Unknown", got.Region)
}

func TestOpenMaxMindMissingFile(t *testing.T) {
	_, err := OpenMaxMind("/nonexistent/GeoLite2-City.mmdb")
	require.Error(t, err)
}
