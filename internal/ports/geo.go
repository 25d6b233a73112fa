package ports

import (
	"context"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

// GeoLocator resolves an IP to a location. Implementations return
// domain.UnknownLocation rather than an error when the IP cannot be placed.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) domain.Location
}
