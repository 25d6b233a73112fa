package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

// MaxMindLocator resolves addresses against a GeoLite2/GeoIP2 City database.
type MaxMindLocator struct {
	reader   *geoip2.Reader
	fallback StaticLocator
	logger   *slog.Logger
}

func OpenMaxMind(path string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMindLocator{
		reader: reader,
		logger: slog.Default().With("service", serviceName, "module", "geo", "layer", "adapter"),
	}, nil
}

func (l *MaxMindLocator) Close() error {
	if l.reader == nil {
		return nil
	}
	return l.reader.Close()
}

func (l *MaxMindLocator) Locate(ctx context.Context, raw string) domain.Location {
	if isLocal(raw) {
		return l.fallback.Locate(ctx, raw)
	}
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return domain.UnknownLocation()
	}
	record, err := l.reader.City(ip)
	if err != nil {
		l.logger.DebugContext(ctx, "geoip lookup failed",
			"operation", "locate",
			"outcome", "failure",
			"error", err,
		)
		return domain.UnknownLocation()
	}

	loc := domain.Location{
		City:    record.City.Names["en"],
		Country: record.Country.Names["en"],
	}
	if loc.Country == "" {
		loc.Country = record.Country.IsoCode
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	return normalize(loc)
}

func normalize(loc domain.Location) domain.Location {
	unknown := domain.UnknownLocation()
	if loc.Country == "" {
		return unknown
	}
	if loc.City == "" {
		loc.City = unknown.City
	}
	if loc.Region == "" {
		loc.Region = unknown.Region
	}
	return loc
}
