package geo

import (
	"context"
	"net"
	"strings"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

const serviceName = "risk-auth-service"

// StaticLocator places loopback and private addresses in a fixed development
// location and everything else in the unknown location.
type StaticLocator struct{}

func NewStaticLocator() StaticLocator {
	return StaticLocator{}
}

func (StaticLocator) Locate(_ context.Context, ip string) domain.Location {
	if isLocal(ip) {
		return developmentLocation()
	}
	return domain.UnknownLocation()
}

func developmentLocation() domain.Location {
	return domain.Location{City: "Development", Country: "Local", Region: "Dev"}
}

func isLocal(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "localhost") {
		return true
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified()
}
