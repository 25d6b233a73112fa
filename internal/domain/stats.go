package domain

// Stats is the operational rollup served to the admin dashboard.
type Stats struct {
	TotalUsers       int64
	TotalAttempts    int64
	BlockedUsers     int64
	BlockedAttempts  int64
	RiskDistribution map[RiskLevel]int64
}
