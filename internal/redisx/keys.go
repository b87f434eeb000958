package redisx

import "time"

const (
	// Idempotency create sale: idem:sale:create:{external_id}
	KeyIdemSaleCreate = "idem:sale:create:%s"

	// Cache hasil agregasi report: report:sales -> JSON Report
	KeyReportCache = "report:sales"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLReportCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
