package cache

import (
	"strconv"
	"strings"
	"time"

	"cryptoetl/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "cryptoetl"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations. Zero picks the
// default; a negative value disables expiry for that class.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 30*time.Second),
		Medium: durationOrDefault(cfg.Medium, 10*time.Minute),
		Long:   durationOrDefault(cfg.Long, 2*time.Hour),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// LatestPriceKey holds the msgpack-encoded snapshot row of one asset.
func LatestPriceKey(assetID string) string {
	return formatKey("price", "latest", strings.ToLower(assetID))
}

// LatestPriceTTL outlives the scheduler interval so readers keep a value
// between runs.
func LatestPriceTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// PriceHistoryKey caches one page of an asset's history.
func PriceHistoryKey(assetID string, limit int) string {
	return formatKey("price", "history", strings.ToLower(assetID), strconv.Itoa(limit))
}

// PriceHistoryTTL is short: a new row can land every run.
func PriceHistoryTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}
