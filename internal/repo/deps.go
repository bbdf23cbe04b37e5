package repo

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	appcache "cryptoetl/internal/cache"
	"cryptoetl/internal/model"
	"cryptoetl/pkg/logging"
)

// Dependencies bundles the generated goctl models and shared infrastructure
// required by repository implementations.
type Dependencies struct {
	DBConn sqlx.SqlConn
	// Cache backs response caching; nil disables it.
	Cache     cache.Cache
	Snapshots *appcache.SnapshotCache
	TTL       appcache.TTLSet
	Logger    logging.Logger

	CryptoPricesModel       model.CryptoPricesModel
	CryptoPricesLatestModel model.CryptoPricesLatestModel
}

// Set exposes strongly typed repositories to application logic.
type Set struct {
	Prices PricesRepo
}

// New constructs the repository set, validating required dependencies.
func New(deps Dependencies) (*Set, error) {
	if deps.DBConn == nil {
		return nil, errors.New("repo: missing DBConn dependency")
	}
	if deps.CryptoPricesModel == nil {
		deps.CryptoPricesModel = model.NewCryptoPricesModel(deps.DBConn)
	}
	if deps.CryptoPricesLatestModel == nil {
		deps.CryptoPricesLatestModel = model.NewCryptoPricesLatestModel(deps.DBConn)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewLogger("repo")
	}
	return &Set{Prices: newPricesRepo(deps)}, nil
}
