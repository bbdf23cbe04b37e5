package svc

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	_ "github.com/lib/pq"              // register postgres driver
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	appcache "cryptoetl/internal/cache"
	"cryptoetl/internal/config"
	"cryptoetl/internal/metrics"
	"cryptoetl/internal/model"
	"cryptoetl/internal/persistence/prices"
	"cryptoetl/internal/pipeline"
	"cryptoetl/internal/repo"
	"cryptoetl/pkg/journal"
	"cryptoetl/pkg/logging"
	_ "cryptoetl/pkg/market/exchanges/coingecko"
	"cryptoetl/pkg/transform"
)

type ServiceContext struct {
	Config config.Config

	DB                      *sql.DB
	DBConn                  sqlx.SqlConn
	CryptoPricesModel       model.CryptoPricesModel
	CryptoPricesLatestModel model.CryptoPricesLatestModel

	// Redis is nil when no host is configured; every cache below is then
	// disabled.
	Redis         *redis.Redis
	Cache         cache.Cache
	TTL           appcache.TTLSet
	SnapshotCache *appcache.SnapshotCache

	Repos   *repo.Set
	Prices  *prices.Service
	Metrics *metrics.Metrics
}

func MustNewServiceContext(c config.Config) *ServiceContext {
	svc, err := NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	return svc
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		return nil, fmt.Errorf("svc: postgres dsn is required")
	}
	svc := &ServiceContext{
		Config:  c,
		TTL:     appcache.NewTTLSet(c.TTL),
		Metrics: metrics.New(),
	}

	// sql.Open only validates arguments; an unreachable server surfaces on the
	// first ping inside a run.
	db, err := sql.Open(c.Postgres.Driver, c.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("svc: open %s: %w", c.Postgres.Driver, err)
	}
	if c.Postgres.MaxOpen > 0 {
		db.SetMaxOpenConns(c.Postgres.MaxOpen)
	}
	if c.Postgres.MaxIdle > 0 {
		db.SetMaxIdleConns(c.Postgres.MaxIdle)
	}
	conn := sqlx.NewSqlConnFromDB(db)
	svc.DB = db
	svc.DBConn = conn
	svc.CryptoPricesModel = model.NewCryptoPricesModel(conn)
	svc.CryptoPricesLatestModel = model.NewCryptoPricesLatestModel(conn)

	if strings.TrimSpace(c.Redis.Host) != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			return nil, fmt.Errorf("svc: connect redis %s: %w", c.Redis.Host, err)
		}
		svc.Redis = rds
		svc.Cache = cache.NewNode(rds, syncx.NewSingleFlight(), cache.NewStat("cryptoetl"), sql.ErrNoRows,
			cache.WithExpiry(svc.TTL.Medium))
		svc.SnapshotCache = appcache.NewSnapshotCache(rds, svc.TTL)
	}

	svc.Repos, err = repo.New(repo.Dependencies{
		DBConn:                  conn,
		Cache:                   svc.Cache,
		Snapshots:               svc.SnapshotCache,
		TTL:                     svc.TTL,
		Logger:                  logging.NewLogger("repo"),
		CryptoPricesModel:       svc.CryptoPricesModel,
		CryptoPricesLatestModel: svc.CryptoPricesLatestModel,
	})
	if err != nil {
		return nil, err
	}

	pricesCfg := prices.Config{
		SQLConn:       conn,
		HistoryModel:  svc.CryptoPricesModel,
		SnapshotModel: svc.CryptoPricesLatestModel,
		Logger:        logging.NewLogger("persistence"),
		BatchSize:     c.Pipeline.BatchSize,
		TxTimeout:     c.Postgres.TxTimeout,
		VerifyWindow:  c.Pipeline.VerifyWindow,
	}
	// Assigning a nil *SnapshotCache would make a non-nil interface.
	if svc.SnapshotCache != nil {
		pricesCfg.Publisher = svc.SnapshotCache
	}
	if svc.Prices, err = prices.NewService(pricesCfg); err != nil {
		return nil, err
	}
	return svc, nil
}

// Close releases the connection pool.
func (s *ServiceContext) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewRunner builds the pipeline runner: the default market provider, the
// normalizer, the persistence service, the run journal and metrics.
func (s *ServiceContext) NewRunner() (*pipeline.Runner, error) {
	provider, err := s.Config.MarketConfig().BuildDefault()
	if err != nil {
		return nil, fmt.Errorf("svc: build market provider: %w", err)
	}
	rules, err := s.Config.Pipeline.NormalizerConfig()
	if err != nil {
		return nil, fmt.Errorf("svc: normalizer rules: %w", err)
	}
	normalizer, err := transform.NewNormalizer(rules, logging.NewLogger("transform"))
	if err != nil {
		return nil, err
	}
	writer, err := journal.NewWriter(s.Config.JournalDir)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(pipeline.Config{
		Provider:       provider,
		Transformer:    normalizer,
		Loader:         s.Prices,
		Journal:        writer,
		Metrics:        s.Metrics,
		Logger:         logging.NewLogger("pipeline"),
		Assets:         s.Config.Pipeline.AssetIDs(),
		VsCurrency:     rules.VsCurrency,
		ExtractTimeout: s.Config.Pipeline.ExtractTimeout,
	})
}
