// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/svc"
	"cryptoetl/internal/types"
)

const (
	healthTimeout = 2 * time.Second

	statusOK       = "ok"
	statusDegraded = "degraded"
	statusDown     = "down"
	statusDisabled = "disabled"
)

type HealthLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHealthLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HealthLogic {
	return &HealthLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Health pings Postgres and, when configured, Redis. A down cache only
// degrades the service; a down database makes it unhealthy.
func (l *HealthLogic) Health() (resp *types.HealthResponse, err error) {
	ctx, cancel := context.WithTimeout(l.ctx, healthTimeout)
	defer cancel()

	resp = &types.HealthResponse{Status: statusOK, Database: statusOK, Cache: statusDisabled}
	if err := l.pingDB(ctx); err != nil {
		l.Errorf("health: database ping: %v", err)
		resp.Database = statusDown
		resp.Status = statusDown
	}
	if l.svcCtx.Redis != nil {
		if l.svcCtx.Redis.PingCtx(ctx) {
			resp.Cache = statusOK
		} else {
			resp.Cache = statusDown
			if resp.Status == statusOK {
				resp.Status = statusDegraded
			}
		}
	}
	return resp, nil
}

func (l *HealthLogic) pingDB(ctx context.Context) error {
	db, err := l.svcCtx.DBConn.RawDB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}
