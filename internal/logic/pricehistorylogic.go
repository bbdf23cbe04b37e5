// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/svc"
	"cryptoetl/internal/types"
)

type PriceHistoryLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPriceHistoryLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PriceHistoryLogic {
	return &PriceHistoryLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *PriceHistoryLogic) PriceHistory(req *types.PriceHistoryRequest) (resp *types.PriceHistoryResponse, err error) {
	return l.svcCtx.Repos.Prices.History(l.ctx, req.Asset, req.Limit)
}
