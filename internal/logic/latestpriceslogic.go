// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package logic

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/svc"
	"cryptoetl/internal/types"
)

type LatestPricesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewLatestPricesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *LatestPricesLogic {
	return &LatestPricesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *LatestPricesLogic) LatestPrices(req *types.LatestPricesRequest) (resp *types.LatestPricesResponse, err error) {
	var ids []string
	if strings.TrimSpace(req.Ids) != "" {
		ids = strings.Split(req.Ids, ",")
	}
	return l.svcCtx.Repos.Prices.Latest(l.ctx, ids)
}
