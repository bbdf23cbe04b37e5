package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/repo"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler maps errors to HTTP responses. Install it with
// httpx.SetErrorHandlerCtx.
func ErrorHandler(ctx context.Context, err error) (int, any) {
	if errors.Is(err, repo.ErrInvalidQuery) {
		return http.StatusBadRequest, ErrorBody{Code: http.StatusBadRequest, Message: err.Error()}
	}
	logx.WithContext(ctx).Errorf("request failed: %v", err)
	return http.StatusInternalServerError, ErrorBody{Code: http.StatusInternalServerError, Message: "internal error"}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", repo.ErrInvalidQuery, err)
}
