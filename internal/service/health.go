package service

import (
	"context"
	"net/http"
)

// Healthcheck 查询 API 健康状态
func (s *svc) Healthcheck(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	if err := s.client.Do(ctx, http.MethodGet, routeHealthcheck, &out); err != nil {
		s.log.Err(err, "健康检查失败")
		return nil, err
	}
	return out, nil
}
