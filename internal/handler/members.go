package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

func membersCacheKey(projectID int64) string {
	return fmt.Sprintf("team_calendar_members_%d", projectID)
}

// projectMembers 优先从 redis 读取项目成员，redis 出错时直接查询数据库
func (h *Handler) projectMembers(ctx context.Context, projectID int64) ([]string, error) {
	key := membersCacheKey(projectID)

	if h.redisClient != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationExpiration)*time.Second)
		cached, err := h.redisClient.Get(cacheCtx, key).Result()
		cancel()

		switch {
		case err == nil:
			var members []string
			if err := json.Unmarshal([]byte(cached), &members); err == nil {
				return members, nil
			}
			slog.Warn("项目成员缓存已损坏", "project_id", projectID)
		case errors.Is(err, redis.Nil):
		default:
			slog.Warn("无法读取项目成员缓存", "project_id", projectID, "error", err)
		}
	}

	members, err := h.repository.GetProjectMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if h.redisClient != nil {
		data, err := json.Marshal(members)
		if err != nil {
			return nil, err
		}

		cacheCtx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationExpiration)*time.Second)
		defer cancel()
		if err := h.redisClient.Set(cacheCtx, key, data, time.Duration(h.config.Redis.MembersCacheTTL)*time.Second).Err(); err != nil {
			slog.Warn("无法写入项目成员缓存", "project_id", projectID, "error", err)
		}
	}

	return members, nil
}
