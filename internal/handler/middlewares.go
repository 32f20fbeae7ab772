package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 从 cookie 中获取 token
		cookie, err := r.Cookie(tokenCookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.errorResponse(w, r, "用户未登录")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		principal, err := h.parseToken(cookie.Value)
		if err != nil {
			h.errorResponse(w, r, "无效的令牌")
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalCtx, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredPermission(perm domain.Permission) func(next http.Handler) http.Handler {
	return h.RequiredAnyPermission(perm)
}

// RequiredAnyPermission 只要求持有其中任意一个权限
func (h *Handler) RequiredAnyPermission(perms ...domain.Permission) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := r.Context().Value(PrincipalCtx).(*domain.Principal)
			if !principal.CanAny(perms...) {
				h.errorResponse(w, r, "权限不足")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) project(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectIDParam := chi.URLParam(r, "projectID")
		projectID, err := strconv.ParseInt(projectIDParam, 10, 64)
		if err != nil {
			h.errorResponse(w, r, "项目ID无效")
			return
		}

		project, err := h.repository.GetProjectByID(r.Context(), projectID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, "项目不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		members, err := h.projectMembers(r.Context(), projectID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		settings, err := h.calendarSettings(r.Context(), projectID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ProjectCtx, project)
		ctx = context.WithValue(ctx, MembersCtx, members)
		ctx = context.WithValue(ctx, SettingsCtx, settings)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// 项目没有单独设置或者设置非法时使用全局配置
func (h *Handler) calendarSettings(ctx context.Context, projectID int64) (*domain.CalendarSettings, error) {
	defaults := h.config.CalendarSettings()

	settings, err := h.repository.GetProjectSettings(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &defaults, nil
		}
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		slog.Warn("项目的日历设置非法，使用默认设置", "project_id", projectID, "error", err)
		return &defaults, nil
	}
	return settings, nil
}
