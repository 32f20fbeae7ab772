package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/timetable"
)

// Repository 是 handler 需要的项目上下文查询，由 repository.Repository 实现
type Repository interface {
	GetProjectByID(ctx context.Context, id int64) (*domain.Project, error)
	GetProjectMembers(ctx context.Context, projectID int64) ([]string, error)
	GetProjectSettings(ctx context.Context, projectID int64) (*domain.CalendarSettings, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// MailPublisher 由 *amqp.Channel 实现
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  Repository
	engine      *timetable.Engine
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client

	Mux *chi.Mux
}

// NewHandler 中 mailCh 和 rdb 可以为 nil，此时不发送通知、不缓存项目成员
func NewHandler(cfg *config.Config, repo Repository, engine *timetable.Engine, mailCh MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		engine:      engine,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 令牌由统一认证系统签发，这里只负责校验
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Use(h.RequiredPermission(domain.PermissionView))
			r.Use(h.project)
			r.Route("/timetable", func(r chi.Router) {
				r.Get("/", h.GetTimetable)
				r.With(h.RequiredAnyPermission(domain.PermissionUpdateOwn, domain.PermissionUpdateOthers)).Post("/", h.UpdateTimetable)
			})
		})
	})
}
