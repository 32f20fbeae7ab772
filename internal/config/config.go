package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ReplicaDSN         string `env:"REPLICA_DSN"` // 为空时读写都走主库
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Secret string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	TeamCalendar struct {
		WeeksPrior int   `env:"WEEKS_PRIOR" envDefault:"1"`
		WeeksAfter int   `env:"WEEKS_AFTER" envDefault:"3"`
		WorkDays   []int `env:"WORK_DAYS" envSeparator:","` // 默认没有工作日
	} `envPrefix:"TEAM_CALENDAR_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
			SendTimeout int    `env:"SEND_TIMEOUT" envDefault:"30"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		Prefetch       int    `env:"PREFETCH" envDefault:"1"` // mail worker 同时处理的消息数
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		MembersCacheTTL     int    `env:"MEMBERS_CACHE_TTL" envDefault:"300"`
	} `envPrefix:"REDIS_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if err := cfg.validateTeamCalendar(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateTeamCalendar() error {
	if err := c.CalendarSettings().Validate(); err != nil {
		return fmt.Errorf("TEAM_CALENDAR 配置错误: %w", err)
	}
	return nil
}

// CalendarSettings 返回全局默认的日历设置，项目可以在数据库中覆盖
func (c *Config) CalendarSettings() domain.CalendarSettings {
	return domain.CalendarSettings{
		WeeksPrior: c.TeamCalendar.WeeksPrior,
		WeeksAfter: c.TeamCalendar.WeeksAfter,
		WorkDays:   append([]int(nil), c.TeamCalendar.WorkDays...),
	}
}
