package repository

import (
	"database/sql"

	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/config"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
	// 只读查询使用的连接池，可以指向只读副本；写入以及决定写入内容的查询必须走 dbpool
	readpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB, readpool *sql.DB) *Repository {
	if readpool == nil {
		readpool = dbpool
	}

	return &Repository{
		cfg:      cfg,
		dbpool:   dbpool,
		readpool: readpool,
	}
}
