package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/config"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/repository"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/seed"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/timetable"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var days int
	var projectID int64
	var projectName string
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 创建项目并加入随机成员, 3: 插入随机可用度, 4: 写入项目的日历设置, 5: 从 CSV 导入可用度)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&days, "days", 28, "从今天起随机生成可用度的天数")
	flag.Int64Var(&projectID, "project-id", 0, "项目 ID")
	flag.StringVar(&projectName, "project-name", "", "新建项目的名称")
	flag.StringVar(&file, "file", "./internal/seed/data/availability.csv", "要导入的 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 种子数据直接写主库
	repo := repository.NewRepository(cfg, dbpool, nil)
	engine := timetable.New(repo, nil)
	ctx = context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				user := utils.GenerateRandomUser(cfg.Email.UserDomain)
				if err := repo.CreateUser(ctx, user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入用户成功", slog.Int("count", n-cnt))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的成员数量")
			return
		}
		if projectName == "" {
			projectName = "项目-" + utils.GenerateRandomID(3, 3)
		}

		users, err := repo.GetAllUsers(ctx)
		if err != nil {
			slog.Error("无法获取所有用户", slog.String("error", err.Error()))
			return
		}

		project := &domain.Project{Name: projectName}
		if err := repo.CreateProject(ctx, project); err != nil {
			slog.Error("无法创建项目", slog.String("error", err.Error()))
			return
		}

		// 随机选 n 个用户加入项目
		rand.Shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })
		cnt := 0
		for _, user := range users[:min(n, len(users))] {
			if err := repo.AddProjectMember(ctx, project.ID, user.Username); err != nil {
				slog.Error("无法加入项目成员", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("创建项目成功", slog.Int64("project_id", project.ID), slog.Int("members", cnt))
	case 3:
		if projectID <= 0 || days <= 0 {
			slog.Error("请输入合法的项目 ID 和天数")
			return
		}

		members, err := repo.GetProjectMembers(ctx, projectID)
		if err != nil {
			slog.Error("无法获取项目成员", slog.String("error", err.Error()))
			return
		}

		// 单次提交的区间不能超过 MaxInterval，分段写入
		from := engine.Today()
		last := from.AddDays(days - 1)
		cnt := 0
		for !from.After(last) {
			to := from.AddDays(timetable.MaxInterval)
			if to.After(last) {
				to = last
			}

			batch := seed.RandomAvailability(members, from, to, utils.GenerateRandomAvailability)
			result, err := engine.UpdateTimetable(ctx, projectID, batch, from, to)
			if err != nil {
				slog.Error("无法插入可用度", slog.String("error", err.Error()))
				return
			}
			cnt += len(result.Changed())
			from = to.AddDays(1)
		}

		slog.Info("插入可用度成功", slog.Int("count", cnt))
	case 4:
		if projectID <= 0 {
			slog.Error("请输入合法的项目 ID")
			return
		}

		settings := cfg.CalendarSettings()
		if err := repo.SetProjectSettings(ctx, projectID, &settings); err != nil {
			slog.Error("无法写入日历设置", slog.String("error", err.Error()))
			return
		}

		slog.Info("写入日历设置成功", slog.Int64("project_id", projectID))
	case 5:
		if projectID <= 0 {
			slog.Error("请输入合法的项目 ID")
			return
		}

		f, err := os.Open(file)
		if err != nil {
			slog.Error("打开文件失败", "error", err)
			return
		}
		defer f.Close()

		cnt, err := seed.ImportAvailability(ctx, repo, engine, projectID, f)
		if err != nil {
			var rejected *timetable.RangeRejectedError
			switch {
			case errors.As(err, &rejected):
				slog.Error("CSV 中的日期区间不合法", slog.String("error", err.Error()))
			case errors.Is(err, domain.ErrConstraintViolation):
				slog.Error("CSV 中存在超出范围的可用度", slog.String("error", err.Error()))
			default:
				slog.Error("导入可用度失败", slog.String("error", err.Error()))
			}
			return
		}

		slog.Info("导入可用度成功", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}
