package domain

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var (
	// 可用度超出 [0, 1] 或者主键冲突
	ErrConstraintViolation = errors.New("可用度约束冲突")
	// 事务或者连接失败，可以重试
	ErrStorage = errors.New("可用度存储失败")
)

var (
	MinAvailability = decimal.Zero
	MaxAvailability = decimal.NewFromInt(1)
)

// CellKey 唯一确定项目中某个成员某一天的可用度
type CellKey struct {
	Date     civil.Date
	Username string
}

type AvailabilityRecord struct {
	Username     string          `json:"username"`
	ProjectID    int64           `json:"projectID"`
	Date         civil.Date      `json:"date"`
	Availability decimal.Decimal `json:"availability"`
}

func (r AvailabilityRecord) Key() CellKey {
	return CellKey{Date: r.Date, Username: r.Username}
}

func ValidAvailability(v decimal.Decimal) bool {
	return !v.LessThan(MinAvailability) && !v.GreaterThan(MaxAvailability)
}

type TimetableDay struct {
	Date   civil.Date                 `json:"date"`
	People map[string]decimal.Decimal `json:"people"`
}

// Timetable 覆盖 [FromDate, ToDate] 内的每一天，Days[i] 对应 FromDate 之后的第 i 天
type Timetable struct {
	FromDate civil.Date     `json:"fromDate"`
	ToDate   civil.Date     `json:"toDate"`
	Days     []TimetableDay `json:"days"`
}

func (t *Timetable) Get(date civil.Date, username string) (decimal.Decimal, bool) {
	if date.Before(t.FromDate) || date.After(t.ToDate) {
		return decimal.Zero, false
	}
	v, ok := t.Days[date.DaysSince(t.FromDate)].People[username]
	return v, ok
}

type CalendarSettings struct {
	WeeksPrior int   `json:"weeksPrior"`
	WeeksAfter int   `json:"weeksAfter"`
	WorkDays   []int `json:"workDays"` // 0 表示周一
}

// Validate 检查周数不为负数，工作日在 0 到 6 之间
func (s CalendarSettings) Validate() error {
	if s.WeeksPrior < 0 {
		return fmt.Errorf("向前显示的周数不能为负数: %d", s.WeeksPrior)
	}
	if s.WeeksAfter < 0 {
		return fmt.Errorf("向后显示的周数不能为负数: %d", s.WeeksAfter)
	}
	for _, day := range s.WorkDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("%d 不是合法的星期（0 表示周一，6 表示周日）", day)
		}
	}
	return nil
}
