package timetable

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var (
	fullDay  = decimal.New(100, -2)
	emptyDay = decimal.New(0, -2)
)

// DefaultDayPolicy 决定数据库中没有记录时某一天的默认可用度
type DefaultDayPolicy struct {
	workDays [7]bool
}

// NewDefaultDayPolicy 中的 workDays 以 0 表示周一，6 表示周日，超出范围的值会被忽略
func NewDefaultDayPolicy(workDays []int) DefaultDayPolicy {
	p := DefaultDayPolicy{}
	for _, day := range workDays {
		if day >= 0 && day < len(p.workDays) {
			p.workDays[day] = true
		}
	}
	return p
}

func (p DefaultDayPolicy) IsWorkDay(d civil.Date) bool {
	return p.workDays[WeekdayIndex(d)]
}

func (p DefaultDayPolicy) Availability(d civil.Date) decimal.Decimal {
	if p.IsWorkDay(d) {
		return fullDay
	}
	return emptyDay
}

// WeekdayIndex 返回 0（周一）到 6（周日）
func WeekdayIndex(d civil.Date) int {
	return (int(d.In(time.UTC).Weekday()) + 6) % 7
}
