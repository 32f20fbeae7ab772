package timetable

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

// MaxInterval 是允许查看的最大天数跨度
const MaxInterval = 60

type RangeRejectReason int

const (
	RangeNegative RangeRejectReason = iota + 1
	RangeTooLarge
)

// RangeRejectedError 表示请求的区间不合法、已经替换为默认区间，只作为警告展示给用户
type RangeRejectedError struct {
	Reason   RangeRejectReason
	FromDate civil.Date
	ToDate   civil.Date
}

func (e *RangeRejectedError) Error() string {
	switch e.Reason {
	case RangeNegative:
		return "选择的时间区间为负，已使用默认区间"
	default:
		return fmt.Sprintf("选择的时间区间过大（%d 天），已使用默认区间", e.ToDate.DaysSince(e.FromDate))
	}
}

// DefaultRange 从当前周之前 WeeksPrior 周的周一开始，到当前周之后 WeeksAfter 周的周日结束
func DefaultRange(settings domain.CalendarSettings, today civil.Date) (civil.Date, civil.Date) {
	weekday := WeekdayIndex(today)
	from := today.AddDays(-(weekday + 7*settings.WeeksPrior))
	to := today.AddDays((6 - weekday) + 7*settings.WeeksAfter)
	return from, to
}

// ValidateInterval 检查 [from, to] 是否可以直接使用
func ValidateInterval(from, to civil.Date) error {
	delta := to.DaysSince(from)
	switch {
	case delta < 0:
		return &RangeRejectedError{Reason: RangeNegative, FromDate: from, ToDate: to}
	case delta > MaxInterval:
		return &RangeRejectedError{Reason: RangeTooLarge, FromDate: from, ToDate: to}
	}
	return nil
}

// ResolveRange 缺失的端点用默认区间补齐；区间不合法时返回默认区间以及 *RangeRejectedError
func (e *Engine) ResolveRange(settings domain.CalendarSettings, from, to civil.Date) (civil.Date, civil.Date, error) {
	defaultFrom, defaultTo := DefaultRange(settings, e.Today())

	if from == (civil.Date{}) {
		from = defaultFrom
	}
	if to == (civil.Date{}) {
		to = defaultTo
	}

	if err := ValidateInterval(from, to); err != nil {
		return defaultFrom, defaultTo, err
	}

	return from, to, nil
}
