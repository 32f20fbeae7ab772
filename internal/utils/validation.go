package utils

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

// ParseOptionalDate 把空字符串解析为零值日期
func ParseOptionalDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, nil
	}

	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("日期 %q 格式错误，应为 YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseEditKey 解析形如 "2024-01-10.alice" 的键，用户名中可以包含点
func ParseEditKey(key string) (civil.Date, string, error) {
	datePart, username, found := strings.Cut(key, ".")
	if !found || username == "" {
		return civil.Date{}, "", fmt.Errorf("修改项 %q 格式错误，应为 <日期>.<用户名>", key)
	}

	d, err := civil.ParseDate(datePart)
	if err != nil {
		return civil.Date{}, "", fmt.Errorf("修改项 %q 中的日期格式错误", key)
	}

	return d, username, nil
}

// ValidateEditRange 检查提交时所编辑的区间
func ValidateEditRange(from, to civil.Date, maxInterval int) error {
	delta := to.DaysSince(from)
	if delta < 0 {
		return errors.New("编辑区间的起始日期不能晚于结束日期")
	}
	if delta > maxInterval {
		return fmt.Errorf("编辑区间不能超过 %d 天", maxInterval)
	}
	return nil
}

// ParseEdits 把提交的修改转换为记录，按日期、用户名排序。
// 这里只检查格式、区间和项目成员，可用度是否在 [0, 1] 由存储层负责拒绝。
func ParseEdits(edits map[string]string, from, to civil.Date, members []string) ([]domain.AvailabilityRecord, error) {
	records := make([]domain.AvailabilityRecord, 0, len(edits))

	for key, value := range edits {
		d, username, err := ParseEditKey(key)
		if err != nil {
			return nil, err
		}

		if d.Before(from) || d.After(to) {
			return nil, fmt.Errorf("修改项 %q 的日期不在编辑区间内", key)
		}

		if !slices.Contains(members, username) {
			return nil, fmt.Errorf("用户 %s 不是项目成员", username)
		}

		availability, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("修改项 %q 的可用度 %q 不是合法的数字", key, value)
		}

		records = append(records, domain.AvailabilityRecord{
			Username:     username,
			Date:         d,
			Availability: availability,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].Username < records[j].Username
	})

	return records, nil
}

// OtherUsers 返回修改中除 self 之外的用户名，用于权限检查
func OtherUsers(records []domain.AvailabilityRecord, self string) []string {
	others := make([]string, 0)
	for _, record := range records {
		if record.Username != self && !slices.Contains(others, record.Username) {
			others = append(others, record.Username)
		}
	}
	return others
}
