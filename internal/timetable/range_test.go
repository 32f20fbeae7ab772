package timetable

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedClock(s string) func() time.Time {
	return func() time.Time {
		return date(s).In(time.Local).Add(12 * time.Hour)
	}
}

func TestDefaultRange(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.CalendarSettings
		today    string
		from     string
		to       string
	}{
		{"周三，前一周后三周", domain.CalendarSettings{WeeksPrior: 1, WeeksAfter: 3}, "2024-01-10", "2024-01-01", "2024-02-04"},
		{"周一，只看本周", domain.CalendarSettings{}, "2024-01-08", "2024-01-08", "2024-01-14"},
		{"周日，只看本周", domain.CalendarSettings{}, "2024-01-14", "2024-01-08", "2024-01-14"},
		{"跨年", domain.CalendarSettings{WeeksPrior: 2, WeeksAfter: 0}, "2024-01-03", "2023-12-18", "2024-01-07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := DefaultRange(tt.settings, date(tt.today))
			assert.Equal(t, date(tt.from), from)
			assert.Equal(t, date(tt.to), to)
			assert.Equal(t, 0, WeekdayIndex(from))
			assert.Equal(t, 6, WeekdayIndex(to))
		})
	}
}

func TestResolveRange(t *testing.T) {
	engine := New(NewMemoryStore(), fixedClock("2024-01-10"))
	settings := domain.CalendarSettings{WeeksPrior: 1, WeeksAfter: 3}
	defaultFrom, defaultTo := date("2024-01-01"), date("2024-02-04")

	tests := []struct {
		name     string
		from     civil.Date
		to       civil.Date
		wantFrom civil.Date
		wantTo   civil.Date
		reason   RangeRejectReason
	}{
		{"合法区间", date("2024-03-01"), date("2024-03-10"), date("2024-03-01"), date("2024-03-10"), 0},
		{"同一天", date("2024-03-01"), date("2024-03-01"), date("2024-03-01"), date("2024-03-01"), 0},
		{"恰好 60 天", date("2024-03-01"), date("2024-04-30"), date("2024-03-01"), date("2024-04-30"), 0},
		{"缺少起始日期", civil.Date{}, date("2024-01-20"), defaultFrom, date("2024-01-20"), 0},
		{"缺少两端", civil.Date{}, civil.Date{}, defaultFrom, defaultTo, 0},
		{"负区间", date("2024-03-10"), date("2024-03-01"), defaultFrom, defaultTo, RangeNegative},
		{"超过 60 天", date("2024-03-01"), date("2024-05-01"), defaultFrom, defaultTo, RangeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := engine.ResolveRange(settings, tt.from, tt.to)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)

			if tt.reason == 0 {
				assert.NoError(t, err)
				return
			}

			var rejected *RangeRejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.reason, rejected.Reason)
			assert.NotEmpty(t, rejected.Error())
		})
	}
}

func TestRangeRejectedMessage(t *testing.T) {
	err := ValidateInterval(date("2024-03-01"), date("2024-05-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "61")

	err = ValidateInterval(date("2024-03-02"), date("2024-03-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "为负")
}
