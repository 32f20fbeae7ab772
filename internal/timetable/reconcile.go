package timetable

import (
	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

// Reconciliation 是一次提交与数据库比对后的结果。
// batch 中的每一项恰好落在 Unchanged、Updates、Inserts 之一；同一个键出现多次时只保留最后一次。
type Reconciliation struct {
	Unchanged []domain.AvailabilityRecord
	Updates   []domain.AvailabilityRecord
	Inserts   []domain.AvailabilityRecord
	// 数据库中存在但提交中没有对应项的记录，只记录日志，不做任何写入
	Orphans []domain.AvailabilityRecord
}

// Changed 返回需要写入的记录，先插入后更新
func (r *Reconciliation) Changed() []domain.AvailabilityRecord {
	changed := make([]domain.AvailabilityRecord, 0, len(r.Inserts)+len(r.Updates))
	changed = append(changed, r.Inserts...)
	changed = append(changed, r.Updates...)
	return changed
}

// Reconcile 不会修改传入的切片
func Reconcile(batch, existing []domain.AvailabilityRecord) Reconciliation {
	existingByKey := make(map[domain.CellKey]decimal.Decimal, len(existing))
	for _, record := range existing {
		existingByKey[record.Key()] = record.Availability
	}

	last := make(map[domain.CellKey]int, len(batch))
	for i, record := range batch {
		last[record.Key()] = i
	}

	res := Reconciliation{
		Unchanged: make([]domain.AvailabilityRecord, 0),
		Updates:   make([]domain.AvailabilityRecord, 0),
		Inserts:   make([]domain.AvailabilityRecord, 0),
		Orphans:   make([]domain.AvailabilityRecord, 0),
	}

	for i, record := range batch {
		key := record.Key()
		if last[key] != i {
			continue
		}

		current, exists := existingByKey[key]
		switch {
		case !exists:
			res.Inserts = append(res.Inserts, record)
		case current.Equal(record.Availability):
			res.Unchanged = append(res.Unchanged, record)
		default:
			res.Updates = append(res.Updates, record)
		}
	}

	for _, record := range existing {
		if _, inBatch := last[record.Key()]; !inBatch {
			res.Orphans = append(res.Orphans, record)
		}
	}

	return res
}
