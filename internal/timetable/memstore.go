package timetable

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

type memoryKey struct {
	projectID int64
	cell      domain.CellKey
}

// MemoryStore 是 Store 的内存实现，约束与数据库一致。没有只读副本，所有读取都是最新的
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey]domain.AvailabilityRecord

	// 不为空时 Apply 直接返回该错误，用于模拟存储故障
	ApplyErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[memoryKey]domain.AvailabilityRecord),
	}
}

func (s *MemoryStore) FetchRange(_ context.Context, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error) {
	return s.fetch(projectID, from, to, nil), nil
}

func (s *MemoryStore) FetchRangeFromPrimary(_ context.Context, projectID int64, from, to civil.Date) ([]domain.AvailabilityRecord, error) {
	return s.fetch(projectID, from, to, nil), nil
}

func (s *MemoryStore) FetchRangeForUsers(_ context.Context, projectID int64, from, to civil.Date, users []string) ([]domain.AvailabilityRecord, error) {
	if len(users) == 0 {
		return []domain.AvailabilityRecord{}, nil
	}
	return s.fetch(projectID, from, to, users), nil
}

func (s *MemoryStore) fetch(projectID int64, from, to civil.Date, users []string) []domain.AvailabilityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.AvailabilityRecord, 0)
	for key, record := range s.records {
		if key.projectID != projectID || record.Date.Before(from) || record.Date.After(to) {
			continue
		}
		if users != nil && !slices.Contains(users, record.Username) {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date.Before(records[j].Date)
		}
		if records[i].Username != records[j].Username {
			return records[i].Username < records[j].Username
		}
		return records[i].Availability.LessThan(records[j].Availability)
	})

	return records
}

func (s *MemoryStore) Apply(_ context.Context, projectID int64, inserts, updates []domain.AvailabilityRecord) error {
	if s.ApplyErr != nil {
		return s.ApplyErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 先在副本上完成所有检查，全部通过后再一次性替换
	staged := make(map[memoryKey]domain.AvailabilityRecord, len(s.records)+len(inserts))
	for key, record := range s.records {
		staged[key] = record
	}

	for _, record := range inserts {
		if !domain.ValidAvailability(record.Availability) {
			return fmt.Errorf("%w: %s 在 %s 的可用度 %s 超出 [0, 1]", domain.ErrConstraintViolation, record.Username, record.Date, record.Availability)
		}
		key := memoryKey{projectID: projectID, cell: record.Key()}
		if _, exists := staged[key]; exists {
			return fmt.Errorf("%w: %s 在 %s 已有记录", domain.ErrConstraintViolation, record.Username, record.Date)
		}
		record.ProjectID = projectID
		staged[key] = record
	}

	for _, record := range updates {
		if !domain.ValidAvailability(record.Availability) {
			return fmt.Errorf("%w: %s 在 %s 的可用度 %s 超出 [0, 1]", domain.ErrConstraintViolation, record.Username, record.Date, record.Availability)
		}
		key := memoryKey{projectID: projectID, cell: record.Key()}
		current, exists := staged[key]
		if !exists {
			// 与 UPDATE 语义一致，没有匹配的行就什么也不做
			continue
		}
		current.Availability = record.Availability
		staged[key] = current
	}

	s.records = staged
	return nil
}

// Len 返回当前记录数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
