package skips

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tally/internal/logger"
	"github.com/tally/internal/schedule"
)

// KeyPrefix 是跳过集合在键值存储中的键前缀，后接 YYYY-MM-DD。
const KeyPrefix = "skipped-activities-"

// KeyValue 是跳过集合依赖的最小持久化键值接口。
type KeyValue interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Key 返回指定日期的存储键。
func Key(date schedule.Date) string {
	return KeyPrefix + date.String()
}

// Store 按日期读写用户选择跳过的活动集合。
// 跳过状态只是界面上的辅助信息：读取失败或数据损坏时一律视为空集合。
type Store struct {
	kv KeyValue
}

// NewStore 构造 Store。
func NewStore(kv KeyValue) *Store {
	return &Store{kv: kv}
}

// GetSkipped 返回 date 当天被跳过的活动集合。
func (s *Store) GetSkipped(date schedule.Date) IDSet {
	key := Key(date)

	raw, ok, err := s.kv.Get(key)
	if err != nil {
		logger.L().WithError(err).WithField("key", key).Warn("read skip set failed")
		return IDSet{}
	}
	if !ok || raw == "" {
		return IDSet{}
	}

	set, err := decodeIDs(raw)
	if err != nil {
		logger.L().WithError(err).WithField("key", key).Debug("discard malformed skip set")
		return IDSet{}
	}
	return set
}

// GetSkippedActivityIDs 以升序列表形式返回 GetSkipped 的结果。
func (s *Store) GetSkippedActivityIDs(date schedule.Date) []uint {
	return s.GetSkipped(date).IDs()
}

// SetSkipped 覆盖写入 date 当天的跳过集合，空集合会删除对应键。
func (s *Store) SetSkipped(date schedule.Date, set IDSet) error {
	key := Key(date)
	if set.IsEmpty() {
		if err := s.kv.Delete(key); err != nil {
			return fmt.Errorf("clear skip set: %w", err)
		}
		return nil
	}

	encoded, err := json.Marshal(set.IDs())
	if err != nil {
		return fmt.Errorf("encode skip set: %w", err)
	}
	if err := s.kv.Set(key, string(encoded)); err != nil {
		return fmt.Errorf("save skip set: %w", err)
	}
	return nil
}

// Toggle 切换单个活动的跳过状态并返回新的集合。
func (s *Store) Toggle(date schedule.Date, activityID uint) (IDSet, error) {
	next := s.GetSkipped(date).Toggle(activityID)
	if err := s.SetSkipped(date, next); err != nil {
		return IDSet{}, err
	}
	return next, nil
}

// Clear 删除 date 当天的跳过集合。
func (s *Store) Clear(date schedule.Date) error {
	return s.SetSkipped(date, IDSet{})
}

// decodeIDs 解析 JSON 整数数组，非正整数与非整数元素视为损坏数据。
func decodeIDs(raw string) (IDSet, error) {
	var values []json.Number
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&values); err != nil {
		return IDSet{}, err
	}

	ids := make([]uint, 0, len(values))
	for _, value := range values {
		n, err := value.Int64()
		if err != nil {
			return IDSet{}, err
		}
		if n <= 0 {
			return IDSet{}, errors.New("activity id must be positive")
		}
		ids = append(ids, uint(n))
	}
	return NewIDSet(ids...), nil
}

// MemoryKV 是进程内的 KeyValue 实现，用于测试与命令行工具。
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV 构造空的 MemoryKV。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
