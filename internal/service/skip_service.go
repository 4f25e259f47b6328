package service

import (
	"errors"
	"fmt"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/skips"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvStore 将 kv_entries 表按用户暴露为 skips.KeyValue
type kvStore struct {
	db     *gorm.DB
	userID uint
}

func (k kvStore) Get(key string) (string, bool, error) {
	var entry db.KVEntry
	if err := k.db.Where("user_id = ? AND key = ?", k.userID, key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get kv entry: %w", err)
	}
	return string(entry.Value), true, nil
}

func (k kvStore) Set(key, value string) error {
	entry := db.KVEntry{UserID: k.userID, Key: key, Value: datatypes.JSON(value)}
	if err := k.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("set kv entry: %w", err)
	}
	return nil
}

func (k kvStore) Delete(key string) error {
	if err := k.db.Unscoped().Where("user_id = ? AND key = ?", k.userID, key).Delete(&db.KVEntry{}).Error; err != nil {
		return fmt.Errorf("delete kv entry: %w", err)
	}
	return nil
}

// SkipService 管理按日期记录的“今日跳过”活动集合
// 跳过集合只影响调整后的积分，读取失败时按空集合处理
type SkipService struct {
	db *gorm.DB
}

// NewSkipService 构造 SkipService
func NewSkipService(gdb *gorm.DB) *SkipService {
	return &SkipService{db: gdb}
}

// Store 返回绑定到用户的跳过集合存储
func (s *SkipService) Store(userID uint) *skips.Store {
	return skips.NewStore(kvStore{db: s.db, userID: userID})
}

// Get 返回某天被跳过的活动集合
func (s *SkipService) Get(userID uint, date schedule.Date) skips.IDSet {
	return s.Store(userID).GetSkipped(date)
}

// Set 覆盖某天的跳过集合，活动必须属于该用户
func (s *SkipService) Set(userID uint, date schedule.Date, ids []uint) (skips.IDSet, error) {
	set := skips.NewIDSet(ids...)
	if err := s.ensureOwned(userID, set.IDs()); err != nil {
		return skips.IDSet{}, err
	}
	if err := s.Store(userID).SetSkipped(date, set); err != nil {
		return skips.IDSet{}, err
	}
	return set, nil
}

// Toggle 切换某个活动在指定日期的跳过状态
func (s *SkipService) Toggle(userID uint, date schedule.Date, activityID uint) (skips.IDSet, error) {
	if err := s.ensureOwned(userID, []uint{activityID}); err != nil {
		return skips.IDSet{}, err
	}
	return s.Store(userID).Toggle(date, activityID)
}

// Clear 删除某天的跳过集合
func (s *SkipService) Clear(userID uint, date schedule.Date) error {
	return s.Store(userID).Clear(date)
}

// ListAll 返回用户全部非空跳过集合，按日期索引
func (s *SkipService) ListAll(userID uint) (map[string][]uint, error) {
	var entries []db.KVEntry
	if err := s.db.Where("user_id = ? AND key LIKE ?", userID, skips.KeyPrefix+"%").
		Order("key ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list skip sets: %w", err)
	}

	store := s.Store(userID)
	result := make(map[string][]uint, len(entries))
	for _, entry := range entries {
		date, err := schedule.ParseDate(entry.Key[len(skips.KeyPrefix):])
		if err != nil {
			continue
		}
		if ids := store.GetSkippedActivityIDs(date); len(ids) > 0 {
			result[date.String()] = ids
		}
	}
	return result, nil
}

func (s *SkipService) ensureOwned(userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var count int64
	if err := s.db.Model(&db.Activity{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check skipped activities: %w", err)
	}
	if int(count) != len(ids) {
		return ErrActivityNotFound
	}
	return nil
}
