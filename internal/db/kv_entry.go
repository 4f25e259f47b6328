package db

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KVEntry 存储按用户隔离的键值对，值为 JSON 文本。
// 目前用于按日期保存“跳过的活动”集合，键形如 skipped-activities-2024-01-15。
type KVEntry struct {
	gorm.Model
	UserID uint           `gorm:"not null;uniqueIndex:idx_kv_user_key"`
	Key    string         `gorm:"size:100;not null;uniqueIndex:idx_kv_user_key"`
	Value  datatypes.JSON `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (KVEntry) TableName() string {
	return "kv_entries"
}
