package skips

import (
	"encoding/json"
	"slices"
)

// IDSet 是一组活动 ID 的不可变值，内部保持升序且无重复。
// 所有修改方法都返回新值，原值不受影响。
type IDSet struct {
	ids []uint
}

// NewIDSet 从任意顺序、可重复的 ID 构造集合。
func NewIDSet(ids ...uint) IDSet {
	if len(ids) == 0 {
		return IDSet{}
	}
	normalized := slices.Clone(ids)
	slices.Sort(normalized)
	return IDSet{ids: slices.Compact(normalized)}
}

func (s IDSet) Len() int {
	return len(s.ids)
}

func (s IDSet) IsEmpty() bool {
	return len(s.ids) == 0
}

func (s IDSet) Contains(id uint) bool {
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// IDs 返回升序 ID 列表的副本，空集合返回非 nil 的空切片，便于序列化为 []。
func (s IDSet) IDs() []uint {
	if len(s.ids) == 0 {
		return []uint{}
	}
	return slices.Clone(s.ids)
}

func (s IDSet) With(id uint) IDSet {
	if s.Contains(id) {
		return s
	}
	return NewIDSet(append(slices.Clone(s.ids), id)...)
}

func (s IDSet) Without(id uint) IDSet {
	idx, found := slices.BinarySearch(s.ids, id)
	if !found {
		return s
	}
	next := slices.Clone(s.ids)
	return IDSet{ids: slices.Delete(next, idx, idx+1)}
}

// Toggle 在集合中加入或移除 id。
func (s IDSet) Toggle(id uint) IDSet {
	if s.Contains(id) {
		return s.Without(id)
	}
	return s.With(id)
}

// Equal 判断两个集合元素是否一致。
func (s IDSet) Equal(other IDSet) bool {
	return slices.Equal(s.ids, other.ids)
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
