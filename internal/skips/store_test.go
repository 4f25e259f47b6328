package skips

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tally/internal/schedule"
)

type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("boom") }
func (failingKV) Set(string, string) error         { return errors.New("boom") }
func (failingKV) Delete(string) error              { return errors.New("boom") }

func TestIDSetIsImmutable(t *testing.T) {
	base := NewIDSet(3, 1, 3, 2)
	assert.Equal(t, []uint{1, 2, 3}, base.IDs())

	added := base.With(5)
	removed := base.Without(2)
	toggled := base.Toggle(1)

	assert.Equal(t, []uint{1, 2, 3}, base.IDs())
	assert.Equal(t, []uint{1, 2, 3, 5}, added.IDs())
	assert.Equal(t, []uint{1, 3}, removed.IDs())
	assert.Equal(t, []uint{2, 3}, toggled.IDs())
	assert.True(t, toggled.Toggle(1).Equal(base))
	assert.Equal(t, []uint{}, IDSet{}.IDs())
}

func TestStoreRoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv)
	date := schedule.MustParseDate("2024-01-15")

	require.NoError(t, store.SetSkipped(date, NewIDSet(9, 4, 4)))

	raw, ok, err := kv.Get("skipped-activities-2024-01-15")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[4,9]", raw)

	assert.True(t, store.GetSkipped(date).Equal(NewIDSet(4, 9)))
	assert.Equal(t, []uint{4, 9}, store.GetSkippedActivityIDs(date))
	assert.True(t, store.GetSkipped(date.AddDays(1)).IsEmpty())
}

func TestStoreEmptySetDeletesKey(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv)
	date := schedule.MustParseDate("2024-01-15")

	require.NoError(t, store.SetSkipped(date, NewIDSet(1)))
	require.NoError(t, store.Clear(date))

	_, ok, _ := kv.Get(Key(date))
	assert.False(t, ok)
}

func TestStoreMalformedDataDegradesToEmpty(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv)
	date := schedule.MustParseDate("2024-01-15")

	for _, raw := range []string{"not json", `{"a":1}`, `[1,"x"]`, `[1.5]`, `[-2]`, `null`} {
		require.NoError(t, kv.Set(Key(date), raw))
		assert.True(t, store.GetSkipped(date).IsEmpty(), raw)
	}
}

func TestStoreReadErrorDegradesToEmpty(t *testing.T) {
	store := NewStore(failingKV{})
	date := schedule.MustParseDate("2024-01-15")

	assert.True(t, store.GetSkipped(date).IsEmpty())
	assert.Error(t, store.SetSkipped(date, NewIDSet(1)))
}

func TestStoreToggle(t *testing.T) {
	store := NewStore(NewMemoryKV())
	date := schedule.MustParseDate("2024-01-15")

	set, err := store.Toggle(date, 7)
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, set.IDs())

	set, err = store.Toggle(date, 7)
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
	assert.True(t, store.GetSkipped(date).IsEmpty())
}
