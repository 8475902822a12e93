package sync

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"gatekeeper/pkg/testutil"
)

func TestShardedMap(t *testing.T) {
	t.Run("concurrent increments on one key are serialized", func(t *testing.T) {
		m := NewShardedMap[int](4)
		testutil.RunConcurrent(200, func(int) error {
			m.Do("rate_limit:ip:1.2.3.4", func(items map[string]int) {
				items["rate_limit:ip:1.2.3.4"]++
			})
			return nil
		})

		var got int
		m.Do("rate_limit:ip:1.2.3.4", func(items map[string]int) { got = items["rate_limit:ip:1.2.3.4"] })
		assert.Equal(t, 200, got)
	})

	t.Run("range sees every shard", func(t *testing.T) {
		m := NewShardedMap[struct{}](0)
		for i := range 100 {
			key := "k" + strconv.Itoa(i)
			m.Do(key, func(items map[string]struct{}) { items[key] = struct{}{} })
		}
		assert.Equal(t, 100, m.Len())

		m.Range(func(items map[string]struct{}) {
			for k := range items {
				delete(items, k)
			}
		})
		assert.Zero(t, m.Len())
	})
}
