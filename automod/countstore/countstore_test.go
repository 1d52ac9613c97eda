package countstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "msg", "c1/u1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "msg", "c1/u1"))
	assert.NoError(cs.Increment(ctx, "msg", "c1/u1"))

	for _, period := range allPeriods {
		c, err = cs.GetCount(ctx, "msg", "c1/u1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	// period-scoped increment only touches its own bucket
	assert.NoError(cs.IncrementPeriod(ctx, "notice", "c1/u1", PeriodDay))
	c, err = cs.GetCount(ctx, "notice", "c1/u1", PeriodDay)
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = cs.GetCount(ctx, "notice", "c1/u1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)

	assert.NoError(cs.IncrementDistinct(ctx, "mentions", "c1/u1", "u2"))
	assert.NoError(cs.IncrementDistinct(ctx, "mentions", "c1/u1", "u2"))
	assert.NoError(cs.IncrementDistinct(ctx, "mentions", "c1/u1", "u3"))
	c, err = cs.GetCountDistinct(ctx, "mentions", "c1/u1", PeriodHour)
	assert.NoError(err)
	assert.Equal(2, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	// interleaved writers and readers across two keys; run with -race
	var wg sync.WaitGroup
	inc := func(name, val string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			assert.NoError(cs.Increment(ctx, name, val))
			assert.NoError(cs.IncrementDistinct(ctx, name, name, val))
		}
	}
	read := func(name, val string, times int) {
		for i := 0; i < times; i++ {
			_, err := cs.GetCount(ctx, name, val, PeriodTotal)
			assert.NoError(err)
		}
	}
	wg.Add(4)
	go inc("msg", "c1/u1", 10)
	go inc("msg", "c1/u1", 10)
	go read("msg", "c1/u1", 10)
	go inc("msg", "c1/u2", 6)
	go inc("msg", "c1/u2", 6)
	go read("msg", "c1/u2", 6)
	wg.Wait()

	c, err := cs.GetCount(ctx, "msg", "c1/u1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(20, c)
	c, err = cs.GetCount(ctx, "msg", "c1/u2", PeriodTotal)
	assert.NoError(err)
	assert.Equal(12, c)
	c, err = cs.GetCountDistinct(ctx, "msg", "msg", PeriodTotal)
	assert.NoError(err)
	assert.Equal(2, c)
}
