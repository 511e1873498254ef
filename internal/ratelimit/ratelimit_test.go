package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Reserve(t *testing.T) {
	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(2*time.Second, 2*time.Second)
	l.now = func() time.Time { return base }

	assert.Equal(t, time.Duration(0), l.reserve())
	assert.Equal(t, 2*time.Second, l.reserve())
	assert.Equal(t, 4*time.Second, l.reserve())
}

func TestLimiter_JitterStaysInRange(t *testing.T) {
	l := NewLimiter(time.Second, 3*time.Second)
	for i := 0; i < 100; i++ {
		d := l.delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(time.Hour, time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestHostLimiter(t *testing.T) {
	h := NewHostLimiter(time.Hour, time.Hour)
	ctx := context.Background()

	require.NoError(t, h.Wait(ctx, "https://www.g2g.com/offer/Kazzak--EU----Horde"))
	// A different host has its own schedule.
	require.NoError(t, h.Wait(ctx, "https://nobitex.ir/panel/exchange/usdt-irt"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, h.Wait(short, "https://www.g2g.com/offer/Tarren-Mill--EU----Horde"))
}

func TestHostLimiter_DisabledIsNil(t *testing.T) {
	h := NewHostLimiter(0, 0)
	assert.Nil(t, h)
	assert.NoError(t, h.Wait(context.Background(), "https://www.g2g.com"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "www.g2g.com", hostOf("https://www.g2g.com/offer/Kazzak?sort=lowest_price"))
	assert.Equal(t, "not a url", hostOf("not a url"))
}
