package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressRelease(t *testing.T) {
	l := New()
	now := time.Now()

	l.Press(30, now)
	l.Press(2, now)
	assert.True(t, l.Held(30))
	assert.Equal(t, []uint32{2, 30}, l.Pressed())

	assert.True(t, l.Release(30))
	assert.False(t, l.Release(30), "double release")
	assert.False(t, l.Held(30))
}

func TestFlushReleasesInAscendingOrder(t *testing.T) {
	l := New()
	for _, code := range []uint32{57, 30, 42, 1} {
		l.MarkForwarded(code)
	}

	var got []uint32
	n, err := l.Flush(func(code uint32) error {
		got = append(got, code)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []uint32{1, 30, 42, 57}, got)
	assert.Empty(t, l.Unreleased())

	n, err = l.Flush(func(uint32) error {
		t.Fatal("nothing left to release")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushKeepsFailedKeys(t *testing.T) {
	l := New()
	l.MarkForwarded(10)
	l.MarkForwarded(20)

	boom := errors.New("device gone")
	n, err := l.Flush(func(code uint32) error {
		if code == 10 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uint32{10}, l.Unreleased())
}

func TestForwardedMirroring(t *testing.T) {
	l := New()
	l.MarkForwarded(30)
	assert.Equal(t, []uint32{30}, l.Unreleased())
	assert.True(t, l.ClearForwarded(30))
	assert.False(t, l.ClearForwarded(30))
	assert.Empty(t, l.Unreleased())
}

func TestDrainPressed(t *testing.T) {
	l := New()
	l.Press(5, time.Now())
	l.Press(3, time.Now())
	assert.Equal(t, []uint32{3, 5}, l.DrainPressed())
	assert.Empty(t, l.Pressed())
}
