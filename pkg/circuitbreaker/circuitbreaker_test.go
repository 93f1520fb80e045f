package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
	cb := NewWithWindow("redis", maxFailures, 30*time.Second, time.Minute)
	cb.now = clock.now
	return cb, clock
}

func TestOpensAfterTooManyFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return boom }, nil), boom)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }, nil), ErrOpen)
}

func TestFallbackRunsWhileOpen(t *testing.T) {
	cb, _ := newTestBreaker(0)
	cb.Execute(func() error { return errors.New("down") }, nil)

	called := false
	err := cb.Execute(func() error {
		t.Fatal("fn must not run while open")
		return nil
	}, func() error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}

func TestHalfOpenClosesOnSuccess(t *testing.T) {
	cb, clock := newTestBreaker(0)
	cb.Execute(func() error { return errors.New("down") }, nil)
	assert.Equal(t, StateOpen, cb.State())

	clock.advance(31 * time.Second)
	assert.NoError(t, cb.Execute(func() error { return nil }, nil))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenReopensOnFailure(t *testing.T) {
	cb, clock := newTestBreaker(5)
	for i := 0; i < 6; i++ {
		cb.Execute(func() error { return errors.New("down") }, nil)
	}
	clock.advance(31 * time.Second)

	cb.Execute(func() error { return errors.New("still down") }, nil)

	assert.Equal(t, StateOpen, cb.State())
}

func TestOldFailuresLeaveWindow(t *testing.T) {
	cb, clock := newTestBreaker(1)
	cb.Execute(func() error { return errors.New("a") }, nil)
	clock.advance(2 * time.Minute)
	cb.Execute(func() error { return errors.New("b") }, nil)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestHalfOpenAdmitsOneTrial(t *testing.T) {
	cb, clock := newTestBreaker(0)
	cb.Execute(func() error { return errors.New("down") }, nil)
	clock.advance(31 * time.Second)

	var second error
	err := cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.State())
		second = cb.Execute(func() error {
			t.Fatal("only one trial may run while half-open")
			return nil
		}, nil)
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.ErrorIs(t, second, ErrOpen)
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }, nil))
}

func TestFailedTrialReleasesSlot(t *testing.T) {
	cb, clock := newTestBreaker(0)
	cb.Execute(func() error { return errors.New("down") }, nil)
	clock.advance(31 * time.Second)
	cb.Execute(func() error { return errors.New("still down") }, nil)
	assert.Equal(t, StateOpen, cb.State())

	clock.advance(31 * time.Second)
	ran := false
	assert.NoError(t, cb.Execute(func() error { ran = true; return nil }, nil))

	assert.True(t, ran)
	assert.Equal(t, StateClosed, cb.State())
}
