package appmode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNotifiesSubscribers(t *testing.T) {
	s := New(Admin)
	assert.True(t, s.IsAdmin())

	var got []Mode
	unsubscribe := s.Subscribe(func(m Mode) { got = append(got, m) })

	require.NoError(t, s.Set(Reader))
	require.NoError(t, s.Set(Admin))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Set(Reader))

	assert.Equal(t, []Mode{Reader, Admin}, got)
	assert.Equal(t, Reader, s.Get())
	assert.False(t, s.IsAdmin())
}

func TestSetRejectsUnknownMode(t *testing.T) {
	s := New(Admin)
	notified := false
	s.Subscribe(func(Mode) { notified = true })

	assert.Error(t, s.Set("editor"))
	assert.Equal(t, Admin, s.Get())
	assert.False(t, notified)
}

func TestParse(t *testing.T) {
	m, err := Parse("reader")
	require.NoError(t, err)
	assert.Equal(t, Reader, m)

	_, err = Parse("")
	assert.Error(t, err)
}

func TestListenerMaySubscribeDuringSet(t *testing.T) {
	s := New(Admin)
	var wg sync.WaitGroup
	wg.Add(1)
	s.Subscribe(func(Mode) {
		// runs outside the lock
		s.Subscribe(func(Mode) {})
		wg.Done()
	})

	require.NoError(t, s.Set(Reader))
	wg.Wait()
}
