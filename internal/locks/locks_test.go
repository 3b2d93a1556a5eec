package locks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_LockSerializes(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(UserKey("u1"))
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_TryLock(t *testing.T) {
	km := NewKeyedMutex()

	t.Run("second caller gets busy", func(t *testing.T) {
		unlock, ok := km.TryLock(TaskKey("t1"))
		assert.True(t, ok)

		_, ok = km.TryLock(TaskKey("t1"))
		assert.False(t, ok)

		unlock()

		unlock2, ok := km.TryLock(TaskKey("t1"))
		assert.True(t, ok)
		unlock2()
	})

	t.Run("different keys are independent", func(t *testing.T) {
		unlockA, ok := km.TryLock(SubmissionKey("s1"))
		assert.True(t, ok)
		unlockB, ok := km.TryLock(SubmissionKey("s2"))
		assert.True(t, ok)
		unlockA()
		unlockB()
	})
}

func TestKeyedMutex_NestedDifferentKeys(t *testing.T) {
	km := NewKeyedMutex()

	done := make(chan struct{})
	go func() {
		defer close(done)
		unlockTask, ok := km.TryLock(TaskKey("t1"))
		if !ok {
			t.Error("task lock unexpectedly busy")
			return
		}
		defer unlockTask()

		// Holding the task key must not prevent taking a user key.
		unlockUser := km.Lock(UserKey("u1"))
		defer unlockUser()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested acquisition deadlocked")
	}
}

func TestKeyConstructors(t *testing.T) {
	assert.NotEqual(t, UserKey("x"), TaskKey("x"))
	assert.NotEqual(t, TaskKey("x"), SubmissionKey("x"))
	assert.Equal(t, "completion:u:cpagrip:o1", CompletionKey("u", "cpagrip", "o1"))
}
