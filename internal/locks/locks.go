package locks

import (
	"errors"
	"sync"
)

// ErrBusy is returned by callers of TryLock when the key is already held.
// It is deliberately not retried internally: a busy submission or task key
// means another admin request is mid-flight, and the caller should be told
// so rather than queued behind it.
var ErrBusy = errors.New("resource is being processed by another request")

// KeyedMutex hands out one mutex per key. User balance keys are locked
// blocking (every credit/debit must eventually land); task, submission and
// completion keys are try-locked (a duplicate request should fail fast).
type KeyedMutex struct {
	mu sync.Map // key -> *sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	mu, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Lock blocks until the key is free and returns the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	mu := k.get(key)
	mu.Lock()
	return mu.Unlock
}

// TryLock acquires the key without waiting. ok is false when the key is
// already held; no unlock function is returned in that case.
func (k *KeyedMutex) TryLock(key string) (unlock func(), ok bool) {
	mu := k.get(key)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// Key constructors. Prefixes keep the key spaces disjoint so that holding a
// task lock while taking a user balance lock can never collide.

func UserKey(userID string) string {
	return "user:" + userID
}

func TaskKey(taskID string) string {
	return "task:" + taskID
}

func SubmissionKey(submissionID string) string {
	return "submission:" + submissionID
}

func CompletionKey(userID, network, offerID string) string {
	return "completion:" + userID + ":" + network + ":" + offerID
}
