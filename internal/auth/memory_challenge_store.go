package auth

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryChallengeStore keeps challenges in process memory.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

var _ ChallengeStore = (*MemoryChallengeStore)(nil)

// NewMemoryChallengeStore creates an empty store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]Challenge)}
}

// Put implements ChallengeStore.
func (m *MemoryChallengeStore) Put(_ context.Context, challenge Challenge) error {
	challenge.Identity = NormalizeIdentity(challenge.Identity)
	m.mu.Lock()
	m.challenges[challenge.Identity] = challenge
	m.mu.Unlock()
	return nil
}

// Redeem implements ChallengeStore.
func (m *MemoryChallengeStore) Redeem(_ context.Context, identity, nonce string, now time.Time) error {
	identity = NormalizeIdentity(identity)
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.challenges[identity]
	if !ok {
		return ErrInvalidChallenge
	}
	if subtle.ConstantTimeCompare([]byte(stored.Nonce), []byte(nonce)) != 1 {
		return ErrInvalidChallenge
	}
	if stored.Expired(now) {
		return ErrInvalidChallenge
	}
	delete(m.challenges, identity)
	return nil
}

// Sweep implements ChallengeStore.
func (m *MemoryChallengeStore) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for identity, challenge := range m.challenges {
		if challenge.Expired(now) {
			delete(m.challenges, identity)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored challenges, expired ones included.
func (m *MemoryChallengeStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.challenges)
}
