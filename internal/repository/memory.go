package repository

import (
	"context"
	"sync"
	"time"

	"routerider/internal/models"
)

// MemoryStateRepository is the in-process fallback used when Redis is
// unreachable. State written here is lost on restart and dedup is best
// effort only.
type MemoryStateRepository struct {
	states     sync.Map
	rateLimits sync.Map
	processed  sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{ttl: ttl}
}

type stateEntry struct {
	state     *models.ContactState
	expiresAt time.Time
}

func (r *MemoryStateRepository) GetState(ctx context.Context, contact string) (*models.ContactState, error) {
	val, ok := r.states.Load(contact)
	if !ok {
		return nil, nil
	}
	entry := val.(*stateEntry)
	if time.Now().After(entry.expiresAt) {
		r.states.Delete(contact)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.ContactState) error {
	r.states.Store(state.Contact, &stateEntry{state: state, expiresAt: time.Now().Add(r.ttl)})
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, contact string) error {
	r.states.Delete(contact)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, contact string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(contact)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(contact, entry)
	return entry.count <= limit, nil
}

func (r *MemoryStateRepository) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	if val, loaded := r.processed.LoadOrStore(messageID, now.Add(ttl)); loaded {
		expiresAt := val.(time.Time)
		if now.Before(expiresAt) {
			return false, nil
		}
		r.processed.Store(messageID, now.Add(ttl))
	}
	return true, nil
}
