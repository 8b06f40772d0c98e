package quota

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/seoextraction/extractor-api/internal/pkg/identity"
)

// DefaultLimit is the number of free-tier actions before rejection.
const DefaultLimit = 5

// lockStripes bounds the lock set; ids sharing a stripe just serialize.
const lockStripes = 64

// ErrQuotaExceeded is a domain rejection, not an infrastructure fault; the
// counter is left untouched when it is returned.
var ErrQuotaExceeded = errors.New("usage limit reached")

// MetadataGateway is the slice of the identity client the tracker needs.
type MetadataGateway interface {
	GetUser(ctx context.Context, userID string) (*identity.Metadata, error)
	PatchMetadata(ctx context.Context, userID string, patch identity.MetadataPatch) error
}

// Tracker enforces and advances the free-tier usage counter stored in the
// identity record. The external store has no conditional update, so the
// read-modify-write is serialized with a striped lock set keyed by user id.
// A multi-instance deployment would move this lock to redis.
type Tracker struct {
	gateway MetadataGateway
	limit   int

	locks [lockStripes]sync.Mutex
}

// NewTracker creates a tracker with the given usage limit (DefaultLimit if <= 0).
func NewTracker(gateway MetadataGateway, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{gateway: gateway, limit: limit}
}

// Limit returns the configured usage limit.
func (t *Tracker) Limit() int {
	return t.limit
}

// Track reads the user's identity metadata in a single round trip and, when
// increment is set, advances and persists the usage counter. The returned
// metadata reflects the post-increment state. Returns the current metadata
// with ErrQuotaExceeded, without writing, when the counter is already at the
// limit.
func (t *Tracker) Track(ctx context.Context, userID string, increment bool) (*identity.Metadata, error) {
	lock := t.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	meta, err := t.gateway.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if meta.UsageCount < 0 {
		meta.UsageCount = 0
	}
	if !increment {
		return meta, nil
	}
	if meta.UsageCount >= t.limit {
		return meta, ErrQuotaExceeded
	}

	meta.UsageCount++
	if err := t.gateway.PatchMetadata(ctx, userID, identity.MetadataPatch{UsageCount: &meta.UsageCount}); err != nil {
		return nil, err
	}
	return meta, nil
}

func (t *Tracker) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &t.locks[h.Sum32()%lockStripes]
}
