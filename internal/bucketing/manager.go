package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/favourolaoye/boride-v3-api/internal/config"
)

// BucketingManager maps principal ids to stable partition buckets so wide
// rows spread evenly across the cluster. Event buckets partition the audit
// table the same way.
type BucketingManager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
	}

	// Pool of hash functions to avoid allocation overhead
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// PrincipalBucket returns a consistent bucket in [0, userBuckets) for an id.
func (bm *BucketingManager) PrincipalBucket(id string) int {
	return bm.bucket(id, bm.userBuckets)
}

// EventBucket returns a consistent bucket in [0, eventBuckets) for an id.
func (bm *BucketingManager) EventBucket(id string) int {
	return bm.bucket(id, bm.eventBuckets)
}

func (bm *BucketingManager) bucket(id string, buckets int) int {
	if buckets <= 0 {
		return 0
	}

	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	_, _ = hasher.Write([]byte(id))

	return int(hasher.Sum64() % uint64(buckets))
}
