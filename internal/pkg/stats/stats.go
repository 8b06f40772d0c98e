package stats

import (
	"log"
	"strconv"
	"time"

	"github.com/seoextraction/extractor-api/app/repository"
	"github.com/seoextraction/extractor-api/internal/pkg/cache"
	"github.com/seoextraction/extractor-api/internal/pkg/database"
)

const (
	cacheKeyUsersTotal = "statistics:users:total"
	cacheExpiration    = 30 * time.Minute
)

// RegisteredUserLimit caps how many users may complete payment setup while
// the product is gated. Surfaced to the UI, not enforced server-side.
const RegisteredUserLimit = 3

// GetUserCount returns the number of mirrored registered users, serving from
// the cache when warm.
func GetUserCount() (int, error) {
	if cached, err := cache.GetInt(cacheKeyUsersTotal); err == nil {
		return cached, nil
	}

	count, err := repository.NewUserRepository(database.GetDB()).Count()
	if err != nil {
		return 0, err
	}

	if err := cache.Set(cacheKeyUsersTotal, strconv.FormatInt(count, 10), cacheExpiration); err != nil {
		log.Printf("stats: failed to cache user count: %v", err)
	}
	return int(count), nil
}

// InvalidateUserCount drops the cached count after a new user is mirrored.
func InvalidateUserCount() {
	if err := cache.Delete(cacheKeyUsersTotal); err != nil {
		log.Printf("stats: failed to invalidate user count cache: %v", err)
	}
}
