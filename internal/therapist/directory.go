package therapist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"theraslot/internal/logger"
)

const timezoneCacheTTL = 15 * time.Minute

// Directory is the collaborator interface the scheduling engine consumes:
// it only needs a zone id per therapist code.
type Directory interface {
	GetProfile(ctx context.Context, code string) (*Profile, error)
	GetTimezone(ctx context.Context, code string) (string, error)
}

// directory serves timezone lookups from redis with a database fallback.
// A redis outage degrades to plain DB reads; lookups never fail because of
// the cache.
type directory struct {
	repo  Repository
	cache *redis.Client
}

func NewDirectory(repo Repository, cache *redis.Client) Directory {
	return &directory{repo: repo, cache: cache}
}

func (d *directory) GetProfile(ctx context.Context, code string) (*Profile, error) {
	return d.repo.GetByCode(ctx, code)
}

// GetTimezone returns the therapist's declared zone id, or
// ErrTherapistNotFound for an unknown code. Callers are expected to run the
// result through the timezone resolver, which handles defaulting.
func (d *directory) GetTimezone(ctx context.Context, code string) (string, error) {
	key := cacheKey(code)

	if d.cache != nil {
		zone, err := d.cache.Get(ctx, key).Result()
		if err == nil {
			return zone, nil
		}
		if err != redis.Nil {
			logger.Warn("therapist timezone cache read failed", "code", code, "error", err)
		}
	}

	profile, err := d.repo.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, profile.Timezone, timezoneCacheTTL).Err(); err != nil {
			logger.Warn("therapist timezone cache write failed", "code", code, "error", err)
		}
	}

	return profile.Timezone, nil
}

func cacheKey(code string) string {
	return fmt.Sprintf("therapist:tz:%s", code)
}
