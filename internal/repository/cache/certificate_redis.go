package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"certverify/internal/model"
	"certverify/internal/repository"
)

const (
	keyPrefix = "certificate:"
	genPrefix = "certificate-gen:"

	// Generation counters only guard fills that are in flight.
	genTTL = 24 * time.Hour
)

// fillScript stores ARGV[2] under KEYS[2] only while the generation counter
// KEYS[1] still holds ARGV[1], the value read before the repository lookup.
var fillScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then cur = '0' end
if cur ~= ARGV[1] then return 0 end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// CertificateCache is a read-through Redis cache in front of a CertificateRepository.
// Writes go to the wrapped repository first, then bump the per-key generation
// and evict. A fill racing with a write is dropped when the generation moved.
// Redis failures are logged and never fail the caller.
type CertificateCache struct {
	next   repository.CertificateRepository
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

var _ repository.CertificateRepository = (*CertificateCache)(nil)

// NewCertificateCache wraps next with a Redis cache whose entries expire after ttl.
func NewCertificateCache(next repository.CertificateRepository, client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CertificateCache {
	return &CertificateCache{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    logger.With(zap.String("component", "cache")),
	}
}

// Key returns the Redis key holding a cached certificate.
func Key(id string) string {
	return keyPrefix + id
}

// GenKey returns the Redis key holding the write generation of a certificate.
func GenKey(id string) string {
	return genPrefix + id
}

func (c *CertificateCache) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	raw, err := c.client.Get(ctx, Key(id)).Bytes()
	switch {
	case err == nil:
		var cert model.Certificate
		if jerr := json.Unmarshal(raw, &cert); jerr == nil {
			return &cert, nil
		}
		c.log.Warn("cache_decode_failed", zap.String("certificate_id", id))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache_get_failed", zap.String("certificate_id", id), zap.Error(err))
	}

	gen, genErr := c.generation(ctx, id)

	cert, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return cert, nil
	}

	if b, jerr := json.Marshal(cert); jerr == nil {
		keys := []string{GenKey(id), Key(id)}
		stored, serr := fillScript.Run(ctx, c.client, keys, gen, b, c.ttl.Milliseconds()).Int()
		switch {
		case serr != nil:
			c.log.Warn("cache_set_failed", zap.String("certificate_id", id), zap.Error(serr))
		case stored == 0:
			c.log.Debug("cache_fill_skipped", zap.String("certificate_id", id))
		}
	}
	return cert, nil
}

func (c *CertificateCache) generation(ctx context.Context, id string) (string, error) {
	gen, err := c.client.Get(ctx, GenKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		c.log.Warn("cache_generation_failed", zap.String("certificate_id", id), zap.Error(err))
		return "", err
	}
	return gen, nil
}

func (c *CertificateCache) Upsert(ctx context.Context, cert *model.Certificate) error {
	if err := c.next.Upsert(ctx, cert); err != nil {
		return err
	}
	c.evict(ctx, cert.CertificateID)
	return nil
}

func (c *CertificateCache) UpsertBatch(ctx context.Context, certs []model.Certificate) error {
	if err := c.next.UpsertBatch(ctx, certs); err != nil {
		return err
	}
	ids := make([]string, len(certs))
	for i := range certs {
		ids[i] = certs[i].CertificateID
	}
	c.evict(ctx, ids...)
	return nil
}

func (c *CertificateCache) evict(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, GenKey(id))
			pipe.Expire(ctx, GenKey(id), genTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.log.Warn("cache_evict_failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
