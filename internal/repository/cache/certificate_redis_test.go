package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"certverify/internal/model"
	repoMocks "certverify/internal/repository/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*CertificateCache, *repoMocks.MockCertificateRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mRepo := new(repoMocks.MockCertificateRepository)
	return NewCertificateCache(mRepo, client, time.Minute, zap.NewNop()), mRepo, mr
}

func TestCertificateCache_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		cert := &model.Certificate{CertificateID: "C-001", RecipientName: "Ada"}
		mRepo.On("FindByID", ctx, "C-001").Return(cert, nil).Once()

		got, err := c.FindByID(ctx, "C-001")
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.RecipientName)
		assert.True(t, mr.Exists(Key("C-001")))
		assert.Equal(t, time.Minute, mr.TTL(Key("C-001")))

		got, err = c.FindByID(ctx, "C-001")
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.RecipientName)

		mRepo.AssertNumberOfCalls(t, "FindByID", 1)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows).Twice()

		_, err := c.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.False(t, mr.Exists(Key("missing")))

		_, err = c.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		mRepo.AssertExpectations(t)
	})

	t.Run("redis down falls through", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		mr.Close()
		mRepo.On("FindByID", ctx, "C-001").Return(&model.Certificate{CertificateID: "C-001"}, nil)

		got, err := c.FindByID(ctx, "C-001")
		require.NoError(t, err)
		assert.Equal(t, "C-001", got.CertificateID)
	})

	t.Run("corrupt entry falls through", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		require.NoError(t, mr.Set(Key("C-001"), "{not json"))
		mRepo.On("FindByID", ctx, "C-001").Return(&model.Certificate{CertificateID: "C-001", RecipientName: "Fresh"}, nil).Once()

		got, err := c.FindByID(ctx, "C-001")
		require.NoError(t, err)
		assert.Equal(t, "Fresh", got.RecipientName)
	})
}

func TestCertificateCache_UpsertEvicts(t *testing.T) {
	ctx := context.Background()

	t.Run("single", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		require.NoError(t, mr.Set(Key("C-001"), `{"certificate_id":"C-001","recipient_name":"Old"}`))

		cert := &model.Certificate{CertificateID: "C-001", RecipientName: "New"}
		mRepo.On("Upsert", ctx, cert).Return(nil)
		mRepo.On("FindByID", ctx, "C-001").Return(cert, nil).Once()

		require.NoError(t, c.Upsert(ctx, cert))
		assert.False(t, mr.Exists(Key("C-001")))

		got, err := c.FindByID(ctx, "C-001")
		require.NoError(t, err)
		assert.Equal(t, "New", got.RecipientName)
	})

	t.Run("batch", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		require.NoError(t, mr.Set(Key("C-001"), "{}"))
		require.NoError(t, mr.Set(Key("C-002"), "{}"))
		require.NoError(t, mr.Set(Key("C-003"), "{}"))

		certs := []model.Certificate{{CertificateID: "C-001"}, {CertificateID: "C-002"}}
		mRepo.On("UpsertBatch", ctx, certs).Return(nil)

		require.NoError(t, c.UpsertBatch(ctx, certs))
		assert.False(t, mr.Exists(Key("C-001")))
		assert.False(t, mr.Exists(Key("C-002")))
		assert.True(t, mr.Exists(Key("C-003")))
	})

	t.Run("failed batch keeps cache", func(t *testing.T) {
		c, mRepo, mr := newTestCache(t)
		require.NoError(t, mr.Set(Key("C-001"), "{}"))

		mRepo.On("UpsertBatch", ctx, mock.Anything).Return(errors.New("rolled back"))

		err := c.UpsertBatch(ctx, []model.Certificate{{CertificateID: "C-001"}})
		assert.ErrorContains(t, err, "rolled back")
		assert.True(t, mr.Exists(Key("C-001")))
	})
}

// pausingRepo holds one certificate. While a pause is armed, the next
// FindByID copies the stored value, signals read and waits for release.
type pausingRepo struct {
	mu      sync.Mutex
	cert    model.Certificate
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepo) FindByID(_ context.Context, id string) (*model.Certificate, error) {
	r.mu.Lock()
	cert := r.cert
	read, release := r.read, r.release
	r.read, r.release = nil, nil
	r.mu.Unlock()

	if cert.CertificateID != id {
		return nil, sql.ErrNoRows
	}
	if read != nil {
		close(read)
		<-release
	}
	return &cert, nil
}

func (r *pausingRepo) Upsert(_ context.Context, cert *model.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cert = *cert
	return nil
}

func (r *pausingRepo) UpsertBatch(ctx context.Context, certs []model.Certificate) error {
	for i := range certs {
		if err := r.Upsert(ctx, &certs[i]); err != nil {
			return err
		}
	}
	return nil
}

func TestCertificateCache_FillRacingUpsert(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &pausingRepo{
		cert:    model.Certificate{CertificateID: "C1", RecipientName: "Old"},
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
	read, release := repo.read, repo.release
	c := NewCertificateCache(repo, client, time.Minute, zap.NewNop())

	type result struct {
		cert *model.Certificate
		err  error
	}
	done := make(chan result, 1)
	go func() {
		cert, err := c.FindByID(ctx, "C1")
		done <- result{cert, err}
	}()

	<-read
	require.NoError(t, c.UpsertBatch(ctx, []model.Certificate{{CertificateID: "C1", RecipientName: "New"}}))
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "Old", res.cert.RecipientName, "the lookup that started before the upsert still sees its own read")
	assert.False(t, mr.Exists(Key("C1")), "stale fill must not be stored")

	got, err := c.FindByID(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.RecipientName)

	got, err = c.FindByID(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.RecipientName)
	assert.True(t, mr.Exists(Key("C1")))
}

func TestCertificateCache_EvictBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	c, mRepo, mr := newTestCache(t)

	certs := []model.Certificate{{CertificateID: "C-001"}, {CertificateID: "C-002"}}
	mRepo.On("UpsertBatch", ctx, certs).Return(nil).Twice()

	require.NoError(t, c.UpsertBatch(ctx, certs))
	require.NoError(t, c.UpsertBatch(ctx, certs))

	gen, err := mr.Get(GenKey("C-001"))
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
	assert.Equal(t, genTTL, mr.TTL(GenKey("C-002")))
}
