package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/steve-ongera/mpesa-ledger/src/internal/scheduler"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCharges struct {
	service_interfaces.ChargesService
	mu      sync.Mutex
	reloads int
	err     error
}

func (s *stubCharges) Reload(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	return 4, s.err
}

type stubLoans struct {
	service_interfaces.LoanService
	mu     sync.Mutex
	sweeps []time.Time
}

func (s *stubLoans) MarkDefaulted(_ context.Context, asOf time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps = append(s.sweeps, asOf)
	return 1, nil
}

func (s *stubLoans) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sweeps)
}

var sweepTime = time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)

func redisLock(t *testing.T) (*miniredis.Miniredis, *scheduler.DistributedLock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, scheduler.NewDistributedLock(client, scheduler.LockOptions{})
}

func TestSweepDefaultsRunsUnderLock(t *testing.T) {
	mr, lock := redisLock(t)
	loans := &stubLoans{}
	s := scheduler.New(&stubCharges{}, loans, lock, scheduler.Options{
		LockPrefix: "test:lock:",
		Now:        func() time.Time { return sweepTime },
	})

	s.SweepDefaults()

	require.Equal(t, 1, loans.count())
	assert.Equal(t, sweepTime, loans.sweeps[0])
	assert.False(t, mr.Exists("test:lock:loan-default-sweep"))
}

func TestSweepDefaultsSkipsWhenAnotherReplicaHoldsLock(t *testing.T) {
	mr, lock := redisLock(t)
	other := scheduler.NewDistributedLock(redis.NewClient(&redis.Options{Addr: mr.Addr()}), scheduler.LockOptions{})
	loans := &stubLoans{}
	s := scheduler.New(&stubCharges{}, loans, lock, scheduler.Options{LockPrefix: "test:lock"})

	err := other.WithLock(context.Background(), "test:lock:loan-default-sweep", func(context.Context) error {
		assert.True(t, mr.Exists("test:lock:loan-default-sweep"))
		s.SweepDefaults()
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, loans.count())
}

func TestWithLockReturnsCallbackError(t *testing.T) {
	_, lock := redisLock(t)
	boom := errors.New("boom")

	err := lock.WithLock(context.Background(), "test:lock:any", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	// released, so a second holder gets in
	ran := false
	require.NoError(t, lock.WithLock(context.Background(), "test:lock:any", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestSweepWithoutRedisRunsLocally(t *testing.T) {
	loans := &stubLoans{}
	scheduler.New(&stubCharges{}, loans, nil, scheduler.Options{}).SweepDefaults()
	assert.Equal(t, 1, loans.count())
}

func TestRefreshChargeBands(t *testing.T) {
	charges := &stubCharges{}
	s := scheduler.New(charges, &stubLoans{}, nil, scheduler.Options{})

	s.RefreshChargeBands()
	charges.err = errors.New("db down")
	s.RefreshChargeBands()

	assert.Equal(t, 2, charges.reloads)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := scheduler.New(&stubCharges{}, &stubLoans{}, nil, scheduler.Options{
		ChargeBandRefresh: "@every 5m",
		LoanDefaultSweep:  "not a schedule",
	})

	err := s.Start()
	<-s.Stop().Done()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loan-default-sweep")
}

func TestStartWithDisabledJobs(t *testing.T) {
	s := scheduler.New(&stubCharges{}, &stubLoans{}, nil, scheduler.Options{})
	require.NoError(t, s.Start())
	<-s.Stop().Done()
}
