package serverinfo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ladle/internal/domain"
)

type memStorage struct {
	mu      sync.Mutex
	profile domain.ServerProfile
	writes  int
	reads   atomic.Int32
}

func (m *memStorage) GetServerProfile(ctx context.Context) (domain.ServerProfile, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, nil
}

func (m *memStorage) StoreServerProfile(ctx context.Context, profile domain.ServerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = profile
	m.writes++
	return nil
}

type fakeProbe struct {
	versions map[string]string
	err      error
	calls    atomic.Int32
	delay    time.Duration
	gate     chan struct{} // When set, each call blocks until it is closed
}

func (f *fakeProbe) RequestVersion(ctx context.Context, baseURL string) (*domain.VersionInfo, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.versions[baseURL]
	if !ok {
		return nil, domain.NewNetworkError(domain.KindNotMealie, errors.New("404"))
	}
	return &domain.VersionInfo{Version: v, Production: true}, nil
}

func intPtr(n int) *int { return &n }

func newRepo(t *testing.T, storage *memStorage, probe *fakeProbe) *Repo {
	t.Helper()
	r, err := NewRepo(context.Background(), storage, probe, nil)
	require.NoError(t, err)
	return r
}

func TestParseMajorVersion(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"v1.2.3", intPtr(1)},
		{"2.0.0", intPtr(2)},
		{"v0.5.4", intPtr(0)},
		{"10", intPtr(10)},
		{"garbage", nil},
		{"", nil},
		{"v", nil},
		{"vx.1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMajorVersion(tt.in))
		})
	}
}

func TestTryBaseURL(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessStoresURLAndVersion", func(t *testing.T) {
		storage := &memStorage{}
		r := newRepo(t, storage, &fakeProbe{versions: map[string]string{"https://a": "v1.4.0"}})

		info, err := r.TryBaseURL(ctx, "https://a")
		require.NoError(t, err)
		assert.Equal(t, "v1.4.0", info.Version)
		assert.Equal(t, domain.ServerProfile{BaseURL: "https://a", Version: intPtr(1)}, storage.profile)
		assert.Equal(t, 1, storage.writes)
		assert.Equal(t, "https://a", r.BaseURL().Get())
		assert.Equal(t, intPtr(1), r.Version().Get())
	})

	t.Run("UnparseableVersionClearsStaleVersion", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://old", Version: intPtr(0)}}
		r := newRepo(t, storage, &fakeProbe{versions: map[string]string{"https://b": "nightly"}})

		_, err := r.TryBaseURL(ctx, "https://b")
		require.NoError(t, err)
		assert.Equal(t, "https://b", storage.profile.BaseURL)
		assert.Nil(t, storage.profile.Version)
	})

	t.Run("FailureLeavesProfileUntouched", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://old", Version: intPtr(0)}}
		r := newRepo(t, storage, &fakeProbe{})

		_, err := r.TryBaseURL(ctx, "https://nope")
		require.ErrorIs(t, err, domain.ErrNotMealie)
		assert.Equal(t, domain.ServerProfile{BaseURL: "https://old", Version: intPtr(0)}, storage.profile)
		assert.Zero(t, storage.writes)
		assert.Equal(t, "https://old", r.BaseURL().Get())
	})
}

func TestGetVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("NoURL", func(t *testing.T) {
		probe := &fakeProbe{}
		r := newRepo(t, &memStorage{}, probe)

		v, err := r.GetVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, NoVersion, v)
		assert.Zero(t, probe.calls.Load())
	})

	t.Run("Cached", func(t *testing.T) {
		probe := &fakeProbe{}
		r := newRepo(t, &memStorage{profile: domain.ServerProfile{BaseURL: "https://a", Version: intPtr(1)}}, probe)

		v, err := r.GetVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.Zero(t, probe.calls.Load())
	})

	t.Run("ProbesWhenMissing", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://a"}}
		probe := &fakeProbe{versions: map[string]string{"https://a": "v0.5.4"}}
		r := newRepo(t, storage, probe)

		v, err := r.GetVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, v)
		assert.Equal(t, intPtr(0), storage.profile.Version)
	})

	t.Run("FatalWhenProbeFails", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://a"}}
		probeErr := domain.NewNetworkError(domain.KindNoServerConnection, errors.New("refused"))
		r := newRepo(t, storage, &fakeProbe{err: probeErr})

		_, err := r.GetVersion(ctx)
		require.ErrorIs(t, err, domain.ErrVersionUnavailable)
		assert.ErrorIs(t, err, domain.ErrNoServerConnection)
		assert.True(t, IsFatal(err))
		assert.Equal(t, "https://a", storage.profile.BaseURL)
	})

	t.Run("FatalWhenVersionUnparseable", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://a"}}
		r := newRepo(t, storage, &fakeProbe{versions: map[string]string{"https://a": "garbage"}})

		_, err := r.GetVersion(ctx)
		assert.ErrorIs(t, err, domain.ErrVersionUnavailable)
	})

	t.Run("ConcurrentCallersShareOneProbe", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://a"}}
		probe := &fakeProbe{versions: map[string]string{"https://a": "v1.0.0"}, gate: make(chan struct{})}
		r := newRepo(t, storage, probe)
		const callers = 5

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := r.GetVersion(ctx)
				assert.NoError(t, err)
				assert.Equal(t, 1, v)
			}()
		}

		// Every caller has read the missing version and the probe is held open
		require.Eventually(t, func() bool {
			return storage.reads.Load() >= callers+1 && probe.calls.Load() == 1
		}, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(probe.gate)
		wg.Wait()

		assert.Equal(t, int32(1), probe.calls.Load())
	})

	t.Run("CanceledCallerDoesNotFailOthers", func(t *testing.T) {
		storage := &memStorage{profile: domain.ServerProfile{BaseURL: "https://a"}}
		probe := &fakeProbe{versions: map[string]string{"https://a": "v1.0.0"}, gate: make(chan struct{})}
		r := newRepo(t, storage, probe)

		firstCtx, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := r.GetVersion(firstCtx)
			firstErr <- err
		}()
		require.Eventually(t, func() bool { return probe.calls.Load() == 1 }, time.Second, time.Millisecond)

		second := make(chan int, 1)
		go func() {
			v, err := r.GetVersion(ctx)
			assert.NoError(t, err)
			second <- v
		}()
		require.Eventually(t, func() bool { return storage.reads.Load() >= 3 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(probe.gate)
		assert.Equal(t, 1, <-second)
		assert.Equal(t, int32(1), probe.calls.Load())
		assert.Equal(t, intPtr(1), storage.profile.Version)
	})
}

func TestAPIVersion(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		version *int
		want    domain.Dialect
	}{
		{"Zero", intPtr(0), domain.DialectV0},
		{"One", intPtr(1), domain.DialectV1},
		{"Two", intPtr(2), domain.DialectV1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRepo(t, &memStorage{profile: domain.ServerProfile{BaseURL: "https://a", Version: tt.version}}, &fakeProbe{})
			d, err := r.APIVersion(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	t.Run("NoURL", func(t *testing.T) {
		r := newRepo(t, &memStorage{}, &fakeProbe{})
		_, err := r.APIVersion(ctx)
		assert.ErrorIs(t, err, domain.ErrNoBaseURL)
	})
}
