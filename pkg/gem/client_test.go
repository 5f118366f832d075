package gem_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ippclub/gem-poller/pkg/gem"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	lines []string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.lines, r.err
}

func Test_Client_Query(t *testing.T) {
	runner := &recordingRunner{lines: []string{"", "rails (4.0.0, 3.2.0)"}}
	client := gem.NewClient(runner, gem.Options{}, zap.NewNop())

	pkg, err := client.Query(context.Background(), "https://rubygems.org", "rails")
	require.NoError(t, err)
	assert.Equal(t, "rails", pkg.Name)
	assert.Equal(t, "4.0.0", pkg.Latest())

	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"gem", "list", "^rails$", "-a", "-r", "-s", "https://rubygems.org"},
		runner.calls[0])
}

func Test_Client_Query_CustomBinary(t *testing.T) {
	runner := &recordingRunner{lines: []string{"rails (1.0)"}}
	client := gem.NewClient(runner, gem.Options{Binary: "/opt/ruby/bin/gem"}, zap.NewNop())

	_, err := client.Query(context.Background(), "https://rubygems.org", "rails")
	require.NoError(t, err)
	assert.Equal(t, "/opt/ruby/bin/gem", runner.calls[0][0])
}

func Test_Client_Query_NoSuchPackage(t *testing.T) {
	client := gem.NewClient(&recordingRunner{lines: []string{"", ""}}, gem.Options{}, zap.NewNop())

	pkg, err := client.Query(context.Background(), "https://rubygems.org", "missing")
	assert.Nil(t, pkg)
	assert.ErrorIs(t, err, gem.ErrNoSuchPackage)
}

func Test_Client_Query_ParseError(t *testing.T) {
	client := gem.NewClient(&recordingRunner{lines: []string{"*** REMOTE GEMS ***"}}, gem.Options{}, zap.NewNop())

	_, err := client.Query(context.Background(), "https://rubygems.org", "rails")
	var parseErr *gem.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.NotErrorIs(t, err, gem.ErrNoSuchPackage)
}

func Test_Client_Query_RunnerError(t *testing.T) {
	boom := errors.New("boom")
	client := gem.NewClient(&recordingRunner{err: boom}, gem.Options{}, zap.NewNop())

	_, err := client.Query(context.Background(), "https://rubygems.org", "rails")
	var execErr *gem.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "gem", execErr.Command[0])
}

func Test_Client_Query_Timeout(t *testing.T) {
	runner := gem.RunnerFunc(func(ctx context.Context, _ string, _ ...string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	client := gem.NewClient(runner, gem.Options{Timeout: 10 * time.Millisecond}, zap.NewNop())

	_, err := client.Query(context.Background(), "https://rubygems.org", "rails")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Client_Query_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	release := make(chan struct{})
	runner := gem.RunnerFunc(func(_ context.Context, _ string, _ ...string) ([]string, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return []string{"rails (1.0)"}, nil
	})
	client := gem.NewClient(runner, gem.Options{MaxConcurrent: 2}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Query(context.Background(), "https://rubygems.org", "rails")
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}
