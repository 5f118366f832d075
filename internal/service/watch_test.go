package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ippclub/gem-poller/internal/config"
	"github.com/ippclub/gem-poller/internal/model"
)

type memoryStore struct {
	mu        sync.Mutex
	watches   map[string]*model.DBWatch
	revisions map[int64][]*model.DBRevision
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		watches:   make(map[string]*model.DBWatch),
		revisions: make(map[int64][]*model.DBRevision),
	}
}

func (m *memoryStore) UpsertWatch(watch *model.DBWatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.watches[watch.Name]; ok {
		watch.ID = existing.ID
	} else {
		watch.ID = int64(len(m.watches) + 1)
	}
	m.watches[watch.Name] = watch
	return nil
}

func (m *memoryStore) TouchWatch(watchID int64, polledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watches {
		if w.ID == watchID {
			w.LastPoll = polledAt
		}
	}
	return nil
}

func (m *memoryStore) GetLatestRevision(watchID int64) (*model.DBRevision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revs := m.revisions[watchID]
	if len(revs) == 0 {
		return nil, nil
	}
	return revs[len(revs)-1], nil
}

func (m *memoryStore) AddRevision(revision *model.DBRevision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions[revision.WatchID] = append(m.revisions[revision.WatchID], revision)
	return nil
}

func (m *memoryStore) history(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.revisions[m.watches[name].ID] {
		out = append(out, r.Revision)
	}
	return out
}

func Test_WatchService_SyncAll(t *testing.T) {
	q := &fakeQuerier{versions: []string{"4.0.0"}}
	st := newMemoryStore()
	packages := []config.WatchPackage{{Name: "rails", URL: rubygems, Gem: "rails"}}
	s := NewWatchService(packages, NewPoller(q, nil, zap.NewNop()), st, zap.NewNop())

	synced := 0
	s.SetOnSyncCallback(func() { synced++ })

	require.NoError(t, s.SyncAll(context.Background()))
	require.NoError(t, s.SyncAll(context.Background()))
	assert.Equal(t, []string{"4.0.0"}, st.history("rails"))

	q.setVersions("4.1.0", "4.0.0")
	require.NoError(t, s.SyncAll(context.Background()))
	assert.Equal(t, []string{"4.0.0", "4.1.0"}, st.history("rails"))
	assert.Equal(t, 3, synced)
	assert.False(t, st.watches["rails"].LastPoll.IsZero())
}

func Test_WatchService_SyncAll_CollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	q := &fakeQuerier{err: boom}
	packages := []config.WatchPackage{
		{Name: "rails", URL: rubygems, Gem: "rails"},
		{Name: "rack", URL: rubygems, Gem: "rack"},
	}
	s := NewWatchService(packages, NewPoller(q, nil, zap.NewNop()), newMemoryStore(), zap.NewNop())

	err := s.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to sync package rails")
	assert.Contains(t, err.Error(), "failed to sync package rack")
}
