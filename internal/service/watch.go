package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ippclub/gem-poller/internal/config"
	"github.com/ippclub/gem-poller/internal/model"
	"go.uber.org/zap"
)

// RevisionStore persists the revision history of watched packages
type RevisionStore interface {
	UpsertWatch(watch *model.DBWatch) error
	TouchWatch(watchID int64, polledAt time.Time) error
	GetLatestRevision(watchID int64) (*model.DBRevision, error)
	AddRevision(revision *model.DBRevision) error
}

// WatchService periodically polls configured packages for new revisions
type WatchService struct {
	poller   *Poller
	store    RevisionStore
	logger   *zap.Logger
	packages []config.WatchPackage
	mu       sync.Mutex
	onSync   func()
}

// NewWatchService creates a new WatchService instance
func NewWatchService(packages []config.WatchPackage, poller *Poller, store RevisionStore, logger *zap.Logger) *WatchService {
	return &WatchService{
		poller:   poller,
		store:    store,
		logger:   logger,
		packages: packages,
	}
}

// SetOnSyncCallback registers a function run after every SyncAll
func (s *WatchService) SetOnSyncCallback(fn func()) {
	s.onSync = fn
}

// SyncAll polls every watched package once
func (s *WatchService) SyncAll(ctx context.Context) error {
	// one sync at a time; overlapping ticks and manual triggers queue up
	s.mu.Lock()
	defer s.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(s.packages))

	for _, pkg := range s.packages {
		wg.Add(1)
		go func(p config.WatchPackage) {
			defer wg.Done()
			if err := s.syncPackage(ctx, p); err != nil {
				errChan <- fmt.Errorf("failed to sync package %s: %w", p.Name, err)
			}
		}(pkg)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if s.onSync != nil {
		s.onSync()
	}

	return errors.Join(errs...)
}

// syncPackage polls a single package and records a new revision if found
func (s *WatchService) syncPackage(ctx context.Context, p config.WatchPackage) error {
	watch := &model.DBWatch{Name: p.Name, URL: p.URL, Gem: p.Gem}
	if err := s.store.UpsertWatch(watch); err != nil {
		return err
	}

	previous := ""
	last, err := s.store.GetLatestRevision(watch.ID)
	if err != nil {
		return err
	}
	if last != nil {
		previous = last.Revision
	}

	revision, err := s.poller.LatestRevisionSince(ctx, p.URL, p.Gem, previous)
	if err != nil {
		return err
	}

	now := s.poller.now()
	if err := s.store.TouchWatch(watch.ID, now); err != nil {
		return err
	}

	if revision == nil {
		s.logger.Debug("no new revision",
			zap.String("name", p.Name),
			zap.String("revision", previous),
		)
		return nil
	}

	if err := s.store.AddRevision(&model.DBRevision{
		WatchID:    watch.ID,
		Revision:   revision.Revision,
		ObservedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to record revision: %w", err)
	}

	s.logger.Info("new revision observed",
		zap.String("name", p.Name),
		zap.String("gem", p.Gem),
		zap.String("previous", previous),
		zap.String("revision", revision.Revision),
	)
	return nil
}
