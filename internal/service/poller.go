package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ippclub/gem-poller/internal/model"
	"github.com/ippclub/gem-poller/pkg/gem"
	"go.uber.org/zap"
)

// Querier lists the versions of a gem in a repository
type Querier interface {
	Query(ctx context.Context, url, name string) (*model.Package, error)
}

// Poller answers connection and revision questions about gem packages
type Poller struct {
	querier Querier
	prober  Prober
	logger  *zap.Logger
	now     func() time.Time
}

// NewPoller creates a new Poller instance
func NewPoller(querier Querier, prober Prober, logger *zap.Logger) *Poller {
	return &Poller{
		querier: querier,
		prober:  prober,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the clock used to stamp revisions
func (p *Poller) SetClock(now func() time.Time) {
	p.now = now
}

// LatestRevision returns the latest revision of the gem, or nil if the
// repository has no version of it
func (p *Poller) LatestRevision(ctx context.Context, url, name string) (*model.Revision, error) {
	pkg, err := p.query(ctx, url, name)
	if err != nil || pkg == nil {
		return nil, err
	}
	return model.NewRevision(pkg.Latest(), p.now()), nil
}

// LatestRevisionSince returns the latest revision of the gem if its version
// label differs from previous, or nil otherwise
func (p *Poller) LatestRevisionSince(ctx context.Context, url, name, previous string) (*model.Revision, error) {
	pkg, err := p.query(ctx, url, name)
	if err != nil || pkg == nil {
		return nil, err
	}

	latest := pkg.Latest()
	if latest == previous {
		return nil, nil
	}
	if isDowngrade(previous, latest) {
		p.logger.Warn("latest gem version is older than previous revision",
			zap.String("gem", name),
			zap.String("previous", previous),
			zap.String("latest", latest),
		)
	}
	return model.NewRevision(latest, p.now()), nil
}

func (p *Poller) query(ctx context.Context, url, name string) (*model.Package, error) {
	pkg, err := p.querier.Query(ctx, url, name)
	if errors.Is(err, gem.ErrNoSuchPackage) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query gem %s: %w", name, err)
	}
	return pkg, nil
}

// isDowngrade reports whether both labels are semantic versions and latest
// sorts before previous
func isDowngrade(previous, latest string) bool {
	if previous == "" {
		return false
	}
	prev, err := semver.NewVersion(previous)
	if err != nil {
		return false
	}
	cur, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	return cur.LessThan(prev)
}
