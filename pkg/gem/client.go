package gem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ippclub/gem-poller/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultBinary is the gem executable looked up on PATH
const DefaultBinary = "gem"

// Options configures a Client
type Options struct {
	Binary        string        // gem executable, DefaultBinary if empty
	Timeout       time.Duration // per query, 0 means none
	MaxConcurrent int64         // concurrent gem processes, 0 means unbounded
}

// Client queries a gem repository through the gem command line
type Client struct {
	binary  string
	timeout time.Duration
	runner  Runner
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewClient creates a new Client instance
func NewClient(runner Runner, opts Options, logger *zap.Logger) *Client {
	c := &Client{
		binary:  opts.Binary,
		timeout: opts.Timeout,
		runner:  runner,
		logger:  logger,
	}
	if c.binary == "" {
		c.binary = DefaultBinary
	}
	if opts.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	return c
}

// Args returns the arguments of the listing query for gem name in repository url
func Args(url, name string) []string {
	return []string{"list", "^" + name + "$", "-a", "-r", "-s", url}
}

// Query lists every remote version of the gem whose name is exactly name.
// It returns ErrNoSuchPackage if the repository reports nothing.
func (c *Client) Query(ctx context.Context, url, name string) (*model.Package, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("failed to acquire query slot: %w", err)
		}
		defer c.sem.Release(1)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := Args(url, name)
	lines, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return nil, err
		}
		return nil, &ExecutionError{Command: append([]string{c.binary}, args...), ExitCode: -1, Err: err}
	}

	pkg, err := ParseListing(lines)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrNoSuchPackage
	}

	c.logger.Debug("gem listing parsed",
		zap.String("gem", pkg.Name),
		zap.String("latest", pkg.Latest()),
		zap.Int("versions", len(pkg.Versions)),
	)
	return pkg, nil
}
