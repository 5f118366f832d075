package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ippclub/gem-poller/internal/model"
	"github.com/ippclub/gem-poller/pkg/gem"
	"go.uber.org/zap"
)

// Connection check messages
const (
	MessageConnected       = "Could connect to URL successfully"
	MessageMalformedURL    = "Malformed URL"
	MessageCouldNotConnect = "Could not connect to URL"
	MessageNoVersion       = "Could not find any version of gem"
	latestVersionPrefix    = "Latest version: "
)

// ErrMalformedURL is returned for a URL that cannot be probed
var ErrMalformedURL = errors.New("malformed url")

// defaultPorts maps probe schemes to their well-known ports
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
}

// Prober opens a connection to a repository URL
type Prober interface {
	Probe(ctx context.Context, u *url.URL) error
}

// NetProber probes http(s) URLs with a HEAD request and other schemes with a TCP dial
type NetProber struct {
	client *http.Client
	dialer *net.Dialer
}

// NewNetProber creates a new NetProber; a zero timeout means none
func NewNetProber(timeout time.Duration) *NetProber {
	return &NetProber{
		client: &http.Client{Timeout: timeout},
		dialer: &net.Dialer{Timeout: timeout},
	}
}

// Probe connects to u. The HTTP status code is not inspected.
func (p *NetProber) Probe(ctx context.Context, u *url.URL) error {
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	default:
		conn, err := p.dialer.DialContext(ctx, "tcp", hostPort(u))
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// ParseProbeURL parses rawURL into a URL that can be probed
func ParseProbeURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[u.Scheme]; !ok {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrMalformedURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	return u, nil
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), defaultPorts[u.Scheme])
}

// CheckRepositoryConnection reports whether the repository URL can be reached
func (p *Poller) CheckRepositoryConnection(ctx context.Context, rawURL string) model.CheckResult {
	u, err := ParseProbeURL(rawURL)
	if err != nil {
		return failure(MessageMalformedURL)
	}

	if err := p.prober.Probe(ctx, u); err != nil {
		p.logger.Info("repository connection check failed",
			zap.String("url", gem.RedactURL(rawURL)),
			zap.Error(err),
		)
		if isConnectionError(err) {
			return failure(MessageCouldNotConnect)
		}
		return failure(err.Error())
	}

	return success(MessageConnected)
}

// CheckPackageConnection reports whether the gem resolves to a version
func (p *Poller) CheckPackageConnection(ctx context.Context, rawURL, name string) model.CheckResult {
	pkg, err := p.querier.Query(ctx, rawURL, name)
	if errors.Is(err, gem.ErrNoSuchPackage) {
		return failure(MessageNoVersion)
	}
	if err != nil {
		p.logger.Info("package connection check failed",
			zap.String("url", gem.RedactURL(rawURL)),
			zap.String("gem", name),
			zap.Error(err),
		)
		return failure(err.Error())
	}
	return success(latestVersionPrefix + pkg.Latest())
}

// isConnectionError reports whether err is an I/O level connection failure
func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func success(msg string) model.CheckResult {
	return model.CheckResult{Status: model.StatusSuccess, Messages: []string{msg}}
}

func failure(msg string) model.CheckResult {
	return model.CheckResult{Status: model.StatusFailure, Messages: []string{msg}}
}
