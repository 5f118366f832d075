package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ippclub/gem-poller/internal/model"
)

func Test_CheckRepositoryConnection(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		probeErr error
		want     model.CheckResult
	}{
		{
			name: "reachable",
			url:  "https://rubygems.org",
			want: model.CheckResult{Status: "success", Messages: []string{"Could connect to URL successfully"}},
		},
		{
			name: "malformed",
			url:  "not a url",
			want: model.CheckResult{Status: "failure", Messages: []string{"Malformed URL"}},
		},
		{
			name: "unknown protocol",
			url:  "gopher://example.com",
			want: model.CheckResult{Status: "failure", Messages: []string{"Malformed URL"}},
		},
		{
			name:     "network failure",
			url:      "https://rubygems.org",
			probeErr: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			want:     model.CheckResult{Status: "failure", Messages: []string{"Could not connect to URL"}},
		},
		{
			name:     "other failure",
			url:      "https://rubygems.org",
			probeErr: errors.New("certificate pinning rejected"),
			want:     model.CheckResult{Status: "failure", Messages: []string{"certificate pinning rejected"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := proberFunc(func(context.Context, *url.URL) error { return tt.probeErr })
			p := NewPoller(&fakeQuerier{}, prober, zap.NewNop())
			assert.Equal(t, tt.want, p.CheckRepositoryConnection(context.Background(), tt.url))
		})
	}
}

func Test_CheckPackageConnection(t *testing.T) {
	q := &fakeQuerier{versions: []string{"4.0.0", "3.2.0"}}
	p := NewPoller(q, NewNetProber(time.Second), zap.NewNop())

	got := p.CheckPackageConnection(context.Background(), "https://rubygems.org", "rails")
	assert.Equal(t, model.CheckResult{Status: "success", Messages: []string{"Latest version: 4.0.0"}}, got)

	q.setVersions()
	got = p.CheckPackageConnection(context.Background(), "https://rubygems.org", "rails")
	assert.Equal(t, model.CheckResult{Status: "failure", Messages: []string{"Could not find any version of gem"}}, got)

	q.err = errors.New("failed to run \"gem list\": exit status 1")
	got = p.CheckPackageConnection(context.Background(), "https://rubygems.org", "rails")
	assert.False(t, got.Succeeded())
	assert.Equal(t, []string{q.err.Error()}, got.Messages)
}

func Test_NetProber_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPoller(&fakeQuerier{}, NewNetProber(time.Second), zap.NewNop())
	got := p.CheckRepositoryConnection(context.Background(), srv.URL)
	assert.True(t, got.Succeeded(), "status codes are not inspected")

	addr := srv.Listener.Addr().String()
	srv.Close()
	got = p.CheckRepositoryConnection(context.Background(), "http://"+addr)
	assert.Equal(t, []string{"Could not connect to URL"}, got.Messages)
}

func Test_NetProber_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			conn.Close()
		}
	}()

	u, err := ParseProbeURL("ftp://" + ln.Addr().String() + "/gems")
	require.NoError(t, err)
	assert.NoError(t, NewNetProber(time.Second).Probe(context.Background(), u))
}

func Test_ParseProbeURL(t *testing.T) {
	u, err := ParseProbeURL("HTTPS://rubygems.org")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)

	for _, raw := range []string{"", "rubygems.org", "https://", "file:///tmp", "http://[::1"} {
		_, err := ParseProbeURL(raw)
		assert.ErrorIs(t, err, ErrMalformedURL, raw)
	}
}
