package protocol

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ippclub/gem-poller/internal/model"
	"github.com/ippclub/gem-poller/internal/service"
	"go.uber.org/zap"
)

// Response statuses
const (
	StatusSuccess       = http.StatusOK
	StatusInternalError = http.StatusInternalServerError
)

// Response is the rendered outcome of a request. A nil Body means the
// request produced no body.
type Response struct {
	Status int
	Body   []byte
}

// errorBody carries the cause of an internal error
type errorBody struct {
	Message string `json:"message"`
}

// Poller answers connection and revision questions
type Poller interface {
	CheckRepositoryConnection(ctx context.Context, url string) model.CheckResult
	CheckPackageConnection(ctx context.Context, url, gem string) model.CheckResult
	LatestRevision(ctx context.Context, url, gem string) (*model.Revision, error)
	LatestRevisionSince(ctx context.Context, url, gem, previous string) (*model.Revision, error)
}

// Dispatcher routes protocol requests
type Dispatcher struct {
	poller Poller
	logger *zap.Logger
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(poller Poller, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{poller: poller, logger: logger}
}

// Dispatch handles the request named name. It returns ErrUnknownRequest
// for names outside the protocol and ErrMalformedRequest for bodies that
// cannot be decoded.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, body []byte) (Response, error) {
	kind, err := ParseRequestKind(name)
	if err != nil {
		return Response{}, err
	}
	return d.DispatchKind(ctx, kind, body)
}

// DispatchKind handles a request of the given kind
func (d *Dispatcher) DispatchKind(ctx context.Context, kind RequestKind, body []byte) (Response, error) {
	req, err := decodeBody(kind, body)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	resp := d.handle(ctx, kind, req)
	d.logger.Debug("request handled",
		zap.Stringer("request", kind),
		zap.Int("status", resp.Status),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (d *Dispatcher) handle(ctx context.Context, kind RequestKind, req *requestBody) Response {
	url := req.Repository.Get(service.KeyURL)
	gem := req.Package.Get(service.KeyGem)

	switch kind {
	case RepositoryConfiguration:
		return d.render(StatusSuccess, service.RepositoryConfiguration())
	case PackageConfiguration:
		return d.render(StatusSuccess, service.PackageConfiguration())
	case ValidateRepositoryConfiguration:
		return d.render(StatusSuccess, service.ValidateRepository(url))
	case ValidatePackageConfiguration:
		return d.render(StatusSuccess, service.ValidatePackage(gem))
	case CheckRepositoryConnection:
		return d.render(StatusSuccess, d.poller.CheckRepositoryConnection(ctx, url))
	case CheckPackageConnection:
		return d.render(StatusSuccess, d.poller.CheckPackageConnection(ctx, url, gem))
	case LatestRevision:
		rev, err := d.poller.LatestRevision(ctx, url, gem)
		return d.renderRevision(kind, gem, rev, err)
	case LatestRevisionSince:
		rev, err := d.poller.LatestRevisionSince(ctx, url, gem, req.PreviousRevision)
		return d.renderRevision(kind, gem, rev, err)
	}
	// unreachable: kinds are resolved by ParseRequestKind
	return d.renderError(ErrUnknownRequest)
}

func (d *Dispatcher) renderRevision(kind RequestKind, gem string, rev *model.Revision, err error) Response {
	if err != nil {
		d.logger.Error("revision lookup failed",
			zap.Stringer("request", kind),
			zap.String("gem", gem),
			zap.Error(err),
		)
		return d.renderError(err)
	}
	if rev == nil {
		return Response{Status: StatusSuccess}
	}
	return d.render(StatusSuccess, rev)
}

func (d *Dispatcher) renderError(err error) Response {
	body, _ := json.Marshal(errorBody{Message: err.Error()})
	return Response{Status: StatusInternalError, Body: body}
}

func (d *Dispatcher) render(status int, v interface{}) Response {
	body, err := json.Marshal(v)
	if err != nil {
		d.logger.Error("failed to marshal response", zap.Error(err))
		return d.renderError(err)
	}
	return Response{Status: status, Body: body}
}
