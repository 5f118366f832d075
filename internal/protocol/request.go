package protocol

import (
	"errors"
	"fmt"
)

// Extension identity reported to the orchestrator
const ExtensionName = "package-repository"

// SupportedVersions lists the protocol versions this plugin speaks
var SupportedVersions = []string{"1.0"}

var (
	// ErrUnknownRequest is returned for a request name outside the protocol
	ErrUnknownRequest = errors.New("unknown request")
	// ErrMalformedRequest is returned for a request body that cannot be decoded
	ErrMalformedRequest = errors.New("malformed request")
)

// Identifier describes the extension and protocol versions
type Identifier struct {
	Extension string   `json:"extension"`
	Versions  []string `json:"versions"`
}

// PluginIdentifier returns the extension identifier
func PluginIdentifier() Identifier {
	return Identifier{Extension: ExtensionName, Versions: SupportedVersions}
}

// RequestKind is one of the protocol requests
type RequestKind int

const (
	RepositoryConfiguration RequestKind = iota + 1
	PackageConfiguration
	ValidateRepositoryConfiguration
	ValidatePackageConfiguration
	CheckRepositoryConnection
	CheckPackageConnection
	LatestRevision
	LatestRevisionSince
)

var requestNames = map[RequestKind]string{
	RepositoryConfiguration:         "repository-configuration",
	PackageConfiguration:            "package-configuration",
	ValidateRepositoryConfiguration: "validate-repository-configuration",
	ValidatePackageConfiguration:    "validate-package-configuration",
	CheckRepositoryConnection:       "check-repository-connection",
	CheckPackageConnection:          "check-package-connection",
	LatestRevision:                  "latest-revision",
	LatestRevisionSince:             "latest-revision-since",
}

var requestKinds = func() map[string]RequestKind {
	kinds := make(map[string]RequestKind, len(requestNames))
	for k, name := range requestNames {
		kinds[name] = k
	}
	return kinds
}()

// ParseRequestKind resolves a request name
func ParseRequestKind(name string) (RequestKind, error) {
	kind, ok := requestKinds[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRequest, name)
	}
	return kind, nil
}

// String returns the wire name of the request
func (k RequestKind) String() string {
	if name, ok := requestNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// body sections this request reads
func (k RequestKind) sections() []string {
	switch k {
	case ValidateRepositoryConfiguration, CheckRepositoryConnection:
		return []string{sectionRepository}
	case CheckPackageConnection, LatestRevision:
		return []string{sectionRepository, sectionPackage}
	case LatestRevisionSince:
		return []string{sectionRepository, sectionPackage, sectionPreviousRevision}
	default:
		return nil
	}
}
