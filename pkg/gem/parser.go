package gem

import (
	"strings"

	"github.com/ippclub/gem-poller/internal/model"
)

const (
	nameSeparator    = " ("
	versionSeparator = ", "
	versionsSuffix   = ")"
)

// ParseListing turns `gem list` output into a package record.
// Only the first non-empty line is consulted. It returns nil, nil if
// the output contains no such line.
func ParseListing(lines []string) (*model.Package, error) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		return parseLine(trimmed)
	}
	return nil, nil
}

func parseLine(line string) (*model.Package, error) {
	parts := strings.Split(line, nameSeparator)
	if len(parts) != 2 {
		return nil, &ParseError{Line: line, Reason: "expected exactly one \" (\" separator"}
	}

	name := strings.TrimSpace(parts[0])

	if !strings.HasSuffix(parts[1], versionsSuffix) {
		return nil, &ParseError{Line: line, Reason: "version list is not closed with \")\""}
	}
	list := strings.TrimSuffix(parts[1], versionsSuffix)

	pkg := &model.Package{Name: name}
	for _, v := range strings.Split(list, versionSeparator) {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, &ParseError{Line: line, Reason: "empty version entry"}
		}
		pkg.Versions = append(pkg.Versions, v)
	}

	return pkg, nil
}
