package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	sectionRepository       = "repository-configuration"
	sectionPackage          = "package-configuration"
	sectionPreviousRevision = "previous-revision"
)

// bodySchema constrains the sections of a request body; %s is the list of
// required sections
const bodySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": %s,
  "properties": {
    "repository-configuration": {"$ref": "#/$defs/configuration"},
    "package-configuration": {"$ref": "#/$defs/configuration"},
    "previous-revision": {
      "type": "object",
      "required": ["revision"],
      "properties": {"revision": {"type": "string"}}
    }
  },
  "$defs": {
    "configuration": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {"value": {"type": ["string", "null"]}}
      }
    }
  }
}`

// Configuration is a decoded key/value configuration section
type Configuration map[string]string

// Get returns the value of key, or "" if it is absent
func (c Configuration) Get(key string) string {
	return c[key]
}

type field struct {
	Value *string `json:"value"`
}

type previousRevision struct {
	Revision string `json:"revision"`
}

// requestBody is the decoded input of a request
type requestBody struct {
	Repository       Configuration
	Package          Configuration
	PreviousRevision string
}

type rawBody struct {
	Repository       map[string]field  `json:"repository-configuration"`
	Package          map[string]field  `json:"package-configuration"`
	PreviousRevision *previousRevision `json:"previous-revision"`
}

var (
	schemaMu sync.Mutex
	schemas  = make(map[RequestKind]*jsonschema.Schema)
)

// decodeBody validates and decodes the body of a request of kind k
func decodeBody(k RequestKind, body []byte) (*requestBody, error) {
	sections := k.sections()
	if len(sections) == 0 {
		return &requestBody{}, nil
	}

	schema, err := schemaFor(k)
	if err != nil {
		return nil, err
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	var raw rawBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	decoded := &requestBody{
		Repository: flatten(raw.Repository),
		Package:    flatten(raw.Package),
	}
	if raw.PreviousRevision != nil {
		decoded.PreviousRevision = raw.PreviousRevision.Revision
	}
	return decoded, nil
}

func flatten(fields map[string]field) Configuration {
	cfg := make(Configuration, len(fields))
	for key, f := range fields {
		if f.Value != nil {
			cfg[key] = *f.Value
		}
	}
	return cfg
}

func schemaFor(k RequestKind) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if s, ok := schemas[k]; ok {
		return s, nil
	}

	required, err := json.Marshal(k.sections())
	if err != nil {
		return nil, err
	}
	url := "mem://protocol/" + strings.ReplaceAll(k.String(), "-", "_") + ".json"
	s, err := jsonschema.CompileString(url, fmt.Sprintf(bodySchema, required))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", k, err)
	}
	schemas[k] = s
	return s, nil
}
