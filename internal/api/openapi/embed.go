// SPDX-License-Identifier: MIT

package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	oasyaml "github.com/oasdiff/yaml"
)

//go:embed openapi.yaml
var embeddedSpec []byte

// LoadEmbedded parses and validates the document built into the binary, so
// a deployment never needs to ship openapi.yaml as a separate artifact.
func LoadEmbedded() (*Document, error) {
	var probe map[string]any
	if err := oasyaml.Unmarshal(embeddedSpec, &probe); err != nil {
		return nil, fmt.Errorf("openapi: embedded spec is not valid YAML: %w", err)
	}

	spec, err := openapi3.NewLoader().LoadFromData(embeddedSpec)
	if err != nil {
		return nil, fmt.Errorf("openapi: parsing embedded spec: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: embedded spec failed validation: %w", err)
	}

	return &Document{spec: spec, raw: embeddedSpec}, nil
}
