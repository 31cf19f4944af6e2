package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type manifest struct {
	Videos []Video `yaml:"videos"`
}

// LoadManifest reads a YAML manifest of the form
//
//	videos:
//	  - id: intro
//	    title: Introduction
//	    category: Basics
//	    duration: 634
func LoadManifest(path string) ([]Video, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest decodes manifest bytes. Unknown fields are rejected.
func ParseManifest(raw []byte) ([]Video, error) {
	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: parse manifest: %w", err)
	}
	return m.Videos, nil
}
