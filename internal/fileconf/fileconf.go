// Package fileconf decodes the YAML/JSON registry files the harvester reads.
package fileconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type unmarshalFn func([]byte, any) error

var decoders = []struct {
	name string
	ext  string
	fn   unmarshalFn
}{
	{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
	{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
	{name: "json", ext: ".json", fn: json.Unmarshal},
}

// Read loads path and decodes it into out based on the file extension.
func Read(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Decode(raw, filepath.Ext(path), out)
}

// Decode unmarshals data into out. An empty ext tries YAML, then JSON.
func Decode(data []byte, ext string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if err := d.fn(data, out); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", d.name, err))
			continue
		}
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("extension %q not recognized (expected YAML or JSON)", ext)
	}
	return errors.Join(errs...)
}
