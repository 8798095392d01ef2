// Package ingest reads batch files of item requests and pushes them into a
// core.Service. Files are parsed concurrently and applied in the order given,
// inside one service update, so a failing batch leaves the inventory as it
// was.
package ingest

import (
	"brickcore/internal/core"
	"brickcore/pkg/domain"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch is the content of one batch file.
type Batch struct {
	Source string        `json:"-" yaml:"-"`
	Items  []ItemRequest `json:"items" yaml:"items"`
}

// ItemRequest names an item by identity fields or by its inventory URL.
// Identity fields win when Num is set.
type ItemRequest struct {
	Kind        string            `json:"kind,omitempty" yaml:"kind,omitempty"` // "Part" or a page heading such as "Parts:"
	Num         string            `json:"num,omitempty" yaml:"num,omitempty"`
	Variant     int               `json:"variant,omitempty" yaml:"variant,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	Category    []string          `json:"category,omitempty" yaml:"category,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Notes       string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	Instances   []InstanceRequest `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// InstanceRequest is one occurrence. Parent is either the Ref of an earlier
// occurrence in the same batch or a full instance id already in the
// inventory.
type InstanceRequest struct {
	Ref      string `json:"ref,omitempty" yaml:"ref,omitempty"`
	Parent   string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Section  string `json:"section,omitempty" yaml:"section,omitempty"`
	Expected int    `json:"expected,omitempty" yaml:"expected,omitempty"`
	Have     int    `json:"have,omitempty" yaml:"have,omitempty"`
	Hidden   bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// FormatForPath picks the batch encoding from the file extension.
func FormatForPath(path string) (core.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return core.FormatJSON, nil
	case ".yaml", ".yml":
		return core.FormatYAML, nil
	}
	return "", fmt.Errorf("%s: unsupported batch extension", path)
}

// Parse decodes a batch, rejecting unknown fields.
func Parse(r io.Reader, format core.Format) (Batch, error) {
	var b Batch
	switch format {
	case core.FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return Batch{}, fmt.Errorf("decode json batch: %w", err)
		}
	case core.FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
			return Batch{}, fmt.Errorf("decode yaml batch: %w", err)
		}
	default:
		return Batch{}, fmt.Errorf("unknown batch format %q", format)
	}
	return b, nil
}

// ParseFile reads and decodes the batch at path.
func ParseFile(path string) (Batch, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Batch{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, err
	}
	b, err := Parse(bytes.NewReader(raw), format)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	b.Source = path
	return b, nil
}

// itemConfig converts the request, leaving parents to the caller.
func (r ItemRequest) itemConfig() (core.ItemConfig, error) {
	kind, err := domain.ParseItemKind(r.Kind)
	if err != nil {
		return core.ItemConfig{}, fmt.Errorf("%w: %v", domain.ErrInvalidItem, err)
	}
	cfg := core.ItemConfig{
		SourceURL:   strings.TrimSpace(r.URL),
		Category:    r.Category,
		Description: r.Description,
		Notes:       r.Notes,
	}
	if strings.TrimSpace(r.Num) != "" {
		cfg.Identity = domain.Identity{Num: strings.TrimSpace(r.Num), Variant: r.Variant, Kind: kind}
	}
	for _, inst := range r.Instances {
		section, err := domain.ParseSection(inst.Section)
		if err != nil {
			return core.ItemConfig{}, fmt.Errorf("%w: %v", domain.ErrInvalidItem, err)
		}
		cfg.Instances = append(cfg.Instances, core.InstanceConfig{
			Section:     section,
			ExpectedQty: inst.Expected,
			HaveQty:     inst.Have,
			Hidden:      inst.Hidden,
			Notes:       inst.Notes,
		})
	}
	return cfg, nil
}

func (r ItemRequest) label() string {
	if r.Num != "" {
		return r.Num
	}
	return r.URL
}
