package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

// DefaultMetadata describes the bundled acne model.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, 224, 224, 3},
		OutputShape: []int64{1, int64(len(DefaultLabels))},
		Classes:     slices.Clone(DefaultLabels),
		ImageSize:   224,
		Layout:      LayoutNHWC,
		InputName:   "input",
		OutputName:  "output",
	}
}

// LoadMetadata reads the JSON sidecar at path and fills unset fields from
// DefaultMetadata. An empty path or a missing file yields the defaults.
func LoadMetadata(path string) (Metadata, error) {
	md := Metadata{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
		default:
			if err := json.Unmarshal(data, &md); err != nil {
				return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
			}
		}
	}

	def := DefaultMetadata()
	if len(md.Classes) == 0 {
		md.Classes = def.Classes
	}
	if md.ImageSize == 0 {
		md.ImageSize = def.ImageSize
	}
	if md.Layout == "" {
		md.Layout = def.Layout
	}
	md.Layout = Layout(strings.ToLower(string(md.Layout)))
	if len(md.InputShape) == 0 {
		md.InputShape = md.expectedInputShape()
	}
	if len(md.OutputShape) == 0 {
		md.OutputShape = []int64{1, int64(len(md.Classes))}
	}
	if md.InputName == "" {
		md.InputName = def.InputName
	}
	if md.OutputName == "" {
		md.OutputName = def.OutputName
	}

	if err := md.Validate(); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

func (m Metadata) expectedInputShape() []int64 {
	size := int64(m.ImageSize)
	if m.Layout == LayoutNCHW {
		return []int64{1, 3, size, size}
	}
	return []int64{1, size, size, 3}
}

// Validate checks that the input shape agrees with image size and layout, and
// that the output vector has exactly one score per class.
func (m Metadata) Validate() error {
	if m.Layout != LayoutNHWC && m.Layout != LayoutNCHW {
		return fmt.Errorf("unsupported layout %q", m.Layout)
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive, got %d", m.ImageSize)
	}
	if err := checkShape("model input", m.expectedInputShape(), m.InputShape); err != nil {
		return err
	}
	if got := NumElements(m.OutputShape); got != int64(len(m.Classes)) {
		return &ShapeError{
			What: "model output vs label set",
			Want: []int64{int64(len(m.Classes))},
			Got:  m.OutputShape,
		}
	}
	return nil
}
