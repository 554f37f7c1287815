package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/Brownie44l1/acne-api/internal/model"
)

// DecodeError reports bytes that are not a recognizable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot identify image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var interpolations = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

// ParseInterpolation maps a filter name to a resize function.
func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	interp, ok := interpolations[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown resample filter %q", name)
	}
	return interp, nil
}

// Preprocessor turns encoded image bytes into a model input tensor.
type Preprocessor struct {
	size       int
	layout     model.Layout
	interp     resize.InterpolationFunction
	autoOrient bool
}

type Option func(*Preprocessor)

// WithInterpolation sets the resize filter. Default: bicubic.
func WithInterpolation(interp resize.InterpolationFunction) Option {
	return func(p *Preprocessor) {
		p.interp = interp
	}
}

// WithAutoOrient applies the EXIF orientation tag while decoding.
func WithAutoOrient(enabled bool) Option {
	return func(p *Preprocessor) {
		p.autoOrient = enabled
	}
}

func New(size int, layout model.Layout, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		size:   size,
		layout: layout,
		interp: resize.Bicubic,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tensor decodes data and produces a [1,size,size,3] tensor (or [1,3,size,size]
// for NCHW) with channel values scaled to [0,1].
func (p *Preprocessor) Tensor(data []byte) (model.Tensor, error) {
	img, err := p.Decode(data)
	if err != nil {
		return model.Tensor{}, err
	}
	return p.FromImage(img), nil
}

func (p *Preprocessor) Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(p.autoOrient))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return img, nil
}

// FromImage resizes img and lays its RGB channels out as float32. Alpha is
// dropped without compositing.
func (p *Preprocessor) FromImage(img image.Image) model.Tensor {
	size := uint(p.size)
	resized := resize.Resize(size, size, img, p.interp)
	// Clone yields straight (non-premultiplied) 8-bit RGBA at origin (0,0).
	rgba := imaging.Clone(resized)

	width, height := rgba.Rect.Dx(), rgba.Rect.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := rgba.PixOffset(x, y)
			pixelIndex := y*width + x
			for c := 0; c < 3; c++ {
				v := float32(rgba.Pix[off+c]) / 255.0
				if p.layout == model.LayoutNCHW {
					data[c*plane+pixelIndex] = v
				} else {
					data[pixelIndex*3+c] = v
				}
			}
		}
	}

	shape := []int64{1, int64(height), int64(width), 3}
	if p.layout == model.LayoutNCHW {
		shape = []int64{1, 3, int64(height), int64(width)}
	}
	return model.Tensor{Shape: shape, Data: data}
}
