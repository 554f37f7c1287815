package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	output []float32
	err    error
	got    Tensor
	closed int
}

func (e *stubEngine) Infer(ctx context.Context, input Tensor) ([]float32, error) {
	e.got = input
	return e.output, e.err
}

func (e *stubEngine) Close() error {
	e.closed++
	return nil
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name    string
		in      []float32
		wantIdx int
		wantVal float32
	}{
		{"single", []float32{0.3}, 0, 0.3},
		{"max first", []float32{0.9, 0.05, 0.05}, 0, 0.9},
		{"max last", []float32{0.1, 0.2, 0.7}, 2, 0.7},
		{"tie keeps first", []float32{0.1, 0.45, 0.45}, 1, 0.45},
		{"negative", []float32{-3, -1, -2}, 1, -1},
		{"empty", nil, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, val := Argmax(tt.in)
			assert.Equal(t, tt.wantIdx, idx)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}

func TestClassify(t *testing.T) {
	engine := &stubEngine{output: []float32{0.61, 0.1, 0.09, 0.1, 0.05, 0.05}}
	c := NewClassifier(engine, DefaultLabels)
	input := Tensor{Shape: []int64{1, 224, 224, 3}, Data: make([]float32, 224*224*3)}

	pred, err := c.Classify(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "Blackheads", pred.Label)
	assert.Equal(t, 0, pred.Index)
	assert.Equal(t, float32(0.61), pred.Confidence, "confidence is the raw max score")
	assert.Len(t, pred.Scores, len(DefaultLabels))
	assert.Equal(t, float32(0.05), pred.Scores["Cysts"])
	assert.Equal(t, input.Shape, engine.got.Shape)
}

func TestClassifyEveryLabel(t *testing.T) {
	for i, want := range DefaultLabels {
		out := make([]float32, len(DefaultLabels))
		out[i] = 1
		pred, err := NewClassifier(&stubEngine{output: out}, DefaultLabels).Classify(context.Background(), Tensor{})
		require.NoError(t, err)
		assert.Equal(t, want, pred.Label)
	}
}

func TestClassifyOutputLengthMismatch(t *testing.T) {
	c := NewClassifier(&stubEngine{output: []float32{0.5, 0.5}}, DefaultLabels)

	_, err := c.Classify(context.Background(), Tensor{})

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, []int64{6}, shapeErr.Want)
	assert.Equal(t, []int64{2}, shapeErr.Got)
}

func TestClassifyEngineError(t *testing.T) {
	cause := errors.New("session run failed")
	c := NewClassifier(&stubEngine{err: &InferenceError{Err: cause}}, DefaultLabels)

	_, err := c.Classify(context.Background(), Tensor{})

	var infErr *InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "inference failed")
}

func TestClassifierCloseReleasesEngine(t *testing.T) {
	engine := &stubEngine{}
	c := NewClassifier(engine, DefaultLabels)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, DefaultLabels, c.Labels())
}
