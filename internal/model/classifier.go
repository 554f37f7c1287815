package model

import (
	"context"
	"log/slog"
)

// Engine runs a model forward pass. Implementations must be safe for
// concurrent use.
type Engine interface {
	Infer(ctx context.Context, input Tensor) ([]float32, error)
	Close() error
}

// Classifier maps engine output to a label from a fixed, ordered label set.
type Classifier struct {
	engine Engine
	labels []string
}

func NewClassifier(engine Engine, labels []string) *Classifier {
	return &Classifier{engine: engine, labels: labels}
}

func (c *Classifier) Labels() []string {
	return c.labels
}

// Close releases the underlying engine.
func (c *Classifier) Close() error {
	return c.engine.Close()
}

// Classify runs input through the engine and returns the arg-max label. The
// confidence is the raw maximum score, not renormalized.
func (c *Classifier) Classify(ctx context.Context, input Tensor) (*Prediction, error) {
	output, err := c.engine.Infer(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(output) != len(c.labels) {
		return nil, &ShapeError{
			What: "prediction vector",
			Want: []int64{int64(len(c.labels))},
			Got:  []int64{int64(len(output))},
		}
	}

	idx, val := Argmax(output)
	scores := make(map[string]float32, len(output))
	for i, v := range output {
		scores[c.labels[i]] = v
	}
	slog.DebugContext(ctx, "prediction scores", "scores", scores)

	return &Prediction{
		Label:      c.labels[idx],
		Index:      idx,
		Confidence: val,
		Scores:     scores,
	}, nil
}

// Argmax returns the index and value of the largest element. Ties resolve to
// the first index. It returns (-1, 0) for an empty slice.
func Argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	maxIdx := 0
	maxVal := v[0]
	for i, val := range v[1:] {
		if val > maxVal {
			maxVal = val
			maxIdx = i + 1
		}
	}
	return maxIdx, maxVal
}
