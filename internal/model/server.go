package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type session struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func (s *session) destroy() error {
	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
	}
	if s.inputTensor != nil {
		errs = append(errs, s.inputTensor.Destroy())
	}
	if s.outputTensor != nil {
		errs = append(errs, s.outputTensor.Destroy())
	}
	return errors.Join(errs...)
}

// ErrClosed is returned by Infer once Close has been called.
var ErrClosed = errors.New("model server closed")

// Server is an ONNX Runtime Engine. Each session owns its tensor buffers, and
// a session serves one inference at a time, so the pool size bounds how many
// inferences run concurrently.
type Server struct {
	Metadata Metadata
	pool     chan *session
	closed   chan struct{}
	size     int
	once     sync.Once
}

type ServerOptions struct {
	// LibraryPath points at libonnxruntime; empty uses the library default.
	LibraryPath string
	// Sessions is the pool size; values below 1 mean 1.
	Sessions int
}

func NewServer(modelPath string, metadata Metadata, opts ServerOptions) (*Server, error) {
	if err := metadata.Validate(); err != nil {
		return nil, err
	}
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	size := max(opts.Sessions, 1)
	s := &Server{
		Metadata: metadata,
		pool:     make(chan *session, size),
		closed:   make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		sess, err := newSession(modelPath, metadata)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool <- sess
		s.size++
	}
	return s, nil
}

func newSession(modelPath string, metadata Metadata) (*session, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &session{
		session:      sess,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Infer copies input into a pooled session, runs it and returns a copy of the
// output. It blocks until a session is free or ctx is done.
func (s *Server) Infer(ctx context.Context, input Tensor) ([]float32, error) {
	if err := checkShape("input tensor", s.Metadata.InputShape, input.Shape); err != nil {
		return nil, err
	}
	if int64(len(input.Data)) != NumElements(input.Shape) {
		return nil, &ShapeError{
			What: "input data length",
			Want: []int64{NumElements(input.Shape)},
			Got:  []int64{int64(len(input.Data))},
		}
	}

	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	var sess *session
	select {
	case sess = <-s.pool:
	case <-s.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { s.pool <- sess }()

	copy(sess.inputTensor.GetData(), input.Data)
	if err := sess.session.Run(); err != nil {
		return nil, &InferenceError{Err: err}
	}
	return slices.Clone(sess.outputTensor.GetData()), nil
}

// Close rejects new inferences with ErrClosed, waits for in-flight ones,
// destroys every session and tears down the ONNX environment. Calls after the
// first are no-ops.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		var errs []error
		for i := 0; i < s.size; i++ {
			errs = append(errs, (<-s.pool).destroy())
		}
		if ort.IsInitialized() {
			errs = append(errs, ort.DestroyEnvironment())
		}
		err = errors.Join(errs...)
		slog.Info("model sessions released", "sessions", s.size)
	})
	return err
}
