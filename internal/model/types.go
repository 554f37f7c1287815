package model

// DefaultLabels is the Label Set in the model's output index order.
var DefaultLabels = []string{"Blackheads", "Whiteheads", "Papules", "Pustules", "Nodules", "Cysts"}

type Layout string

const (
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      Layout   `json:"layout"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Label      string
	Index      int
	Confidence float32
	Scores     map[string]float32
}

type ClassificationRequest struct {
	ImageURL string `json:"image_url"`
}

type ClassificationResponse struct {
	Classification string  `json:"classification"`
	Confidence     float32 `json:"confidence"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
