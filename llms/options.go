package llms

type CallOption func(*CallOptions)

type CallOptions struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// WithModel overrides the model or deployment for a single call.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature. Zero leaves the service default.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// ApplyCallOptions folds options into a CallOptions value.
func ApplyCallOptions(options ...CallOption) CallOptions {
	opts := CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}
