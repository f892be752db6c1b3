// Package azpipeline builds the azcore HTTP pipeline shared by the Azure clients.
package azpipeline

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"golang.org/x/oauth2"

	"github.com/sevigo/searchrag/auth"
)

const (
	module  = "searchrag"
	version = "v0.1.0"

	// RequestIDHeader carries the client request id on every call.
	RequestIDHeader = "x-ms-client-request-id"
)

// Options configures a pipeline.
type Options struct {
	// TokenSource authorizes every attempt. Nil sends unauthenticated requests.
	TokenSource oauth2.TokenSource
	// RequestID is sent as RequestIDHeader when set.
	RequestID string
	// Transport overrides the HTTP transport, mostly for tests.
	Transport policy.Transporter
}

type policyFunc func(*policy.Request) (*http.Response, error)

func (f policyFunc) Do(req *policy.Request) (*http.Response, error) {
	return f(req)
}

// New returns a pipeline with retries disabled. Callers bound each call with
// a context deadline instead.
func New(o Options) runtime.Pipeline {
	var perCall, perRetry []policy.Policy
	if o.RequestID != "" {
		id := o.RequestID
		perCall = append(perCall, policyFunc(func(req *policy.Request) (*http.Response, error) {
			req.Raw().Header.Set(RequestIDHeader, id)
			return req.Next()
		}))
	}
	if o.TokenSource != nil {
		perRetry = append(perRetry, auth.NewBearerPolicy(o.TokenSource))
	}

	return runtime.NewPipeline(module, version, runtime.PipelineOptions{
		PerCall:  perCall,
		PerRetry: perRetry,
	}, &policy.ClientOptions{
		Retry:     policy.RetryOptions{MaxRetries: -1},
		Transport: o.Transport,
	})
}
