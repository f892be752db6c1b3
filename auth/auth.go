// Package auth turns an Azure identity into bearer tokens for the search and
// completion clients.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/oauth2"
)

// Token audiences.
const (
	CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
	SearchScope            = "https://search.azure.com/.default"
)

// ErrAuthentication marks credential construction and token issuance failures.
var ErrAuthentication = errors.New("auth: authentication failed")

// NewDefaultCredential builds the default Azure credential chain
// (environment, workload identity, managed identity, Azure CLI, ...).
func NewDefaultCredential(opts *azidentity.DefaultAzureCredentialOptions) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return cred, nil
}

// credentialSource adapts an azcore credential to oauth2.TokenSource for one
// scope and one context.
type credentialSource struct {
	ctx   context.Context
	cred  azcore.TokenCredential
	scope string
}

func (s credentialSource) Token() (*oauth2.Token, error) {
	tok, err := s.cred.GetToken(s.ctx, policy.TokenRequestOptions{Scopes: []string{s.scope}})
	if err != nil {
		return nil, fmt.Errorf("%w: token for %s: %w", ErrAuthentication, s.scope, err)
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresOn,
	}, nil
}

// TokenSource issues bearer tokens for one scope. A token is reused until it
// is about to expire.
type TokenSource struct {
	cred  azcore.TokenCredential
	scope string

	mu  sync.Mutex
	tok *oauth2.Token
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource returns a token source for scope backed by cred.
func NewTokenSource(cred azcore.TokenCredential, scope string) *TokenSource {
	return &TokenSource{cred: cred, scope: scope}
}

// Token implements oauth2.TokenSource without a deadline.
func (s *TokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext returns the cached token or fetches a new one under ctx.
func (s *TokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := oauth2.ReuseTokenSource(s.tok, credentialSource{ctx: ctx, cred: s.cred, scope: s.scope}).Token()
	if err != nil {
		return nil, err
	}
	s.tok = tok
	return tok, nil
}

// contextTokenSource is a token source that can honor a request context.
type contextTokenSource interface {
	TokenContext(ctx context.Context) (*oauth2.Token, error)
}

type bearerPolicy struct {
	src oauth2.TokenSource
}

// NewBearerPolicy returns a pipeline policy that sets the Authorization
// header from src on every attempt. Sources with a TokenContext method fetch
// under the request context.
func NewBearerPolicy(src oauth2.TokenSource) policy.Policy {
	return bearerPolicy{src: src}
}

func (p bearerPolicy) Do(req *policy.Request) (*http.Response, error) {
	var (
		tok *oauth2.Token
		err error
	)
	if cs, ok := p.src.(contextTokenSource); ok {
		tok, err = cs.TokenContext(req.Raw().Context())
	} else {
		tok, err = p.src.Token()
	}
	if err != nil {
		if !errors.Is(err, ErrAuthentication) {
			err = fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return nil, err
	}
	tok.SetAuthHeader(req.Raw())
	return req.Next()
}
