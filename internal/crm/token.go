package crm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/debriefhub/debriefhub/internal/config"
)

// expiryLeeway is subtracted from the reported token lifetime so a token is
// never used right at its expiry instant.
const expiryLeeway = 60 * time.Second

// tokenSource issues bearer tokens for one CRM system. Invalidate discards the
// cached token so the next Token call performs a fresh exchange; a 401 from
// the remote API forces this regardless of the cached expiry.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// clientCredentialsSource caches the token from an OAuth2 client-credentials
// exchange and refreshes it lazily once the leeway-adjusted expiry passes.
type clientCredentialsSource struct {
	mu     sync.Mutex
	conf   *clientcredentials.Config
	cached *oauth2.Token
	now    func() time.Time
}

func newClientCredentialsSource(creds config.CRMCredentials) *clientCredentialsSource {
	return &clientCredentialsSource{
		conf: &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       creds.Scopes,
		},
		now: time.Now,
	}
}

func (s *clientCredentialsSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.cached.Expiry.After(s.now()) {
		return s.cached.AccessToken, nil
	}

	tok, err := s.conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials exchange: %w", err)
	}

	// Apply leeway so we re-authenticate before the server-side expiry.
	if !tok.Expiry.IsZero() {
		tok.Expiry = tok.Expiry.Add(-expiryLeeway)
	}

	s.cached = tok
	return tok.AccessToken, nil
}

func (s *clientCredentialsSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}
