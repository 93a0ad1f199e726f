package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPRoleGranter implements RoleGranter against the bot gateway's HTTP
// endpoint. The gateway owns the actual platform call and is required to
// be idempotent: granting an already-held role returns success.
type HTTPRoleGranter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRoleGranter creates a granter for the given gateway base URL.
func NewHTTPRoleGranter(baseURL string) *HTTPRoleGranter {
	return &HTTPRoleGranter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// grantRequest is the gateway wire format.
type grantRequest struct {
	MemberID string `json:"member_id"`
	RoleID   string `json:"role_id"`
}

// GrantRole POSTs the grant to the gateway, retrying transient failures
// with bounded backoff. A non-2xx response after retries is returned as an
// error so the finalizer can leave the portfolio in its recoverable
// approved state.
func (g *HTTPRoleGranter) GrantRole(ctx context.Context, memberID, roleID string) error {
	body, err := json.Marshal(grantRequest{MemberID: memberID, RoleID: roleID})
	if err != nil {
		return fmt.Errorf("failed to marshal grant request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/roles/grant", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("gateway returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			// Client errors won't heal on retry
			return backoff.Permanent(fmt.Errorf("gateway rejected grant with %d", resp.StatusCode))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("role grant for member %s failed: %w", memberID, err)
	}

	return nil
}
