package httpclient

import (
	"context"
	"errors"
	"net/http"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/logger"
)

// recovery outcomes, used as metric labels
const (
	outcomeRefreshed     = "refreshed"
	outcomeRefreshFailed = "refresh_failed"
	outcomeLost          = "lost"
	outcomeLoginRoute    = "login_route"
)

var errCredentialCleared = errors.New("credential cleared while refreshing")

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
}

// handles a 401 on a request that carried token
func (c *Client) recoverAuth(ctx context.Context, method, path string, payload []byte, contentType, token string, ro *requestOptions) (*Response, error) {
	if c.locate != nil && c.locate() == c.cfg.LoginRoute {
		c.reportLost(token, "rejected while on the login screen", method, path, true)
		return nil, &apperrors.AuthExpiredError{Reason: "rejected while on the login screen"}
	}

	if c.cfg.Policy != PolicyRefresh {
		c.reportLost(token, "credential rejected", method, path, false)
		return nil, &apperrors.AuthExpiredError{Reason: "credential rejected"}
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		c.metrics.recoveries.WithLabelValues(outcomeRefreshFailed).Inc()
		logger.Debug("token refresh failed", "method", method, "path", path, "error", err)
		c.reportLost(token, "refresh failed", method, path, false)
		return nil, &apperrors.AuthExpiredError{Reason: "refresh failed"}
	}

	// replayed exactly once
	resp, err := c.do(ctx, method, path, payload, contentType, fresh, ro)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized {
		c.reportLost(fresh, "credential rejected after refresh", method, path, false)
		return nil, &apperrors.AuthExpiredError{Reason: "credential rejected after refresh"}
	}

	if resp.Status >= http.StatusBadRequest {
		return nil, apiError(resp, ro.fallbackMessage)
	}

	return resp, nil
}

// exchanges the refresh cookie for a new access token.
// concurrent callers holding the same stale token share one exchange.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	v, err, shared := c.refreshGroup.Do(stale, func() (any, error) {
		// another flight already replaced the credential
		current := c.token()
		if current == "" {
			return "", errCredentialCleared
		}
		if current != stale {
			return current, nil
		}

		// the exchange outlives any single caller's cancellation
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		resp, err := c.do(rctx, http.MethodGet, c.cfg.RefreshPath, nil, "", "", &requestOptions{noCacheBuster: true})
		if err != nil {
			return "", err
		}

		if resp.Status >= http.StatusBadRequest {
			return "", apiError(resp, "refresh rejected")
		}

		var body refreshResponse
		if err := resp.Decode(&body); err != nil {
			return "", err
		}

		fresh := body.AccessToken
		if fresh == "" {
			fresh = body.Token
		}
		if fresh == "" {
			return "", &apperrors.MalformedResponseError{Missing: []string{"accessToken"}}
		}

		c.mu.Lock()
		src := c.creds
		c.mu.Unlock()

		if src == nil {
			return "", errCredentialCleared
		}

		if err := src.ReplaceToken(rctx, fresh); err != nil {
			return "", err
		}

		c.metrics.recoveries.WithLabelValues(outcomeRefreshed).Inc()
		logger.Info("access token refreshed")

		return fresh, nil
	})
	if err != nil {
		return "", err
	}

	if shared {
		logger.Debug("joined in-flight token refresh")
	}

	return v.(string), nil
}

// emits one AuthLostEvent per invalid credential episode.
// a token that is no longer the live credential, or was already reported, is ignored.
func (c *Client) reportLost(token, reason, method, path string, suppressRedirect bool) {
	c.mu.Lock()
	live := ""
	if c.creds != nil {
		live = c.creds.Token()
	}

	if token != live || token == c.lostToken {
		c.mu.Unlock()
		return
	}

	c.lostToken = token
	listeners := make([]func(AuthLostEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	outcome := outcomeLost
	if suppressRedirect {
		outcome = outcomeLoginRoute
	}
	c.metrics.recoveries.WithLabelValues(outcome).Inc()
	logger.Warn("authentication lost", "reason", reason, "method", method, "path", path)

	event := AuthLostEvent{Reason: reason, Method: method, Path: path, SuppressRedirect: suppressRedirect}
	for _, fn := range listeners {
		fn(event)
	}

	// once the credential changes, the same token value may start a new episode
	c.mu.Lock()
	if c.creds == nil || c.creds.Token() != token {
		c.lostToken = ""
	}
	c.mu.Unlock()
}
