// Package oauth provides the loopback redirect listener and browser utilities.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// Ensure Listener implements the interface.
var _ driven.RedirectListener = (*Listener)(nil)

// shutdownGrace bounds how long an in-progress page write may delay
// releasing the port.
const shutdownGrace = 2 * time.Second

// Listener captures authorization redirects on a fixed loopback address.
// Each ListenOnce call binds the port afresh and releases it before
// returning, so successive attempts for different providers never share
// a socket or a result.
type Listener struct {
	settings domain.RedirectSettings
}

// NewListener creates a redirect listener.
func NewListener(settings domain.RedirectSettings) *Listener {
	return &Listener{settings: settings}
}

// RedirectURI returns the redirect URI for this listener.
func (l *Listener) RedirectURI() string {
	return l.settings.URI()
}

// ListenOnce binds the redirect port and waits for one callback, the
// configured timeout, or ctx cancellation.
func (l *Listener) ListenOnce(ctx context.Context, expectedState string, ready func()) (string, error) {
	if l.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.settings.Timeout)
		defer cancel()
	}

	addr := l.settings.Addr()
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", domain.NewAuthError(domain.AuthErrorTransport, "", fmt.Errorf("bind %s: %w", addr, err))
	}

	cb := newCallback(expectedState)
	mux := http.NewServeMux()
	mux.Handle(l.settings.Path, cb)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	done := make(chan struct{})
	var serveErr error
	go func() {
		defer close(done)
		serveErr = srv.Serve(ln)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
		<-done
		logger.Debug("redirect listener on %s released", addr)
	}()

	logger.Debug("redirect listener bound on %s", addr)
	if ready != nil {
		ready()
	}

	select {
	case res := <-cb.result:
		return res.Code, res.Err
	case <-done:
		return "", domain.NewAuthError(domain.AuthErrorTransport, "", fmt.Errorf("serve %s: %w", addr, serveErr))
	case <-ctx.Done():
		return "", domain.NewAuthError(domain.AuthErrorTimeout, "", ctx.Err())
	}
}

// callback handles the redirect for a single attempt. The first request on
// the callback path resolves it; later requests are refused.
type callback struct {
	expectedState string
	result        chan domain.CallbackResult

	mu       sync.Mutex
	resolved bool
}

func newCallback(expectedState string) *callback {
	return &callback{
		expectedState: expectedState,
		result:        make(chan domain.CallbackResult, 1),
	}
}

// resolve delivers res if nothing has been delivered yet.
func (c *callback) resolve(res domain.CallbackResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return false
	}
	c.resolved = true
	c.result <- res
	return true
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		res     domain.CallbackResult
		status  = http.StatusOK
		title   = "Authorization successful!"
		message = "You can close this window and return to UnifiedHub."
	)

	switch errParam := q.Get("error"); {
	case errParam != "":
		desc := q.Get("error_description")
		res.Err = &domain.AuthError{
			Kind: domain.AuthErrorProviderDenied,
			Body: errParam,
			Err:  fmt.Errorf("oauth error: %s - %s", errParam, desc),
		}
		status = http.StatusBadRequest
		title = "Authorization failed"
		message = errParam
		if desc != "" {
			message = desc
		}
	case c.expectedState != "" && q.Get("state") != c.expectedState:
		res.Err = domain.NewAuthError(domain.AuthErrorMalformed, "", errors.New("state mismatch"))
		status = http.StatusBadRequest
		title = "Authorization failed"
		message = "Invalid state parameter."
	case q.Get("code") == "":
		res.Err = domain.NewAuthError(domain.AuthErrorMalformed, "", errors.New("no authorization code received"))
		status = http.StatusBadRequest
		title = "Authorization failed"
		message = "No authorization code was received."
	default:
		res.Code = q.Get("code")
	}

	if !c.resolve(res) {
		writePage(w, http.StatusBadRequest, "Already processed", "This authorization request has already been handled.")
		return
	}
	writePage(w, status, title, message)
}

func writePage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, resultHTML(html.EscapeString(title), html.EscapeString(message)))
}

//nolint:misspell // CSS properties use American spelling
func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>UnifiedHub - Authorization</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #2C2F33;
        }
        .container {
            text-align: center;
            background: #23272A;
            padding: 48px 64px;
            border-radius: 12px;
            box-shadow: 0 4px 24px rgba(0,0,0,0.3);
        }
        h1 {
            color: #FFFFFF;
            margin: 0 0 8px 0;
            font-size: 24px;
            font-weight: 600;
        }
        p {
            color: #99AAB5;
            margin: 0;
            font-size: 16px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, title, message)
}
