package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const (
	// shutdownTimeout bounds how long open HTTP streams get to drain.
	shutdownTimeout = 5 * time.Second

	// statusBacklog is how many status changes may queue before
	// notifications are dropped.
	statusBacklog = 32
)

const instructions = `UnifiedHub manages OAuth connections to Google, Discord and GitHub.
Read unifiedhub://connections for the state of every provider. connect_provider
opens the user's browser; subscribe to unifiedhub://connections/{provider} to
learn when the authorization finishes.`

// Server exposes the session directory over the Model Context Protocol.
// Clients subscribed to a connection resource are notified when its
// session changes state.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "unifiedhub",
		Version: Version,
	}, &mcp.ServerOptions{
		Instructions:       instructions,
		SubscribeHandler:   s.handleSubscribe,
		UnsubscribeHandler: s.handleUnsubscribe,
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves a single client over stdio until ctx is cancelled or the
// client goes away.
func (s *Server) Run(ctx context.Context) error {
	return s.run(ctx, &mcp.StdioTransport{})
}

func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.publishStatus(ctx) })
	g.Go(func() error {
		// The client hanging up ends the session and the status feed with it.
		defer cancel()
		return s.server.Run(ctx, transport)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// RunHTTP serves streamable HTTP clients on addr until ctx is cancelled.
// The address is bound before RunHTTP starts serving, so a port clash
// fails immediately.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp: listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.server
		}, nil),
		ReadHeaderTimeout: 10 * time.Second,
		// Open event streams end with ctx so shutdown does not wait on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.publishStatus(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: http shutdown: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("mcp: serving on http://%s", ln.Addr())
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp: serve: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// publishStatus tells subscribed clients which connection resources changed
// until ctx is done.
func (s *Server) publishStatus(ctx context.Context) error {
	changed := make(chan domain.ProviderID, statusBacklog)
	unsubscribe := s.ports.Sessions.Subscribe(func(st domain.SessionStatus) {
		select {
		case changed <- st.Provider:
		default:
			logger.Debug("mcp: status backlog full, dropped %s change", st.Provider)
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-changed:
			for _, uri := range []string{connectionsURI, connectionURI(id)} {
				err := s.server.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: uri})
				if err != nil {
					logger.Debug("mcp: notify %s: %v", uri, err)
				}
			}
		}
	}
}

// handleSubscribe accepts subscriptions to connection resources only.
func (s *Server) handleSubscribe(_ context.Context, req *mcp.SubscribeRequest) error {
	uri := req.Params.URI
	if uri != connectionsURI {
		if _, err := domain.ParseProviderID(extractProvider(uri)); err != nil {
			return mcp.ResourceNotFoundError(uri)
		}
	}
	logger.Debug("mcp: client subscribed to %s", uri)
	return nil
}

func (s *Server) handleUnsubscribe(_ context.Context, req *mcp.UnsubscribeRequest) error {
	logger.Debug("mcp: client unsubscribed from %s", req.Params.URI)
	return nil
}
