package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	shutdownTimeoutConstant       = 30 * time.Second
	readHeaderTimeoutConstant     = 10 * time.Second
	servingMessageConstant        = "Serving"
	stoppedMessageConstant        = "Stopped serving"
	logFieldAddressConstant       = "address"
	listenNetworkConstant         = "tcp"
	shutdownFailedMessageConstant = "Graceful shutdown failed"
)

// Server runs the HTTP front end until its context is cancelled.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer binds handler to the configured listen address.
func NewServer(configuration Configuration, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitized := configuration.Sanitize()
	return &Server{
		httpServer: &http.Server{
			Addr:              sanitized.ListenAddress,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeoutConstant,
		},
		logger: logger,
	}
}

// ListenAndServe listens on the configured address and serves until executionContext ends.
func (server *Server) ListenAndServe(executionContext context.Context) error {
	listener, listenError := net.Listen(listenNetworkConstant, server.httpServer.Addr)
	if listenError != nil {
		return listenError
	}
	return server.Serve(executionContext, listener)
}

// Serve accepts connections on listener until executionContext ends, then shuts down gracefully.
// In-flight workflows are given a bounded time to finish.
func (server *Server) Serve(executionContext context.Context, listener net.Listener) error {
	server.httpServer.BaseContext = func(net.Listener) context.Context {
		return context.WithoutCancel(executionContext)
	}

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- server.httpServer.Serve(listener)
	}()
	server.logger.Info(servingMessageConstant, zap.String(logFieldAddressConstant, listener.Addr().String()))

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-executionContext.Done():
	}

	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeoutConstant)
	defer cancelShutdown()
	if shutdownError := server.httpServer.Shutdown(shutdownContext); shutdownError != nil {
		server.logger.Warn(shutdownFailedMessageConstant, zap.Error(shutdownError))
		return shutdownError
	}
	server.logger.Info(stoppedMessageConstant, zap.String(logFieldAddressConstant, listener.Addr().String()))
	return nil
}
