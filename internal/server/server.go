package server

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/rs/zerolog/log"

	"github.com/modware/udfhost/internal/host"
	"github.com/modware/udfhost/internal/logging"
	"github.com/modware/udfhost/pkg/wire"
)

// Invoker executes one function call against a loaded module.
type Invoker interface {
	Invoke(ctx context.Context, function string, args []wire.Value) (wire.Value, error)
}

// PoolInvoker serves invocations from a pool of module instances.
type PoolInvoker struct {
	Pool *host.InstancePool
}

// Invoke checks out an instance, runs the call and returns the instance to
// the pool. Poisoned instances are discarded by the pool on Put.
func (p *PoolInvoker) Invoke(
	ctx context.Context,
	function string,
	args []wire.Value,
) (wire.Value, error) {
	inst, err := p.Pool.Get(ctx)
	if err != nil {
		return wire.Value{}, fmt.Errorf("no instance available: %w", err)
	}
	defer p.Pool.Put(ctx, inst)

	return inst.Invoke(ctx, function, args)
}

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

// Server wraps the anet TCP server and routes invocation frames to a module.
type Server struct {
	address     string
	srv         *anetserver.Server
	invoker     Invoker
	activeConns int32
}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

// NewServer configures and returns the invocation server instance.
func NewServer(address string, inv Invoker) (*Server, error) {
	cfg := &anetserver.ServerConfig{
		MaxConns:        100,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0 * time.Second, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	}

	s := &Server{
		address: address,
		invoker: inv,
	}
	handler := anetserver.HandlerFunc(s.handle)
	srv, err := anetserver.NewServer(address, handler, cfg)
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Start begins listening for connections.
func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("server started")
	return s.srv.Start()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// decodeRequest parses an invocation frame. A frame is an encoded map with a
// "fn" string and an "args" array.
func decodeRequest(data []byte) (string, []wire.Value, error) {
	req, err := wire.DecodeValue(data)
	if err != nil {
		return "", nil, fmt.Errorf("malformed request frame: %w", err)
	}
	if req.Kind() != wire.KindMap {
		return "", nil, fmt.Errorf("request frame must be a map, got %s", req.Kind())
	}

	fnVal, ok := req.Lookup("fn")
	if !ok || fnVal.Kind() != wire.KindString {
		return "", nil, fmt.Errorf("request frame missing string field fn")
	}
	fn := fnVal.AsString()

	args := []wire.Value{}
	if argsVal, ok := req.Lookup("args"); ok {
		if argsVal.Kind() != wire.KindArray {
			return "", nil, fmt.Errorf("request field args must be an array, got %s", argsVal.Kind())
		}
		args = argsVal.AsArray()
	}

	return fn, args, nil
}

// okResponse builds a success frame carrying the result value.
func okResponse(result wire.Value) []byte {
	return wire.EncodeValue(wire.Map(
		wire.Entry{Key: "ok", Val: wire.Bool(true)},
		wire.Entry{Key: "result", Val: result},
	))
}

// errResponse builds a failure frame carrying the error text.
func errResponse(err error) []byte {
	return wire.EncodeValue(wire.Map(
		wire.Entry{Key: "ok", Val: wire.Bool(false)},
		wire.Entry{Key: "error", Val: wire.String(err.Error())},
	))
}

// handle decodes one invocation frame, runs it and encodes the outcome.
// Failed invocations are reported to the client in the response frame, not
// as transport errors, so the connection stays usable.
func (s *Server) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	atomic.AddInt32(&s.activeConns, 1)
	defer atomic.AddInt32(&s.activeConns, -1)

	start := time.Now()
	log.Debug().
		Str("event", "handle_start").
		Str("client_ip", client).
		Msg("starting request handling")

	fn, args, err := decodeRequest(data)
	if err != nil {
		log.Error().
			Str("event", "malformed_request").
			Str("client_ip", client).
			Err(err).
			Msg("rejecting request frame")
		return errResponse(err), nil
	}

	active := int(atomic.LoadInt32(&s.activeConns))
	logging.LogInvocation(client, fn, data, active)

	result, execErr := s.invoker.Invoke(context.Background(), fn, args)

	var resp []byte
	if execErr != nil {
		log.Error().
			Str("event", "invocation_error").
			Str("client_ip", client).
			Str("function", fn).
			Err(execErr).
			Msg("invocation failed")
		resp = errResponse(execErr)
	} else {
		resp = okResponse(result)
	}

	logging.LogResult(client, fn, resp, execErr != nil, int(atomic.LoadInt32(&s.activeConns)))

	total := time.Since(start)
	log.Debug().
		Str("event", "handle_done").
		Str("function", fn).
		Str("duration", total.String()).
		Msg("completed request handling")

	return resp, nil
}
