//nolint:all
package server_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/andrei-cloud/anet"

	server "github.com/modware/udfhost/internal/server"
	"github.com/modware/udfhost/pkg/wire"
)

// scriptedInvoker answers invocation requests without a loaded module.
type scriptedInvoker struct{}

func (scriptedInvoker) Invoke(
	_ context.Context,
	function string,
	args []wire.Value,
) (wire.Value, error) {
	switch function {
	case "can_drive":
		if len(args) != 1 {
			return wire.Value{}, fmt.Errorf("can_drive takes one argument")
		}
		if args[0].Kind() != wire.KindInt64 {
			return wire.Value{}, fmt.Errorf("can_drive takes an integer age")
		}

		return wire.Bool(args[0].AsInt64() >= 18), nil
	default:
		return wire.Value{}, fmt.Errorf("unknown function %s", function)
	}
}

// startTestServer starts the invocation server for testing.
func startTestServer(t *testing.T, addr string) *server.Server {
	t.Helper()

	srv, err := server.NewServer(addr, scriptedInvoker{})
	if err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			t.Fatalf("server start error: %v", err)
		}
	case <-time.After(1 * time.Second):
		// Allow some time for the server to start
	}

	time.Sleep(100 * time.Millisecond)

	return srv
}

// newTestBroker builds a single-connection anet broker against addr.
func newTestBroker(t *testing.T, addr string) (anet.Broker, func()) {
	t.Helper()

	factory := func(addr string) (anet.PoolItem, error) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			return nil, err
		}

		if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
			conn.Close()

			return nil, err
		}

		return conn, nil
	}

	pool := anet.NewPool(1, factory, addr, nil)
	broker := anet.NewBroker([]anet.Pool{pool}, 1, nil, nil)
	go broker.Start()

	return broker, func() {
		broker.Close()
		pool.Close()
	}
}

// requestFrame encodes an invocation request map.
func requestFrame(fn string, args ...wire.Value) []byte {
	return wire.EncodeValue(wire.Map(
		wire.Entry{Key: "fn", Val: wire.String(fn)},
		wire.Entry{Key: "args", Val: wire.Array(args...)},
	))
}

// TestInvocationRoundTrip verifies a well-formed frame produces an ok frame
// with the function result.
func TestInvocationRoundTrip(t *testing.T) {
	addr := "127.0.0.1:1500"
	srv := startTestServer(t, addr)
	defer srv.Stop()

	broker, done := newTestBroker(t, addr)
	defer done()

	req := requestFrame("can_drive", wire.Int64(21))
	resp, err := broker.Send(&req)
	if err != nil {
		t.Fatalf("invocation failed: %v", err)
	}

	frame, err := wire.DecodeValue(resp)
	if err != nil {
		t.Fatalf("malformed response frame: %v", err)
	}

	okVal, found := frame.Lookup("ok")
	if !found || !okVal.Equal(wire.Bool(true)) {
		t.Fatalf("expected ok response, got %s", frame)
	}

	result, found := frame.Lookup("result")
	if !found || !result.Equal(wire.Bool(true)) {
		t.Fatalf("unexpected result: %s", frame)
	}
}

// TestUnknownFunctionReply verifies unknown functions are reported in the
// response frame instead of dropping the connection.
func TestUnknownFunctionReply(t *testing.T) {
	addr := "127.0.0.1:1501"
	srv := startTestServer(t, addr)
	defer srv.Stop()

	broker, done := newTestBroker(t, addr)
	defer done()

	req := requestFrame("no_such_function")
	resp, err := broker.Send(&req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	frame, err := wire.DecodeValue(resp)
	if err != nil {
		t.Fatalf("malformed response frame: %v", err)
	}

	okVal, found := frame.Lookup("ok")
	if !found || !okVal.Equal(wire.Bool(false)) {
		t.Fatalf("expected failure response, got %s", frame)
	}

	if _, found := frame.Lookup("error"); !found {
		t.Fatalf("failure response must carry an error field: %s", frame)
	}
}

// TestMalformedFrameReply verifies the server answers garbage frames with a
// failure frame and keeps serving.
func TestMalformedFrameReply(t *testing.T) {
	addr := "127.0.0.1:1502"
	srv := startTestServer(t, addr)
	defer srv.Stop()

	broker, done := newTestBroker(t, addr)
	defer done()

	req := []byte{0xFF, 0x00, 0xFF}
	resp, err := broker.Send(&req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	frame, err := wire.DecodeValue(resp)
	if err != nil {
		t.Fatalf("malformed response frame: %v", err)
	}

	okVal, found := frame.Lookup("ok")
	if !found || !okVal.Equal(wire.Bool(false)) {
		t.Fatalf("expected failure response, got %s", frame)
	}

	// The connection must survive a malformed frame.
	good := requestFrame("can_drive", wire.Int64(16))
	resp, err = broker.Send(&good)
	if err != nil {
		t.Fatalf("follow-up request failed: %v", err)
	}
	frame, err = wire.DecodeValue(resp)
	if err != nil {
		t.Fatalf("malformed response frame: %v", err)
	}
	result, found := frame.Lookup("result")
	if !found || !result.Equal(wire.Bool(false)) {
		t.Fatalf("unexpected result: %s", frame)
	}
}
