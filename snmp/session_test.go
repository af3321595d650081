package snmp

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeAgent is a minimal UDP loopback agent for exercising a Session
// end to end: it decodes one request, hands it to respond, and sends
// whatever Value respond returns back to the sender.
type fakeAgent struct {
	conn *net.UDPConn
}

func startFakeAgent(t *testing.T, respond func(req Value) (Value, bool)) *fakeAgent {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	a := &fakeAgent{conn: conn}
	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			top := Decode(nil, buf[:n])
			if len(top) != 1 {
				continue
			}
			resp, ok := respond(top[0])
			if !ok {
				continue
			}
			enc, err := resp.Encode()
			if err != nil {
				continue
			}
			conn.WriteToUDP(enc, addr)
		}
	}()
	return a
}

func (a *fakeAgent) port() int {
	return a.conn.LocalAddr().(*net.UDPAddr).Port
}

func (a *fakeAgent) close() {
	a.conn.Close()
}

// buildGetResponse constructs a GET-RESPONSE Value bound to the same
// request id carried in req, with the given error status/index and
// bindings.
func buildGetResponse(req Value, version SNMPVersion, community string, status, index int64, bindings ...Value) Value {
	reqID := req.children[2].children[0]
	return Sequence(TagSequence,
		Integer(int64(version)),
		String(community),
		Sequence(TagGetResponse,
			reqID,
			Integer(status),
			Integer(index),
			Sequence(TagSequence, bindings...),
		),
	)
}

func TestSessionGetValuesRoundTrip(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.1.0")

	agent := startFakeAgent(t, func(req Value) (Value, bool) {
		reqVarbinds := req.children[2].children[3].children
		require.Len(t, reqVarbinds, 1)
		respBinding := Sequence(TagSequence, OIDValue(oid), String("a fake agent"))
		return buildGetResponse(req, Version2c, "public", 0, 0, respBinding), true
	})
	defer agent.close()

	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(agent.port()),
		WithResponseTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer h.Close()

	jobID := h.RequestValue(oid)
	select {
	case ev := <-h.Events():
		resp, ok := ev.(ResponseEvent)
		require.True(t, ok)
		require.Equal(t, jobID, resp.JobID)
		require.Len(t, resp.Values, 1)
		s, ok := resp.Values[0].AsText()
		require.True(t, ok)
		require.Equal(t, "a fake agent", s)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for response event")
	}
}

func TestSessionSetValueRoundTrip(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.4.0")

	agent := startFakeAgent(t, func(req Value) (Value, bool) {
		binding := Sequence(TagSequence, OIDValue(oid), String("admin@example.com"))
		return buildGetResponse(req, Version2c, "private", 0, 0, binding), true
	})
	defer agent.close()

	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(agent.port()),
		WithResponseTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer h.Close()

	jobID := h.SetValue("private", oid, String("admin@example.com"))
	select {
	case ev := <-h.Events():
		resp, ok := ev.(ResponseEvent)
		require.True(t, ok)
		require.Equal(t, jobID, resp.JobID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for response event")
	}
}

func TestSessionAgentErrorFailsJob(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.99.0")

	agent := startFakeAgent(t, func(req Value) (Value, bool) {
		return buildGetResponse(req, Version2c, "public", int64(NoSuchName), 1), true
	})
	defer agent.close()

	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(agent.port()),
		WithResponseTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer h.Close()

	jobID := h.RequestValue(oid)
	select {
	case ev := <-h.Events():
		fail, ok := ev.(FailureEvent)
		require.True(t, ok)
		require.Equal(t, jobID, fail.JobID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for failure event")
	}
}

func TestSessionRetriesThenFailsOnTimeout(t *testing.T) {
	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(1), // nothing listens here; every datagram is simply dropped by the OS
		WithResponseTimeout(5*time.Millisecond),
	)
	require.NoError(t, err)
	defer h.Close()

	jobID := h.RequestValue(MustParseOID("1.3.6.1.2.1.1.1.0"))
	select {
	case ev := <-h.Events():
		fail, ok := ev.(FailureEvent)
		require.True(t, ok)
		require.Equal(t, jobID, fail.JobID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retries to exhaust")
	}

	snap := h.Metrics()
	require.GreaterOrEqual(t, snap.Retries, int64(5))
}

func TestSessionQueueOverflowDropsSilently(t *testing.T) {
	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(1),
		WithResponseTimeout(time.Hour), // long enough that nothing times out mid-test
	)
	require.NoError(t, err)
	defer h.Close()

	// One becomes current, maxQueueDepth more fill the queue exactly,
	// and one final job past that is dropped.
	h.RequestValue(MustParseOID("1.3.6.1.2.1.1.1.0"))
	for i := 0; i < maxQueueDepth; i++ {
		h.RequestValue(MustParseOID("1.3.6.1.2.1.1.1.0"))
	}
	droppedID := h.RequestValue(MustParseOID("1.3.6.1.2.1.1.1.0"))
	require.NotZero(t, droppedID, "a dropped job still gets a syntactically valid id")

	select {
	case ev := <-h.Events():
		if fail, ok := ev.(FailureEvent); ok {
			require.NotEqual(t, droppedID, fail.JobID, "the dropped job must never fire an event")
		}
	case <-time.After(20 * time.Millisecond):
	}

	snap := h.Metrics()
	require.Equal(t, int64(1), snap.QueueDrops)
}

func TestSessionIgnoresMismatchedRequestID(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.1.0")

	agent := startFakeAgent(t, func(req Value) (Value, bool) {
		// Reply with a request id that can never match the one just
		// sent: the session samples ids from [1, 0x7FFF], so 0 never
		// occurs on the wire.
		resp := Sequence(TagSequence,
			Integer(int64(Version2c)),
			String("public"),
			Sequence(TagGetResponse,
				Integer(0),
				Integer(0),
				Integer(0),
				Sequence(TagSequence),
			),
		)
		return resp, true
	})
	defer agent.close()

	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(agent.port()),
		WithResponseTimeout(2*time.Second),
	)
	require.NoError(t, err)
	defer h.Close()

	h.RequestValue(oid)

	select {
	case ev := <-h.Events():
		t.Fatalf("expected no event for a mismatched request id, got %#v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSessionRetryRequestIDsDiffer(t *testing.T) {
	var mu sync.Mutex
	var seen []int64

	agent := startFakeAgent(t, func(req Value) (Value, bool) {
		reqID, _ := req.children[2].children[0].AsI64()
		mu.Lock()
		seen = append(seen, reqID)
		mu.Unlock()
		// Never reply, forcing the session to retry and resample a
		// fresh request id each time.
		return Value{}, false
	})
	defer agent.close()

	h, err := NewHandle(
		WithAgentAddress("127.0.0.1"),
		WithAgentPort(agent.port()),
		WithResponseTimeout(5*time.Millisecond),
	)
	require.NoError(t, err)
	defer h.Close()

	jobID := h.RequestValue(MustParseOID("1.3.6.1.2.1.1.1.0"))
	select {
	case ev := <-h.Events():
		fail, ok := ev.(FailureEvent)
		require.True(t, ok)
		require.Equal(t, jobID, fail.JobID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retries to exhaust")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2, "agent should have observed at least two attempts")
	distinct := map[int64]bool{}
	for _, id := range seen {
		distinct[id] = true
	}
	require.Greater(t, len(distinct), 1, "retries must resample the request id rather than resend the same one")
}

func TestSessionIDsAreUnique(t *testing.T) {
	a, err := NewSession(WithResponseTimeout(time.Second))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSession(WithResponseTimeout(time.Second))
	require.NoError(t, err)
	defer b.Close()

	require.NotEmpty(t, a.ID())
	require.NotEqual(t, a.ID(), b.ID())
}
