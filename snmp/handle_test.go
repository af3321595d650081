package snmp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := NewHandle(WithResponseTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestSetAgentAddressRejectsEmptyHost(t *testing.T) {
	h := newTestHandle(t)
	err := h.SetAgentAddress("", 161)
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSetAgentAddressRejectsUnspecifiedHost(t *testing.T) {
	h := newTestHandle(t)
	require.ErrorIs(t, h.SetAgentAddress("0.0.0.0", 161), ErrInvalidAddress)
	require.ErrorIs(t, h.SetAgentAddress("::", 161), ErrInvalidAddress)
}

func TestSetAgentAddressRejectsInvalidPort(t *testing.T) {
	h := newTestHandle(t)
	require.ErrorIs(t, h.SetAgentAddress("192.168.1.1", 0), ErrInvalidAddress)
	require.ErrorIs(t, h.SetAgentAddress("192.168.1.1", 65536), ErrInvalidAddress)
}

func TestSetAgentAddressAcceptsValidHostPort(t *testing.T) {
	h := newTestHandle(t)
	require.NoError(t, h.SetAgentAddress("192.168.1.1", 161))
}

func TestSetResponseTimeoutRejectsNonPositive(t *testing.T) {
	h := newTestHandle(t)
	require.ErrorIs(t, h.SetResponseTimeout(0), ErrInvalidTimeout)
	require.ErrorIs(t, h.SetResponseTimeout(-time.Second), ErrInvalidTimeout)
}

func TestNewSessionRejectsNonPositiveTimeout(t *testing.T) {
	_, err := NewSession(WithResponseTimeout(0))
	require.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestHandleIDMatchesSessionID(t *testing.T) {
	h := newTestHandle(t)
	require.NotEmpty(t, h.ID())
	require.Equal(t, h.session.ID(), h.ID())
}
