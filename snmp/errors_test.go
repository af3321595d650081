package snmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStatusStringTable(t *testing.T) {
	cases := map[ErrorStatus]string{
		NoError:    "No errors",
		TooBig:     "Too big",
		NoSuchName: "No such name",
		BadValue:   "Bad value",
		ReadOnly:   "Read only",
		GenErr:     "Other errors",
	}
	for status, want := range cases {
		require.Equal(t, want, status.String())
	}
}

func TestErrorStatusStringFallback(t *testing.T) {
	require.Equal(t, "Unsupported error(99)", ErrorStatus(99).String())
}

func TestSNMPErrorMessage(t *testing.T) {
	err := NewSNMPError(NoSuchName, 3)
	require.Equal(t, "snmp: No such name at index 3", err.Error())
}

func TestParseErrorMessage(t *testing.T) {
	err := newParseError("truncated frame at offset %d", 12)
	require.Equal(t, "snmp: parse error: truncated frame at offset 12", err.Error())
}
