package snmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSNMPVersionString(t *testing.T) {
	require.Equal(t, "1", Version1.String())
	require.Equal(t, "2c", Version2c.String())
	require.Equal(t, "unknown", SNMPVersion(99).String())
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	require.Equal(t, Version, info.Version)
	require.NotEmpty(t, info.GoVersion)
	require.NotEmpty(t, info.OS)
	require.NotEmpty(t, info.Arch)
}
