package network

import (
	"testing"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeIPv4(t *testing.T) {
	info, ok := describeIPv4("192.168.1.5/24")
	require.True(t, ok)
	assert.Equal(t, "192.168.1.5", info.IP)
	assert.Equal(t, "255.255.255.0", info.Netmask)
	assert.Equal(t, "192.168.1.0/24", info.Net)

	info, ok = describeIPv4("10.1.2.3/8")
	require.True(t, ok)
	assert.Equal(t, "255.0.0.0", info.Netmask)
	assert.Equal(t, "10.0.0.0/8", info.Net)

	_, ok = describeIPv4("fe80::1/64")
	assert.False(t, ok, "IPv6 addresses are skipped")

	_, ok = describeIPv4("not-an-address")
	assert.False(t, ok)
}

func TestFirstIPv4PrefersFirstUsableAddress(t *testing.T) {
	stat := gnet.InterfaceStat{
		Name: "eth0",
		Addrs: []gnet.InterfaceAddr{
			{Addr: "fe80::dead:beef/64"},
			{Addr: "172.16.0.10/16"},
			{Addr: "172.16.0.11/16"},
		},
	}

	assert.Equal(t, "172.16.0.10/16", firstIPv4(stat))
	assert.Empty(t, firstIPv4(gnet.InterfaceStat{Name: "eth1"}))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback(gnet.InterfaceStat{Name: "lo"}))
	assert.True(t, isLoopback(gnet.InterfaceStat{Name: "lo0", Flags: []string{"up", "loopback"}}))
	assert.False(t, isLoopback(gnet.InterfaceStat{Name: "eth0", Flags: []string{"up", "broadcast"}}))
}

func TestCollectDoesNotError(t *testing.T) {
	// exercised against the host; connectivity is not guaranteed, only
	// that collection never fails outright
	_, err := Collect()
	assert.NoError(t, err)
}
