// Package network reports the machine's primary network identity: the
// first configured interface, its IPv4 address, netmask, network in
// CIDR form, and the first MAC address.
package network

import (
	"fmt"
	stdnet "net"
	"strings"

	"github.com/pkg/errors"
	gnet "github.com/shirou/gopsutil/v3/net"
)

// Info is the network block sent to the server with every
// synchronization.
type Info struct {
	IP      string `json:"ip"`
	Netmask string `json:"netmask"`
	Net     string `json:"net"`
}

// Interfaces returns all non-loopback interfaces.
func Interfaces() ([]gnet.InterfaceStat, error) {
	stats, err := gnet.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "listing network interfaces")
	}

	out := make([]gnet.InterfaceStat, 0, len(stats))
	for _, stat := range stats {
		if isLoopback(stat) {
			continue
		}

		out = append(out, stat)
	}

	return out, nil
}

func isLoopback(stat gnet.InterfaceStat) bool {
	for _, flag := range stat.Flags {
		if strings.EqualFold(flag, "loopback") {
			return true
		}
	}

	return stat.Name == "lo"
}

// firstIPv4 returns the first IPv4 address of an interface in CIDR
// notation, or the empty string.
func firstIPv4(stat gnet.InterfaceStat) string {
	for _, addr := range stat.Addrs {
		ip, _, err := stdnet.ParseCIDR(addr.Addr)
		if err != nil || ip.To4() == nil {
			continue
		}

		return addr.Addr
	}

	return ""
}

// describeIPv4 splits an address in CIDR notation into the dotted-quad
// address, dotted-quad netmask, and network in CIDR form.
func describeIPv4(cidr string) (Info, bool) {
	ip, ipnet, err := stdnet.ParseCIDR(cidr)
	if err != nil {
		return Info{}, false
	}

	v4 := ip.To4()
	if v4 == nil {
		return Info{}, false
	}

	ones, _ := ipnet.Mask.Size()

	return Info{
		IP:      v4.String(),
		Netmask: stdnet.IP(ipnet.Mask).String(),
		Net:     fmt.Sprintf("%s/%d", ipnet.IP.String(), ones),
	}, true
}

// Collect returns the network identity of the first interface with an
// IPv4 address. Machines without connectivity yield a zero Info and no
// error.
func Collect() (Info, error) {
	stats, err := Interfaces()
	if err != nil {
		return Info{}, err
	}

	for _, stat := range stats {
		addr := firstIPv4(stat)
		if addr == "" {
			continue
		}

		if info, ok := describeIPv4(addr); ok {
			return info, nil
		}
	}

	return Info{}, nil
}

// FirstMAC returns the hardware address of the first non-loopback
// interface, upper case with separators stripped, or the empty string.
func FirstMAC() string {
	stats, err := Interfaces()
	if err != nil || len(stats) == 0 {
		return ""
	}

	mac := strings.NewReplacer(":", "", "-", "").Replace(stats[0].HardwareAddr)

	return strings.ToUpper(mac)
}
