// Package netcfg brings a TUN interface up so the kernel has somewhere to
// route probe replies.
package netcfg

import (
	"fmt"
	"net/netip"
)

type InterfaceConfig struct {
	Name string
	// Address in CIDR form, e.g. 1.2.3.5/24. Empty leaves addressing alone.
	Address string
	MTU     int
}

type Route struct {
	Dest    string
	Gateway string
}

// Validate checks the addressing fields without touching the system.
func (c InterfaceConfig) Validate() error {
	if c.Address != "" {
		if _, err := netip.ParsePrefix(c.Address); err != nil {
			return fmt.Errorf("parse addr: %w", err)
		}
	}
	if c.MTU < 0 || c.MTU > 65535 {
		return fmt.Errorf("mtu out of range: %d", c.MTU)
	}
	return nil
}

func (r Route) prefix() (netip.Prefix, netip.Addr, error) {
	dst := netip.MustParsePrefix("0.0.0.0/0")
	if r.Dest != "" {
		p, err := netip.ParsePrefix(r.Dest)
		if err != nil {
			return netip.Prefix{}, netip.Addr{}, fmt.Errorf("parse route dst: %w", err)
		}
		dst = p.Masked()
	}
	var gw netip.Addr
	if r.Gateway != "" {
		a, err := netip.ParseAddr(r.Gateway)
		if err != nil {
			return netip.Prefix{}, netip.Addr{}, fmt.Errorf("parse route gw: %w", err)
		}
		gw = a
	}
	return dst, gw, nil
}
