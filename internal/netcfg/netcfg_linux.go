//go:build linux

package netcfg

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/vishvananda/netlink"
)

func ConfigureInterface(cfg InterfaceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	link, err := netlink.LinkByName(cfg.Name)
	if err != nil {
		return fmt.Errorf("link %s: %w", cfg.Name, err)
	}
	if cfg.MTU > 0 {
		if err := netlink.LinkSetMTU(link, cfg.MTU); err != nil {
			return fmt.Errorf("set mtu: %w", err)
		}
	}
	if cfg.Address != "" {
		addr, err := netlink.ParseAddr(cfg.Address)
		if err != nil {
			return fmt.Errorf("parse addr: %w", err)
		}
		if err := netlink.AddrReplace(link, addr); err != nil {
			return fmt.Errorf("addr replace: %w", err)
		}
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("link up: %w", err)
	}
	return nil
}

func AddRoutes(ifName string, routes []Route) error {
	link, err := netlink.LinkByName(ifName)
	if err != nil {
		return fmt.Errorf("link %s: %w", ifName, err)
	}
	for _, r := range routes {
		route, err := buildRoute(link, r)
		if err != nil {
			return err
		}
		if err := netlink.RouteReplace(route); err != nil {
			return fmt.Errorf("route add %s: %w", route.Dst, err)
		}
	}
	return nil
}

// DeleteRoutes removes routes added by AddRoutes. Routes that are already
// gone, e.g. because the interface was closed first, are ignored.
func DeleteRoutes(ifName string, routes []Route) error {
	link, err := netlink.LinkByName(ifName)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("link %s: %w", ifName, err)
	}
	for _, r := range routes {
		route, err := buildRoute(link, r)
		if err != nil {
			return err
		}
		if err := netlink.RouteDel(route); err != nil && !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("route del %s: %w", route.Dst, err)
		}
	}
	return nil
}

func buildRoute(link netlink.Link, r Route) (*netlink.Route, error) {
	dst, gw, err := r.prefix()
	if err != nil {
		return nil, err
	}
	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst: &net.IPNet{
			IP:   net.IP(dst.Addr().AsSlice()),
			Mask: net.CIDRMask(dst.Bits(), dst.Addr().BitLen()),
		},
	}
	if gw.IsValid() {
		route.Gw = net.IP(gw.AsSlice())
	}
	return route, nil
}
