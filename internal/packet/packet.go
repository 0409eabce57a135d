// Package packet builds the IPv4/UDP probes injected into the TUN device and
// decodes whatever the kernel routes back out of it.
package packet

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	DefaultTTL = 64
	DefaultID  = 1
)

var ErrNotIPv4 = errors.New("probe endpoints must be ipv4")

// Probe describes one IPv4/UDP datagram.
type Probe struct {
	Src     netip.Addr
	Dst     netip.Addr
	SrcPort uint16
	DstPort uint16
	TTL     uint8
	ID      uint16
	Payload []byte
}

func NewProbe(src, dst netip.Addr, srcPort, dstPort uint16, payload []byte) Probe {
	return Probe{
		Src:     src,
		Dst:     dst,
		SrcPort: srcPort,
		DstPort: dstPort,
		TTL:     DefaultTTL,
		ID:      DefaultID,
		Payload: payload,
	}
}

func (p Probe) String() string {
	return fmt.Sprintf("%s > %s udp len=%d",
		netip.AddrPortFrom(p.Src, p.SrcPort), netip.AddrPortFrom(p.Dst, p.DstPort), len(p.Payload))
}

// Build serializes the probe into wire bytes with lengths and checksums
// filled in.
func Build(p Probe) ([]byte, error) {
	if !p.Src.Is4() || !p.Dst.Is4() {
		return nil, fmt.Errorf("%w: %s > %s", ErrNotIPv4, p.Src, p.Dst)
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      p.TTL,
		Id:       p.ID,
		SrcIP:    net.IP(p.Src.AsSlice()),
		DstIP:    net.IP(p.Dst.AsSlice()),
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(p.SrcPort),
		DstPort: layers.UDPPort(p.DstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, fmt.Errorf("udp checksum layer: %w", err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload(p.Payload)); err != nil {
		return nil, fmt.Errorf("serialize probe: %w", err)
	}
	return buf.Bytes(), nil
}
