package packet

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Summary is the decoded view of a packet read back from the device.
type Summary struct {
	Version  int
	Src      netip.Addr
	Dst      netip.Addr
	Protocol layers.IPProtocol
	SrcPort  uint16
	DstPort  uint16
	ICMPType uint8
	ICMPCode uint8
	Length   int
	Payload  []byte
}

// Decode parses an IPv4 or IPv6 packet. The returned Payload aliases raw.
func Decode(raw []byte) (Summary, error) {
	ver, err := Version(raw)
	if err != nil {
		return Summary{}, err
	}
	var first gopacket.LayerType
	switch ver {
	case 4:
		first = layers.LayerTypeIPv4
	case 6:
		first = layers.LayerTypeIPv6
	default:
		return Summary{}, fmt.Errorf("%w: %d", ErrUnknownIP, ver)
	}
	pkt := gopacket.NewPacket(raw, first, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	s := Summary{Version: ver, Length: len(raw)}

	switch ip := pkt.NetworkLayer().(type) {
	case *layers.IPv4:
		s.Src, s.Dst = addr(ip.SrcIP), addr(ip.DstIP)
		s.Protocol = ip.Protocol
	case *layers.IPv6:
		s.Src, s.Dst = addr(ip.SrcIP), addr(ip.DstIP)
		s.Protocol = ip.NextHeader
	default:
		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			return Summary{}, fmt.Errorf("decode ipv%d: %w", ver, errLayer.Error())
		}
		return Summary{}, ErrPacketTooShort
	}

	switch l := pkt.TransportLayer().(type) {
	case *layers.UDP:
		s.SrcPort, s.DstPort = uint16(l.SrcPort), uint16(l.DstPort)
		s.Payload = l.Payload
	case *layers.TCP:
		s.SrcPort, s.DstPort = uint16(l.SrcPort), uint16(l.DstPort)
		s.Payload = l.Payload
	}
	if l, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
		s.ICMPType, s.ICMPCode = l.TypeCode.Type(), l.TypeCode.Code()
		s.Payload = l.Payload
	}
	if l, ok := pkt.Layer(layers.LayerTypeICMPv6).(*layers.ICMPv6); ok {
		s.ICMPType, s.ICMPCode = l.TypeCode.Type(), l.TypeCode.Code()
		s.Payload = l.Payload
	}
	// Application payloads (DNS on port 53 and the like) may fail to parse;
	// only a broken transport header makes the packet undecodable.
	if errLayer := pkt.ErrorLayer(); errLayer != nil && pkt.TransportLayer() == nil {
		return s, fmt.Errorf("decode %s: %w", s.Protocol, errLayer.Error())
	}
	return s, nil
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ipv%d %s ", s.Version, s.Protocol)
	switch s.Protocol {
	case layers.IPProtocolUDP, layers.IPProtocolTCP:
		fmt.Fprintf(&b, "%s > %s", netip.AddrPortFrom(s.Src, s.SrcPort), netip.AddrPortFrom(s.Dst, s.DstPort))
	case layers.IPProtocolICMPv4, layers.IPProtocolICMPv6:
		fmt.Fprintf(&b, "%s > %s type=%d code=%d", s.Src, s.Dst, s.ICMPType, s.ICMPCode)
	default:
		fmt.Fprintf(&b, "%s > %s", s.Src, s.Dst)
	}
	fmt.Fprintf(&b, " len=%d payload=%d", s.Length, len(s.Payload))
	return b.String()
}

func addr(ip net.IP) netip.Addr {
	a, _ := netip.AddrFromSlice(ip)
	return a.Unmap()
}
