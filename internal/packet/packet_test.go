package packet

import (
	"bytes"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	probeSrc = netip.MustParseAddr("1.2.3.5")
	probeDst = netip.MustParseAddr("5.6.7.9")
)

func TestBuildHelloWorld(t *testing.T) {
	pkt, err := Build(NewProbe(probeSrc, probeDst, 6789, 443, []byte("Hello world")))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []byte{
		69, 0, 0, 39, 0, 1, 0, 0, 64, 17, 106, 176, 1, 2, 3, 5, 5, 6, 7, 9,
		26, 133, 1, 187, 0, 19, 97, 164,
		'H', 'e', 'l', 'l', 'o', ' ', 'w', 'o', 'r', 'l', 'd',
	}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("wire bytes mismatch:\n got %v\nwant %v", pkt, want)
	}
}

func TestBuildHiAgain(t *testing.T) {
	pkt, err := Build(NewProbe(probeSrc, probeDst, 6789, 443, []byte("Hi again")))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []byte{
		69, 0, 0, 36, 0, 1, 0, 0, 64, 17, 106, 179, 1, 2, 3, 5, 5, 6, 7, 9,
		26, 133, 1, 187, 0, 16, 153, 222,
		'H', 'i', ' ', 'a', 'g', 'a', 'i', 'n',
	}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("wire bytes mismatch:\n got %v\nwant %v", pkt, want)
	}
}

func TestBuildRejectsIPv6(t *testing.T) {
	_, err := Build(NewProbe(netip.MustParseAddr("::1"), probeDst, 1, 2, nil))
	if !errors.Is(err, ErrNotIPv4) {
		t.Fatalf("expected ErrNotIPv4, got %v", err)
	}
	_, err = Build(Probe{Src: probeSrc})
	if !errors.Is(err, ErrNotIPv4) {
		t.Fatalf("expected ErrNotIPv4 for zero dst, got %v", err)
	}
}

func TestDecodeUDP(t *testing.T) {
	pkt, err := Build(NewProbe(probeSrc, probeDst, 6789, 443, []byte("Hello world")))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	s, err := Decode(pkt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Version != 4 || s.Protocol != layers.IPProtocolUDP {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Src != probeSrc || s.Dst != probeDst || s.SrcPort != 6789 || s.DstPort != 443 {
		t.Fatalf("unexpected endpoints: %s", s)
	}
	if s.Length != 39 || string(s.Payload) != "Hello world" {
		t.Fatalf("unexpected length/payload: %d %q", s.Length, s.Payload)
	}
	if got := s.String(); got != "ipv4 UDP 1.2.3.5:6789 > 5.6.7.9:443 len=39 payload=11" {
		t.Fatalf("string: %s", got)
	}
}

func TestDecodeICMPv4(t *testing.T) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		SrcIP:    net.IPv4(5, 6, 7, 9),
		DstIP:    net.IPv4(1, 2, 3, 5),
		Protocol: layers.IPProtocolICMPv4,
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodePort)}
	raw := serialize(t, ip, icmp, gopacket.Payload([]byte("orig")))

	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Protocol != layers.IPProtocolICMPv4 || s.ICMPType != 3 || s.ICMPCode != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Src != probeDst || s.Dst != probeSrc {
		t.Fatalf("unexpected endpoints: %s", s)
	}
}

func TestDecodeTCPv6(t *testing.T) {
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP("fd00::1"),
		DstIP:      net.ParseIP("fd00::2"),
	}
	tcp := &layers.TCP{SrcPort: 443, DstPort: 40000, SYN: true, ACK: true, Window: 1024}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("checksum layer: %v", err)
	}
	raw := serialize(t, ip, tcp)

	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Version != 6 || s.Protocol != layers.IPProtocolTCP {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Src != netip.MustParseAddr("fd00::1") || s.SrcPort != 443 || s.DstPort != 40000 {
		t.Fatalf("unexpected endpoints: %s", s)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrPacketTooShort) {
		t.Fatalf("expected ErrPacketTooShort, got %v", err)
	}
	if _, err := Decode([]byte{0x50, 0, 0}); !errors.Is(err, ErrUnknownIP) {
		t.Fatalf("expected ErrUnknownIP, got %v", err)
	}
	if _, err := Decode([]byte{0x45, 0, 0, 20}); err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func TestHeaderAddrs(t *testing.T) {
	pkt, err := Build(NewProbe(probeSrc, probeDst, 1, 2, nil))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	src, ok := SourceV4(pkt)
	if !ok || src != probeSrc {
		t.Fatalf("source %v %v", src, ok)
	}
	dst, ok := DestV4(pkt)
	if !ok || dst != probeDst {
		t.Fatalf("dest %v %v", dst, ok)
	}
	if _, ok := DestV4(pkt[:10]); ok {
		t.Fatalf("short packet should be rejected")
	}
	pkt[0] = 0x60
	if _, ok := SourceV4(pkt); ok {
		t.Fatalf("non-ipv4 packet should be rejected")
	}
}

func serialize(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeIgnoresApplicationErrors(t *testing.T) {
	raw, err := Build(NewProbe(netip.MustParseAddr("9.9.9.9"), probeSrc, 53, 6789, []byte("not dns")))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.SrcPort != 53 || string(s.Payload) != "not dns" {
		t.Fatalf("unexpected summary: %s", s)
	}
}
