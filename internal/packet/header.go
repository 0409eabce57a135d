package packet

import (
	"errors"
	"net/netip"
)

var (
	ErrPacketTooShort = errors.New("packet too short")
	ErrUnknownIP      = errors.New("unknown ip version")
)

// Version returns the IP version nibble of pkt.
func Version(pkt []byte) (int, error) {
	if len(pkt) == 0 {
		return 0, ErrPacketTooShort
	}
	return int(pkt[0] >> 4), nil
}

// SourceV4 returns the IPv4 source address without decoding the packet.
func SourceV4(pkt []byte) (netip.Addr, bool) {
	if !validV4(pkt) {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(pkt[12:16])), true
}

// DestV4 returns the IPv4 destination address without decoding the packet.
func DestV4(pkt []byte) (netip.Addr, bool) {
	if !validV4(pkt) {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(pkt[16:20])), true
}

func validV4(pkt []byte) bool {
	if len(pkt) < 20 || pkt[0]>>4 != 4 {
		return false
	}
	ihl := int(pkt[0]&0x0F) * 4
	return ihl >= 20 && len(pkt) >= ihl
}
