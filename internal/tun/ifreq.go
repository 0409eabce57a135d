package tun

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Linux TUN/TAP ABI values as found in <linux/if_tun.h> for x86 and arm.
const (
	TUNSETIFF = 0x400454CA
	IFF_TUN   = 0x0001
	IFF_TAP   = 0x0002
	IFF_NO_PI = 0x1000

	IFNAMSIZ  = 16
	IfreqSize = 40
)

// Ifreq is the kernel's struct ifreq as used by TUNSETIFF: a 16-byte
// NUL-padded interface name, a 2-byte flags field in host byte order and
// 22 bytes of padding.
type Ifreq [IfreqSize]byte

func NewIfreq(name string, flags uint16) (Ifreq, error) {
	var ifr Ifreq
	if len(name) >= IFNAMSIZ {
		return ifr, fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return ifr, fmt.Errorf("interface name contains NUL: %q", name)
	}
	copy(ifr[:IFNAMSIZ], name)
	binary.NativeEndian.PutUint16(ifr[IFNAMSIZ:], flags)
	return ifr, nil
}

// Name returns the interface name, which after TUNSETIFF holds whatever the
// kernel assigned (e.g. tun0 when the request named none).
func (r *Ifreq) Name() string {
	name := r[:IFNAMSIZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func (r *Ifreq) Flags() uint16 {
	return binary.NativeEndian.Uint16(r[IFNAMSIZ:])
}
