//go:build !linux

package tun

func Open(cfg Config) (*Device, error) {
	return nil, ErrNotSupported
}

func (d *Device) Flags() (uint16, error) {
	return 0, ErrNotSupported
}
