//go:build linux

package tun

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/songgao/water"
	"golang.org/x/sys/unix"
)

func Open(cfg Config) (*Device, error) {
	switch cfg.Backend {
	case "", BackendIoctl:
		return openIoctl(cfg.Name)
	case BackendWater:
		return openWater(cfg.Name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

func openIoctl(name string) (*Device, error) {
	ifr, err := NewIfreq(name, unix.IFF_TUN|unix.IFF_NO_PI)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Open(CloneDevicePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", CloneDevicePath, err)
	}
	if err := ioctl(fd, unix.TUNSETIFF, &ifr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("tunsetiff %q: %w", name, err)
	}
	// Non-blocking mode lets os.NewFile hand the fd to the poller, so
	// deadlines work and Close wakes a pending Read.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	file := os.NewFile(uintptr(fd), CloneDevicePath)
	return &Device{Name: ifr.Name(), Backend: BackendIoctl, rwc: file, file: file, ctrl: file}, nil
}

func ioctl(fd int, req uintptr, ifr *Ifreq) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&ifr[0])))
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

func openWater(name string) (*Device, error) {
	if len(name) >= IFNAMSIZ {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	cfg := water.Config{DeviceType: water.TUN}
	cfg.Name = name
	iface, err := water.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create tun: %w", err)
	}
	d := &Device{Name: iface.Name(), Backend: BackendWater, rwc: iface}
	// water keeps a blocking fd, so there is no poller and no deadlines,
	// but TUNGETIFF still works on it.
	if f, ok := iface.ReadWriteCloser.(*os.File); ok {
		d.ctrl = f
	}
	return d, nil
}

// Flags reads back the interface flags the kernel applied to the device.
func (d *Device) Flags() (uint16, error) {
	if d.ctrl == nil {
		return 0, ErrNotSupported
	}
	conn, err := d.ctrl.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("syscall conn: %w", err)
	}
	var ifr Ifreq
	var ioErr error
	if err := conn.Control(func(fd uintptr) {
		ioErr = ioctl(int(fd), unix.TUNGETIFF, &ifr)
	}); err != nil {
		return 0, fmt.Errorf("tungetiff: %w", err)
	}
	if ioErr != nil {
		return 0, fmt.Errorf("tungetiff: %w", ioErr)
	}
	return ifr.Flags(), nil
}
