package tun

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const CloneDevicePath = "/dev/net/tun"

var (
	ErrNameTooLong         = errors.New("interface name too long")
	ErrNotSupported        = errors.New("tun devices not supported on this platform")
	ErrUnknownBackend      = errors.New("unknown tun backend")
	ErrDeadlineUnsupported = errors.New("read deadlines not supported by backend")
)

type Backend string

const (
	// BackendIoctl opens the clone device and issues TUNSETIFF directly.
	BackendIoctl Backend = "ioctl"
	// BackendWater delegates device creation to songgao/water.
	BackendWater Backend = "water"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendIoctl:
		return BackendIoctl, nil
	case BackendWater:
		return BackendWater, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownBackend, s)
	}
}

type Config struct {
	// Name requested for the interface; empty lets the kernel pick tun%d.
	Name    string
	Backend Backend
}

// Device is an open TUN interface carrying raw IP packets (no packet info
// header).
type Device struct {
	Name    string
	Backend Backend

	rwc  io.ReadWriteCloser
	file *os.File
	// ctrl is the underlying descriptor for control requests; it may be
	// set even when file is not pollable.
	ctrl *os.File
}

func (d *Device) Read(buf []byte) (int, error) {
	return d.rwc.Read(buf)
}

func (d *Device) Write(buf []byte) (int, error) {
	return d.rwc.Write(buf)
}

// SetReadDeadline is only available when the descriptor is registered with
// the runtime poller, which is the case for the ioctl backend.
func (d *Device) SetReadDeadline(t time.Time) error {
	if d.file == nil {
		return ErrDeadlineUnsupported
	}
	return d.file.SetReadDeadline(t)
}

func (d *Device) Close() error {
	return d.rwc.Close()
}
