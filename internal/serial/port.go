// Package serial opens the USB serial ports the synth boards hang off
// of: raw 8N1 termios plus RTS control for the boards' reset line.
package serial

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var baudFlags = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// Port is a raw serial device.
type Port struct {
	f *os.File
}

// Open configures the device for raw 8N1 I/O at the given baud rate
// with a 2 second read timeout.
func Open(device string, baud int) (*Port, error) {
	speed, ok := baudFlags[baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}

	f, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	fd := int(f.Fd())
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("get termios %s: %w", device, err)
	}
	tio.Iflag = 0
	tio.Oflag = 0
	tio.Lflag = 0
	tio.Cflag = unix.CREAD | unix.CLOCAL | unix.CS8 | speed
	tio.Ispeed = speed
	tio.Ospeed = speed
	tio.Cc[unix.VMIN] = 0
	tio.Cc[unix.VTIME] = 20
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		f.Close()
		return nil, fmt.Errorf("set termios %s: %w", device, err)
	}

	return &Port{f: f}, nil
}

// Write sends the payload and drains the kernel's output queue so the
// command has actually left the wire before the caller proceeds.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	if err != nil {
		return n, err
	}
	if err := unix.IoctlSetInt(int(p.f.Fd()), unix.TCSBRK, 1); err != nil {
		return n, fmt.Errorf("drain: %w", err)
	}
	return n, nil
}

// SetRTS asserts or clears the RTS modem line, which the USB adapters
// wire to the boards' reset pin.
func (p *Port) SetRTS(level bool) error {
	req := uint(unix.TIOCMBIC)
	if level {
		req = unix.TIOCMBIS
	}
	return unix.IoctlSetPointerInt(int(p.f.Fd()), req, unix.TIOCM_RTS)
}

// Close releases the device.
func (p *Port) Close() error {
	return p.f.Close()
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.f.Name()
}
