// Package catserial provides the CAT control transport: a real serial
// port for production use, or a loopback pty pair for exercising a
// Hamlib-based client without hardware.
package catserial

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"github.com/pkg/term"

	"github.com/VDowbensky/geckokapula/internal/logging"
)

var log = logging.For("catserial")

/*-------------------------------------------------------------------
 *
 * Name:	OpenSerial
 *
 * Purpose:	Open a real serial port for CAT control.
 *
 * Inputs:	devicename	- e.g. /dev/ttyUSB0
 *		baud		- 1200, 4800, 9600, etc. 0 leaves it alone.
 *
 *---------------------------------------------------------------*/

func OpenSerial(devicename string, baud int) (*term.Term, error) {
	fd, err := term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("catserial: opening %s: %w", devicename, err)
	}

	switch baud {
	case 0:
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("catserial: setting speed: %w", err)
		}
	default:
		log.Warn("unsupported baud rate, using 4800", "requested", baud)
		if err := fd.SetSpeed(4800); err != nil {
			fd.Close()
			return nil, err
		}
	}
	return fd, nil
}

/*-------------------------------------------------------------------
 *
 * Name:	OpenLoopback
 *
 * Purpose:	Allocate a pty pair for local testing: the CAT bridge
 *		reads/writes the master side, and a Hamlib-based client
 *		tool attaches to the slave device's path.
 *
 * Returns:	Master end (for the bridge to use), and the slave
 *		device path to hand to a client.
 *
 *---------------------------------------------------------------*/

func OpenLoopback() (master *os.File, slavePath string, err error) {
	pt, tty, err := pty.Open()
	if err != nil {
		return nil, "", fmt.Errorf("catserial: opening loopback pty: %w", err)
	}
	slavePath = tty.Name()
	tty.Close()
	return pt, slavePath, nil
}

// WriteFrame sends one CAT command/response frame, reporting a short
// write the way the original serial port layer does.
func WriteFrame(fd *term.Term, data []byte) (int, error) {
	n, err := fd.Write(data)
	if err != nil {
		return n, err
	}
	if n != len(data) {
		return n, fmt.Errorf("catserial: short write: %d of %d bytes", n, len(data))
	}
	return n, nil
}

// ReadByte reads a single byte, blocking until one is ready.
func ReadByte(fd *term.Term) (byte, error) {
	buf := make([]byte, 1)
	n, err := fd.Read(buf)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, fmt.Errorf("catserial: short read")
	}
	return buf[0], nil
}
