package isolation

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	readChunk = 256

	// socketBuffer bounds the payload a child can write before the parent starts
	// reading, since the parent only reads after the child has exited.
	socketBuffer = 4 << 20
)

// channel is a connected pair of unix stream sockets. The parent keeps the raw
// descriptor of one end and hands the other to the child as an *os.File.
type channel struct {
	parent int
	child  *os.File

	parentOpen bool
	childOpen  bool
}

func openChannel() (*channel, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("creating socket pair: %w", err)
	}
	// Best effort: the kernel clamps the size to its configured maximum.
	_ = unix.SetsockoptInt(fds[1], unix.SOL_SOCKET, unix.SO_SNDBUF, socketBuffer)
	_ = unix.SetsockoptInt(fds[0], unix.SOL_SOCKET, unix.SO_RCVBUF, socketBuffer)

	return &channel{
		parent:     fds[0],
		child:      os.NewFile(uintptr(fds[1]), "ftspec-isolation"),
		parentOpen: true,
		childOpen:  true,
	}, nil
}

// readAll drains the parent end. It must only be called after the child has
// exited: it reads in fixed chunks and stops at the first short read.
func (c *channel) readAll() ([]byte, error) {
	if err := unix.SetNonblock(c.parent, true); err != nil {
		return nil, fmt.Errorf("setting channel non-blocking: %w", err)
	}

	var data []byte
	buf := make([]byte, readChunk)
	for {
		n, err := unix.Read(c.parent, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			return data, nil
		}
		if err != nil {
			return data, fmt.Errorf("reading channel: %w", err)
		}
		data = append(data, buf[:n]...)
		if n < readChunk {
			return data, nil
		}
	}
}

// closeChild releases the parent's copy of the child end. Returns how many
// endpoints were closed.
func (c *channel) closeChild() int {
	if !c.childOpen {
		return 0
	}
	c.childOpen = false
	c.child.Close()
	return 1
}

func (c *channel) closeParent() int {
	if !c.parentOpen {
		return 0
	}
	c.parentOpen = false
	unix.Close(c.parent)
	return 1
}

func (c *channel) close() int {
	return c.closeChild() + c.closeParent()
}
