package proto

import (
	"bufio"
	"io"
	"net"
)

func netPipe() (net.Conn, net.Conn) {
	return net.Pipe()
}

func newBufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(r)
}
