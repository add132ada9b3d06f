package iobuf

import (
	"context"
	"net"
	"os"

	"github.com/jcorbin/voz/internal/fault"
)

// Create creates or truncates the named file, opening it read-write.
func Create(name string) (Buffer, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fault.IO("create", err)
	}
	return f, nil
}

// Open opens an existing file for reading and writing.
func Open(name string) (Buffer, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, fault.IO("open", err)
	}
	return f, nil
}

// Dial opens an outbound TCP connection, blocking until the attempt completes.
func Dial(ctx context.Context, addr string) (Buffer, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fault.IO("connect", err)
	}
	return conn, nil
}

// Accept binds addr, blocks until exactly one peer connects, then closes the
// listener and returns the accepted connection. Any notify function is
// called with the bound address before blocking, which is useful when addr
// asks for an ephemeral port.
func Accept(ctx context.Context, addr string, notify func(net.Addr)) (Buffer, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fault.IO("listen", err)
	}
	defer ln.Close()
	if notify != nil {
		notify(ln.Addr())
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, fault.IO("accept", err)
	}
	return conn, nil
}
