// File: sockets/resolve.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Name resolution on the thread pool. The blocking lookup runs on a
// worker; the loop consumes the result through the future's event
// descriptor.

//go:build linux

package sockets

import (
	"context"
	"net"

	"github.com/momentics/hioload-aio/concurrent"
	"github.com/momentics/hioload-aio/ioqueue"
	"github.com/momentics/hioload-aio/logging"
	"github.com/momentics/hioload-aio/task"
)

// Resolve looks up the IPv4 addresses of name without blocking the loop.
func Resolve(q *ioqueue.IoQueue, pool *concurrent.ThreadPool, name string) *task.Task[[]Addr] {
	return concurrent.AsTask(q, pool, func() []Addr {
		ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip4", name)
		if err != nil {
			logging.Errorf("resolve %s: %v", name, err)
			return nil
		}
		addrs := make([]Addr, 0, len(ips))
		for _, ip := range ips {
			v4 := ip.To4()
			if v4 == nil {
				continue
			}
			addrs = append(addrs, AddrFromOctets(v4[0], v4[1], v4[2], v4[3]))
		}
		return addrs
	})
}
