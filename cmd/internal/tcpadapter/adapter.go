// Package tcpadapter is the reference peer.IOAdapter implementation
// used by the cmd/ sample applications. Real sockets must be read on
// their own goroutines, but the Stack they feed is single-threaded
// (spec §5) -- so, like the teacher's agent package, tcpadapter never
// calls into the Stack itself. Instead every socket goroutine reports
// what happened -- data arrived, a connection was accepted, a
// connection closed -- over one Events channel, and the host drains
// that channel from a single goroutine that is the sole caller into
// the Stack. This mirrors agent.Agent's EventChannel()/Run() split in
// examples/applications/base_application_{server,client}, just with
// the state machine itself moved out to package stack.
package tcpadapter

import (
	"fmt"
	"net"
	"sync"

	"github.com/blorticus-go/diameter/peer"
)

const readBufferSize = 16384

// EventKind distinguishes the events an Adapter reports.
type EventKind int

const (
	// EventAccepted reports an inbound connection accepted on behalf
	// of a LISTEN-role peer. The host must create the new SERVER-role
	// peer (typically via stack.Stack.ServerV4Accept) and send it back
	// on Reply before the adapter will start reading from the
	// connection; sending nil on Reply tells the adapter to reject
	// and close the connection.
	EventAccepted EventKind = iota

	// EventData reports bytes read from Peer's connection, ready to
	// be handed to stack.Stack.Feed.
	EventData

	// EventClosed reports that Peer's connection ended, whether by
	// network error or a clean close; Err is the read error that ended
	// it, io.EOF when the remote end closed cleanly.
	EventClosed
)

// Event is one occurrence an Adapter reports over its Events channel.
type Event struct {
	Kind EventKind

	Peer *peer.Peer // set for EventData, EventClosed
	Data []byte     // set for EventData

	Err error // set for EventClosed

	Listener   *peer.Peer // set for EventAccepted: the listening peer
	RemoteIPv4 net.IP     // set for EventAccepted
	RemotePort uint16     // set for EventAccepted
	Reply      chan *peer.Peer
}

// Adapter implements peer.IOAdapter over real TCP sockets.
type Adapter struct {
	events chan Event

	mu    sync.Mutex
	conns map[*peer.Peer]net.Conn
}

// New returns an Adapter. Call Events to obtain the channel every
// accepted connection, inbound read, and closure is reported on.
func New() *Adapter {
	return &Adapter{
		events: make(chan Event, 64),
		conns:  make(map[*peer.Peer]net.Conn),
	}
}

// Events returns the channel the host's single event loop must drain.
func (a *Adapter) Events() <-chan Event { return a.events }

func (a *Adapter) register(p *peer.Peer, conn net.Conn) {
	a.mu.Lock()
	a.conns[p] = conn
	a.mu.Unlock()
}

func (a *Adapter) connFor(p *peer.Peer) (net.Conn, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.conns[p]
	return c, ok
}

func (a *Adapter) deregister(p *peer.Peer) {
	a.mu.Lock()
	delete(a.conns, p)
	a.mu.Unlock()
}

// ConnectV4 opens an outbound connection to (host, port) on the
// calling goroutine and registers it for p before returning, then
// starts a background read pump.
func (a *Adapter) ConnectV4(p *peer.Peer, host string, port uint16) error {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}

	a.register(p, conn)
	go a.pump(p, conn)

	return p.OnTransportConnected()
}

// ListenV4 begins accepting inbound connections on (host, port) on a
// background goroutine. Each accepted connection is reported as an
// EventAccepted and held open until the host replies with the new
// peer to pump it for.
func (a *Adapter) ListenV4(p *peer.Peer, host string, port uint16) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}

	go a.acceptLoop(p, ln)

	return nil
}

func (a *Adapter) acceptLoop(listener *peer.Peer, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		remoteIP, remotePort := splitHostPort(conn.RemoteAddr())
		reply := make(chan *peer.Peer, 1)

		a.events <- Event{
			Kind:       EventAccepted,
			Listener:   listener,
			RemoteIPv4: remoteIP,
			RemotePort: remotePort,
			Reply:      reply,
		}

		accepted := <-reply
		if accepted == nil {
			conn.Close()
			continue
		}

		a.register(accepted, conn)
		go a.pump(accepted, conn)
	}
}

func (a *Adapter) pump(p *peer.Peer, conn net.Conn) {
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			a.events <- Event{Kind: EventData, Peer: p, Data: data}
		}

		if err != nil {
			conn.Close()
			a.deregister(p)
			a.events <- Event{Kind: EventClosed, Peer: p, Err: err}
			return
		}
	}
}

// Close tears down the transport underlying p, if any.
func (a *Adapter) Close(p *peer.Peer) error {
	conn, ok := a.connFor(p)
	if !ok {
		return nil
	}
	a.deregister(p)
	return conn.Close()
}

// Write sends data over p's transport; a safe no-op if p has no
// registered transport (already closed).
func (a *Adapter) Write(p *peer.Peer, data []byte) error {
	conn, ok := a.connFor(p)
	if !ok {
		return nil
	}
	_, err := conn.Write(data)
	return err
}

func splitHostPort(addr net.Addr) (net.IP, uint16) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, 0
	}
	return tcpAddr.IP, uint16(tcpAddr.Port)
}
