package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/blorticus-go/diameter"
	"github.com/blorticus-go/diameter/cmd/internal/tcpadapter"
	"github.com/blorticus-go/diameter/peer"
	"github.com/blorticus-go/diameter/stack"
)

func main() {
	cliArgs, err := ProcessCommandLineArguments()
	dieOnError(err)

	dictionary, err := diameter.FromXMLFile(cliArgs.PathToDictionary)
	dieOnError(err)

	connectHost, connectPort, err := splitHostPortArg(cliArgs.Connect)
	dieOnError(err)

	adapter := tcpadapter.New()

	s := stack.NewStack("diameter-go-client", nil, adapter)
	s.SetIdentity(cliArgs.OriginHost)
	s.SetRealm(cliArgs.OriginRealm)
	s.RegisterDictionary(dictionary)

	sessionBySessionID := make(map[string]*creditControlSession)
	for i := uint(0); i < cliArgs.NumberOfSessionsToGenerate; i++ {
		sess := newCreditControlSession(s, 3)
		if sessionBySessionID[sess.SessionId] != nil {
			die("generated two SessionIds with the same value: %s\n", sess.SessionId)
		}
		sessionBySessionID[sess.SessionId] = sess
	}

	s.RegisterAuthApplication(0, 4, newCreditControlClientHandler(s, sessionBySessionID))

	p, err := s.ClientV4Add(connectHost, connectPort)
	dieOnError(err)

	opened := false
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev := <-adapter.Events():
			switch ev.Kind {
			case tcpadapter.EventData:
				if _, err := s.Feed(ev.Peer, ev.Data); err != nil {
					logError(err, ev.Peer)
				}

				if ev.Peer.IsOpen() && !opened {
					opened = true
					dieOnError(s.RegisterPeer(ev.Peer))
					logGeneralEvent("diameter connection established", ev.Peer)

					for _, sess := range sessionBySessionID {
						sendCCR(s, ev.Peer, sess)
					}
				}

			case tcpadapter.EventClosed:
				logGeneralEvent("peer closed transport", ev.Peer)
				return
			}

		case now := <-ticker.C:
			s.Tick(now)
		}

		if p.IsClosed() {
			return
		}
	}
}

func splitHostPortArg(connect string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(connect)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", connect, err)
	}
	return host, uint16(port), nil
}

func logGeneralEvent(eventDetail string, p *peer.Peer) {
	fmt.Printf(`event msg="%s",state=%s`, eventDetail, p.State())
	if p.Identity != nil {
		fmt.Printf(`,peer="%s"`, p.Identity.OriginHost)
	}
	fmt.Println()
}

func logDiameterMessage(m *diameter.Message, direction string, p *peer.Peer) {
	fmt.Printf(`message direction=%s,code=%d,appId=%d`, direction, uint32(m.Code), m.AppID)
	if p.Identity != nil {
		fmt.Printf(`,peer="%s"`, p.Identity.OriginHost)
	}
	fmt.Println()
}

func logError(err error, p *peer.Peer) {
	fmt.Printf(`error msg="%s"`, err)
	if p != nil && p.Identity != nil {
		fmt.Printf(`,peer="%s"`, p.Identity.OriginHost)
	}
	fmt.Println()
}

func dieOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func die(f string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, f, a...)
	os.Exit(1)
}
