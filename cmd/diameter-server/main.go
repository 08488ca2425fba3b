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

// server [-bind [<ip>]:<port>] [-originHost <originHost>] [-originRealm <originRealm>] [-dictionary /path/to/dictionary.xml]
func main() {
	cliArgs, err := ProcessCommandLineArguments()
	dieOnError(err)

	dictionary, err := diameter.FromXMLFile(cliArgs.PathToDictionary)
	dieOnError(err)

	bindHost, bindPort, err := splitHostPortArg(cliArgs.Bind)
	dieOnError(err)

	adapter := tcpadapter.New()

	s := stack.NewStack("diameter-go-server", nil, adapter)
	s.SetIdentity(cliArgs.OriginHost)
	s.SetRealm(cliArgs.OriginRealm)
	s.RegisterDictionary(dictionary)
	s.RegisterAuthApplication(0, 4, newCreditControlServer(s))

	listener, err := s.ServerV4Add(bindHost, bindPort)
	dieOnError(err)

	registered := make(map[*peer.Peer]bool)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev := <-adapter.Events():
			switch ev.Kind {
			case tcpadapter.EventAccepted:
				accepted := s.ServerV4Accept(listener, ev.RemoteIPv4, ev.RemotePort)
				ev.Reply <- accepted
				logGeneralEvent("accepted incoming transport", accepted)

			case tcpadapter.EventData:
				if _, err := s.Feed(ev.Peer, ev.Data); err != nil {
					logError(err, ev.Peer)
				}
				if ev.Peer.IsOpen() && !registered[ev.Peer] {
					if err := s.RegisterPeer(ev.Peer); err != nil {
						logError(err, ev.Peer)
						adapter.Close(ev.Peer)
					} else {
						registered[ev.Peer] = true
						logGeneralEvent("diameter connection established", ev.Peer)
					}
				}

			case tcpadapter.EventClosed:
				delete(registered, ev.Peer)
				logGeneralEvent("peer closed transport", ev.Peer)
			}

		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

func splitHostPortArg(bind string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(bind)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", bind, err)
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
