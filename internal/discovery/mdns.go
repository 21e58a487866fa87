// Package discovery finds MPD daemons advertising themselves on the
// local network via mDNS, for the optional "browse for a server"
// onboarding flow (SPEC_FULL.md §3 supplemented features).
//
// Adapted from the teacher's discovery package
// (services/api/internal/discovery/discovery.go), which advertises
// an mDNS responder for its own API; this package instead browses
// for other advertisers under "_mpd._tcp", the conventional service
// name MPD daemons register under when compiled with Avahi/Bonjour
// support.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceName = "_mpd._tcp"

// Daemon describes one MPD instance found on the local network.
type Daemon struct {
	Name string
	Host string
	Port int
	IPv4 string
	IPv6 string
	Info string
}

// Browse queries the local network for MPD daemons advertising
// "_mpd._tcp" and returns whatever responds within timeout. A zero
// result set is not an error; it simply means nothing answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Daemon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	var found []Daemon
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range entries {
			d := Daemon{Name: e.Name, Host: e.Host, Port: e.Port, Info: e.Info}
			if e.AddrV4 != nil {
				d.IPv4 = e.AddrV4.String()
			}
			if e.AddrV6 != nil {
				d.IPv6 = e.AddrV6.String()
			}
			found = append(found, d)
		}
	}()

	params := mdns.DefaultParams(serviceName)
	params.Entries = entries
	params.Timeout = timeout

	// mdns.Query owns the entries channel's write side for its whole
	// run and is itself bounded by params.Timeout, so we simply wait
	// it out rather than racing a second close against it.
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns query %q: %w", serviceName, err)
	}

	slog.Debug("mdns browse complete", "service", serviceName, "found", len(found))
	return found, nil
}

// Advertise registers this process as an MPD-compatible daemon under
// "_mpd._tcp", for the (optional) case where euphonica-core itself
// proxies a daemon connection others can discover. Mirrors the
// teacher's Start/Shutdown shape directly.
type Advertiser struct {
	server *mdns.Server
}

// Advertise begins advertising host:port under "_mpd._tcp".
func Advertise(host string, port int, name string) (*Advertiser, error) {
	service, err := mdns.NewMDNSService(
		name,
		serviceName,
		"",
		"",
		port,
		nil,
		[]string{"host=" + host, "port=" + strconv.Itoa(port)},
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns server: %w", err)
	}

	slog.Info("mdns advertising", "name", name, "service", serviceName, "port", port)
	return &Advertiser{server: server}, nil
}

// Shutdown stops the mDNS responder.
func (a *Advertiser) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		slog.Info("mdns stopped")
	}
}
