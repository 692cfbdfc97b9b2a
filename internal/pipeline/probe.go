package pipeline

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// NetProber dials the provider host to decide reachability
type NetProber struct {
	Address string
	dialer  net.Dialer
}

// NewNetProber probes the host of rawURL, on port 80 unless the URL names one
func NewNetProber(rawURL string) (*NetProber, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse probe url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("probe url %q has no host", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	return &NetProber{
		Address: net.JoinHostPort(host, port),
		dialer:  net.Dialer{Timeout: 5 * time.Second},
	}, nil
}

// Probe opens and closes a TCP connection
func (p *NetProber) Probe(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("can not connect to %s: %w", p.Address, err)
	}
	return conn.Close()
}
