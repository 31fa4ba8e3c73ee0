// Package resolver looks up cluster host addresses, either through the
// system resolver or by querying one nameserver directly.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/rsclarke/dxrelay/internal/logging"
)

// ErrNotFound is returned when a name has no A or AAAA records.
var ErrNotFound = errors.New("resolver: no addresses found")

// System returns the platform resolver.
func System() *net.Resolver { return net.DefaultResolver }

// DNS queries a single nameserver for A and AAAA records. IPv4 addresses
// are returned before IPv6 ones.
type DNS struct {
	Nameserver string // host:port
	Net        string // udp (default) or tcp
	Timeout    time.Duration
	Logger     *zap.Logger
}

// New returns a DNS resolver for nameserver. A missing port defaults to 53.
func New(nameserver string, logger *zap.Logger) *DNS {
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(strings.Trim(nameserver, "[]"), "53")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DNS{
		Nameserver: nameserver,
		Net:        "udp",
		Timeout:    5 * time.Second,
		Logger:     logger.With(logging.Nameserver(nameserver)),
	}
}

// LookupHost returns the addresses of host. IP literals are returned as is.
func (r *DNS) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	client := &dns.Client{Net: r.Net, Timeout: r.Timeout}
	fqdn := dns.Fqdn(host)

	var addrs []string
	var errs []error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := r.query(ctx, client, fqdn, qtype)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		addrs = append(addrs, found...)
	}

	if len(addrs) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("lookup %s: %w", host, errors.Join(errs...))
		}
		return nil, fmt.Errorf("lookup %s: %w", host, ErrNotFound)
	}
	return addrs, nil
}

func (r *DNS) query(ctx context.Context, client *dns.Client, fqdn string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	resp, _, err := client.ExchangeContext(ctx, msg, r.Nameserver)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", dns.TypeToString[qtype], err)
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil, fmt.Errorf("%s query: %w", dns.TypeToString[qtype], ErrNotFound)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s query: rcode %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.A:
			addrs = append(addrs, v.A.String())
		case *dns.AAAA:
			addrs = append(addrs, v.AAAA.String())
		}
	}
	r.Logger.Debug("dns lookup", zap.String("qname", fqdn), zap.String("qtype", dns.TypeToString[qtype]), zap.Strings("answers", addrs))
	return addrs, nil
}
