package recursor

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// hopTimeout bounds a single query round trip. Deliberately shorter than a
// stub resolver timeout: a descent may need many hops and has no overall
// deadline of its own.
const hopTimeout = time.Second

var errNoUsableAddress = errors.New("recursor: no usable nameserver address")

// exchanger is one hop of the descent: a query sent to a fixed candidate
// address set.
type exchanger interface {
	exchange(ctx context.Context, m *dns.Msg) (*dns.Msg, error)
}

// buildTransport makes a transport over addrs in randomized order so
// repeated referrals to the same zone spread across its nameservers.
func (r *Resolver) buildTransport(addrs []netip.Addr) exchanger {
	return &transport{resolver: r, addrs: shuffleAddrs(addrs)}
}

func shuffleAddrs(in []netip.Addr) []netip.Addr {
	out := append([]netip.Addr(nil), in...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

type transport struct {
	resolver *Resolver
	addrs    []netip.Addr
}

func (t *transport) exchange(ctx context.Context, m *dns.Msg) (resp *dns.Msg, err error) {
	m = t.resolver.prepare(m)
	err = errNoUsableAddress
	for _, addr := range t.addrs {
		if addr.Is6() && !t.resolver.usingIPv6() {
			continue
		}
		if resp, err = t.exchangeAddr(ctx, m, addr); err == nil && resp != nil {
			return resp, nil
		}
	}
	return nil, err
}

func (t *transport) exchangeAddr(ctx context.Context, m *dns.Msg, addr netip.Addr) (resp *dns.Msg, err error) {
	network := "udp"
	if t.resolver.cfg.TCP || !t.resolver.usingUDP() {
		network = "tcp"
	}
	if resp, err = t.exchangeNetwork(ctx, network, m, addr); err != nil {
		if t.resolver.maybeDisableUDP(err) {
			resp, err = t.exchangeNetwork(ctx, "tcp", m, addr)
		}
	}
	if err == nil && resp != nil && resp.Truncated && network == "udp" && !t.resolver.cfg.IgnoreTruncation {
		resp, err = t.exchangeNetwork(ctx, "tcp", m, addr)
	}
	return
}

func (t *transport) exchangeNetwork(ctx context.Context, network string, m *dns.Msg, addr netip.Addr) (resp *dns.Msg, err error) {
	r := t.resolver
	addrPort := netip.AddrPortFrom(addr, r.cfg.port())
	var rawConn net.Conn
	if rawConn, err = r.DialContext(ctx, network, addrPort.String()); err != nil {
		if addr.Is6() {
			r.maybeDisableIPv6(err)
		}
		r.log.WithFields(logrus.Fields{"server": addrPort.String(), "network": network}).WithError(err).Debug("dial failed")
		return nil, err
	}
	dnsConn := &dns.Conn{Conn: rawConn}
	defer dnsConn.Close()
	if strings.HasPrefix(network, "udp") {
		dnsConn.UDPSize = r.cfg.payloadSize()
	}
	if k := r.cfg.TSIG; k != nil {
		dnsConn.TsigSecret = map[string]string{dns.Fqdn(k.KeyName): k.Secret}
	}
	deadline := time.Now().Add(hopTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = dnsConn.SetDeadline(deadline)
	start := time.Now()
	if err = dnsConn.WriteMsg(m); err == nil {
		if resp, err = dnsConn.ReadMsg(); err == nil {
			r.log.WithFields(logrus.Fields{
				"server":  addrPort.String(),
				"network": network,
				"rcode":   dns.RcodeToString[resp.Rcode],
				"rtt":     time.Since(start).Round(time.Millisecond).String(),
			}).Debug("exchange")
		}
	}
	return
}

// prepare copies m when the configured EDNS OPT or TSIG record must be
// attached, leaving the caller's message untouched.
func (r *Resolver) prepare(m *dns.Msg) *dns.Msg {
	if r.cfg.EDNS == nil && r.cfg.TSIG == nil {
		return m
	}
	m = m.Copy()
	if e := r.cfg.EDNS; e != nil && m.IsEdns0() == nil {
		opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
		opt.SetUDPSize(r.cfg.payloadSize())
		opt.SetVersion(e.Version)
		if e.DNSSECOK {
			opt.SetDo()
		}
		opt.Option = append(opt.Option, e.Options...)
		m.Extra = append(m.Extra, opt)
	}
	if k := r.cfg.TSIG; k != nil {
		m.SetTsig(dns.Fqdn(k.KeyName), r.cfg.tsigAlgorithm(), 300, time.Now().Unix())
	}
	return m
}
