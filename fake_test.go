package recursor

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// fakeNet scripts a set of nameservers keyed by address and counts every
// exchange, so tests can assert exactly which servers were asked what.
type fakeNet struct {
	mu      sync.Mutex
	servers map[netip.Addr]*fakeServer
	calls   int
	perAddr map[netip.Addr]int
	perName map[string]int
	hops    [][]netip.Addr
}

type fakeServer struct {
	responses map[string]*dns.Msg
	err       error
}

func newFakeNet() *fakeNet {
	return &fakeNet{
		servers: make(map[netip.Addr]*fakeServer),
		perAddr: make(map[netip.Addr]int),
		perName: make(map[string]int),
	}
}

func questionKey(qname string, qtype uint16) string {
	return fmt.Sprintf("%d %s", qtype, strings.ToLower(qname))
}

func (f *fakeNet) server(addr netip.Addr) *fakeServer {
	srv := f.servers[addr]
	if srv == nil {
		srv = &fakeServer{responses: make(map[string]*dns.Msg)}
		f.servers[addr] = srv
	}
	return srv
}

// respond scripts addr to answer qname/qtype with msg.
func (f *fakeNet) respond(addr netip.Addr, qname string, qtype uint16, msg *dns.Msg) {
	f.server(addr).responses[questionKey(qname, qtype)] = msg
}

// fail scripts addr to fail every exchange with err.
func (f *fakeNet) fail(addr netip.Addr, err error) {
	f.server(addr).err = err
}

func (f *fakeNet) transportFor(addrs []netip.Addr) exchanger {
	return &fakeHop{net: f, addrs: addrs}
}

type fakeHop struct {
	net   *fakeNet
	addrs []netip.Addr
}

func (h *fakeHop) exchange(_ context.Context, m *dns.Msg) (*dns.Msg, error) {
	q := m.Question[0]
	h.net.mu.Lock()
	defer h.net.mu.Unlock()
	h.net.calls++
	h.net.perName[strings.ToLower(q.Name)]++
	h.net.hops = append(h.net.hops, append([]netip.Addr(nil), h.addrs...))
	err := fmt.Errorf("no scripted server for %v", h.addrs)
	for _, addr := range h.addrs {
		srv := h.net.servers[addr]
		if srv == nil {
			continue
		}
		h.net.perAddr[addr]++
		if srv.err != nil {
			err = srv.err
			continue
		}
		if resp := srv.responses[questionKey(q.Name, q.Qtype)]; resp != nil {
			out := resp.Copy()
			out.Id = m.Id
			return out, nil
		}
	}
	return nil, err
}

// testResolver returns a Resolver whose transport is f and whose only root
// server is root.
func testResolver(t *testing.T, f *fakeNet, root netip.Addr) *Resolver {
	t.Helper()
	r, err := New(Config{})
	require.NoError(t, err)
	r.transportFor = f.transportFor
	r.rootServers = []netip.Addr{root}
	return r
}

func addrOf(t *testing.T, s string) netip.Addr {
	t.Helper()
	addr, err := netip.ParseAddr(s)
	require.NoError(t, err)
	return addr
}

// referral builds a non-authoritative response delegating qname to the
// given nameservers, with glue addresses in the additional section.
func referral(qname string, qtype uint16, zone string, nameservers []string, glue map[string][]netip.Addr) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	msg.Response = true
	for _, ns := range nameservers {
		msg.Ns = append(msg.Ns, &dns.NS{
			Hdr: dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 172800},
			Ns:  dns.Fqdn(ns),
		})
	}
	for owner, addrs := range glue {
		msg.Extra = append(msg.Extra, addressRecords(dns.Fqdn(owner), addrs)...)
	}
	return msg
}

// authoritative builds an authoritative address answer for qname.
func authoritative(qname string, qtype uint16, addrs ...netip.Addr) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	msg.Response = true
	msg.Authoritative = true
	msg.Answer = addressRecords(dns.Fqdn(qname), addrs)
	return msg
}

func addressRecords(owner string, addrs []netip.Addr) (rrs []dns.RR) {
	for _, addr := range addrs {
		hdr := dns.RR_Header{Name: owner, Class: dns.ClassINET, Ttl: 300}
		if addr.Is4() {
			hdr.Rrtype = dns.TypeA
			rrs = append(rrs, &dns.A{Hdr: hdr, A: addr.AsSlice()})
		} else {
			hdr.Rrtype = dns.TypeAAAA
			rrs = append(rrs, &dns.AAAA{Hdr: hdr, AAAA: addr.AsSlice()})
		}
	}
	return
}

func question(qname string, qtype uint16) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(qname), qtype)
	m.RecursionDesired = false
	return m
}
