// Package recursor implements an iterative DNS resolver that starts at the
// root nameservers and chases NS referrals down the delegation chain until
// it reaches an authoritative answer, using github.com/miekg/dns for wire
// format and transport.
package recursor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	rcache "github.com/wnagele/recursor/cache"
)

var (
	// ErrAsyncNotSupported is returned by SendAsync; resolution is strictly
	// synchronous.
	ErrAsyncNotSupported = errors.New("recursor: asynchronous send is not supported")
	// ErrTimeoutNotSupported is returned by SetTimeout; the per-hop timeout
	// is fixed and there is no overall deadline beyond the caller's context.
	ErrTimeoutNotSupported = errors.New("recursor: timeout cannot be configured")
	// ErrNoQuestion is returned by Send for a query without exactly one
	// question.
	ErrNoQuestion = errors.New("recursor: query must carry exactly one question")
)

var _ Cacher = (*rcache.Cache)(nil)

// Resolver chases NS referrals from the root hints down to an authoritative
// answer. It is safe for concurrent use; every Send gets its own visited
// set while the cache and root server list are shared.
type Resolver struct {
	proxy.ContextDialer
	cfg   Config
	cache Cacher
	log   logrus.FieldLogger

	transportFor func(addrs []netip.Addr) exchanger

	mu          sync.RWMutex // protects following
	useIPv6     bool
	useUDP      bool
	rootServers []netip.Addr
}

// New returns a Resolver seeded with the embedded IANA root hints. It fails
// only when the hints cannot be parsed.
func New(cfg Config) (r *Resolver, err error) {
	var hints []netip.Addr
	if hints, err = parseHints(namedRoot); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	cache := cfg.Cache
	if cache == nil {
		cache = rcache.New()
	}
	r = &Resolver{
		ContextDialer: &net.Dialer{},
		cfg:           cfg,
		cache:         cache,
		log:           log,
		useIPv6:       true,
		useUDP:        !cfg.TCP,
		rootServers:   hints,
	}
	r.transportFor = r.buildTransport
	return
}

// Send resolves query iteratively from the roots. Resolution-level problems
// never surface as errors; when the whole descent comes up empty the
// returned message is a synthesized SERVFAIL carrying the original question
// and transaction id. The only error conditions are malformed queries.
func (r *Resolver) Send(ctx context.Context, query *dns.Msg) (resp *dns.Msg, err error) {
	if query == nil || len(query.Question) != 1 {
		return nil, ErrNoQuestion
	}
	s := &search{
		Resolver: r,
		ctx:      ctx,
		visited:  make(map[string]struct{}),
	}
	if resp = s.lookup(r.roots(), query); resp == nil {
		resp = s.failure(query)
	}
	resp = cloneIfCached(resp)
	resp.Id = query.Id
	return resp, nil
}

// SendAsync always fails with ErrAsyncNotSupported.
func (r *Resolver) SendAsync(*dns.Msg) (<-chan *dns.Msg, error) {
	return nil, ErrAsyncNotSupported
}

// SetTimeout always fails with ErrTimeoutNotSupported.
func (r *Resolver) SetTimeout(time.Duration) error {
	return ErrTimeoutNotSupported
}

// Cache returns the answer cache in use.
func (r *Resolver) Cache() Cacher {
	return r.cache
}

// roots returns a private copy of the current root server list.
func (r *Resolver) roots() []netip.Addr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]netip.Addr(nil), r.rootServers...)
}

// failure synthesizes the SERVFAIL returned when the descent found nothing.
// With EDNS configured, the reason is attached as an Extended DNS Error.
func (s *search) failure(query *dns.Msg) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetRcode(query, dns.RcodeServerFailure)
	if s.cfg.EDNS != nil && s.lastErr != nil {
		opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
		opt.SetUDPSize(s.cfg.payloadSize())
		opt.Option = append(opt.Option, &dns.EDNS0_EDE{
			InfoCode:  extendedErrorCode(s.lastErr),
			ExtraText: s.lastErr.Error(),
		})
		msg.Extra = append(msg.Extra, opt)
	}
	return msg
}
