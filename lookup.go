package recursor

import (
	"context"
	"errors"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// maxVisited caps how many distinct nameservers one Send may attempt. It
// doubles as the recursion depth ceiling since the visited set grows by one
// per descent step.
const maxVisited = 100

// errDepthExceeded never leaves the package; a breached ceiling degrades to
// the same SERVFAIL as an unreachable name.
var errDepthExceeded = errors.New("recursor: nameserver visit ceiling reached")

// search is the state of a single top-level Send: the visited set guarding
// against referral loops and the last error seen, kept for diagnostics.
type search struct {
	*Resolver
	ctx     context.Context
	visited map[string]struct{}
	lastErr error
}

// lookup asks the candidate addresses for query and either returns an
// authoritative answer or descends into the first workable NS referral.
// A nil result means this path yielded nothing; the caller moves on.
func (s *search) lookup(addrs []netip.Addr, query *dns.Msg) (msg *dns.Msg) {
	qname := query.Question[0].Name
	qtype := query.Question[0].Qtype
	if msg = cacheGet(s.cache, qname, qtype); msg != nil {
		s.log.WithFields(logFields(qname, qtype)).Debug("cache hit")
		return
	}
	if len(addrs) == 0 {
		return nil
	}

	resp, err := s.transportFor(addrs).exchange(s.ctx, query)
	if err != nil {
		s.lastErr = err
		s.log.WithFields(logFields(qname, qtype)).WithError(err).Debug("transport failure")
		return nil
	}
	if resp == nil {
		return nil
	}
	if resp.Authoritative {
		s.log.WithFields(logFields(qname, qtype)).Debug("authoritative answer")
		return resp
	}

	for _, rr := range resp.Ns {
		ns, ok := rr.(*dns.NS)
		if !ok {
			continue
		}
		target := strings.ToLower(dns.Fqdn(ns.Ns))

		// Glue from the additional section saves a full sub-resolution.
		glue := findAddresses(target, resp.Extra)

		if _, seen := s.visited[target]; seen {
			s.log.WithField("nameserver", target).Debug("referral loop")
			continue
		}
		s.visited[target] = struct{}{}
		if len(s.visited) > maxVisited {
			s.lastErr = errDepthExceeded
			s.log.WithField("nameserver", target).Debug("visit ceiling reached")
			return nil
		}

		if glue == nil {
			glue = s.resolveAddresses(target)
		}

		if msg = s.lookup(glue, query); msg != nil {
			cacheStore(s.cache, msg)
			return
		}
	}
	return nil
}

// resolveAddresses finds addresses for a referral target that arrived
// without glue by running full descents from the roots, A before AAAA. The
// shared visited set also catches loops spanning these sub-resolutions.
// Returns nil when the target cannot be resolved at all.
func (s *search) resolveAddresses(target string) (addrs []netip.Addr) {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(target, qtype)
		m.RecursionDesired = false
		if msg := s.lookup(s.roots(), m); msg != nil {
			addrs = append(addrs, findAddresses(target, msg.Answer)...)
		}
	}
	return dedupAddrs(addrs)
}

func logFields(qname string, qtype uint16) logrus.Fields {
	return logrus.Fields{"qname": qname, "qtype": dns.Type(qtype).String()}
}
