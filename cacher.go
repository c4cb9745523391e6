package recursor

import (
	"github.com/miekg/dns"
)

// Cacher stores terminal answers keyed by question name and type. Name
// identity is case insensitive: implementations must key on the canonical
// (lowercased, fully qualified) form of the question name.
type Cacher interface {
	// DnsSet stores msg for its question. Implementations may keep a private
	// copy; the cached instance must have dns.Msg.Zero set before DnsGet
	// returns it.
	DnsSet(msg *dns.Msg)

	// DnsGet returns the cached dns.Msg for qname and qtype, or nil. qname
	// is always in canonical form. The returned message keeps dns.Msg.Zero
	// set to signal it came from cache and must be copied before any
	// mutation.
	DnsGet(qname string, qtype uint16) *dns.Msg
}

func cacheGet(cache Cacher, qname string, qtype uint16) (msg *dns.Msg) {
	if cache != nil {
		msg = cache.DnsGet(dns.CanonicalName(qname), qtype)
	}
	return
}

func cacheStore(cache Cacher, msg *dns.Msg) (stored bool) {
	if cache != nil {
		if msg != nil && !msg.Zero && len(msg.Question) == 1 {
			cache.DnsSet(msg)
			stored = true
		}
	}
	return
}

func cloneIfCached(msg *dns.Msg) (clone *dns.Msg) {
	clone = msg
	if msg != nil && msg.Zero {
		clone = msg.Copy()
		clone.Zero = false
	}
	return
}
