package cache

import (
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func testMsg(qname string, qtype uint16, ttl uint32) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(qname, qtype)
	msg.Answer = append(msg.Answer, &dns.A{
		Hdr: dns.RR_Header{
			Name:   qname,
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		A: net.IPv4(192, 0, 2, 1),
	})
	return msg
}

func TestCachePositiveUsesMessageMinTTL(t *testing.T) {
	t.Parallel()
	const tolerance = 75 * time.Millisecond
	c := New()
	c.MinTTL = 0
	c.MaxTTL = time.Hour
	qname := dns.Fqdn("positive-ttl.example.com")
	c.DnsSet(testMsg(qname, dns.TypeA, 2))
	sh := c.shards[dns.TypeA]
	sh.mu.RLock()
	e, ok := sh.byName[qname]
	sh.mu.RUnlock()
	if !ok {
		t.Fatalf("expected cache entry for %s", qname)
	}
	ttl := time.Until(e.expires)
	expected := 2 * time.Second
	if ttl > expected+tolerance || ttl < expected-tolerance {
		t.Fatalf("unexpected ttl got=%s want=%s±%s", ttl, expected, tolerance)
	}
}

func TestCacheNegativeUsesNXTTL(t *testing.T) {
	t.Parallel()
	const tolerance = 75 * time.Millisecond
	c := New()
	c.MinTTL = 0
	c.NXTTL = 12 * time.Second
	qname := dns.Fqdn("negative-ttl.example.org")
	msg := new(dns.Msg)
	msg.SetQuestion(qname, dns.TypeAAAA)
	msg.Rcode = dns.RcodeNameError
	msg.Ns = append(msg.Ns, &dns.SOA{
		Hdr: dns.RR_Header{
			Name:   qname,
			Rrtype: dns.TypeSOA,
			Class:  dns.ClassINET,
			Ttl:    3600,
		},
		Ns:     "ns1.example.org.",
		Mbox:   "hostmaster.example.org.",
		Serial: 1,
		Minttl: 900,
	})
	c.DnsSet(msg)
	sh := c.shards[dns.TypeAAAA]
	sh.mu.RLock()
	e, ok := sh.byName[qname]
	sh.mu.RUnlock()
	if !ok {
		t.Fatalf("expected cache entry for %s", qname)
	}
	ttl := time.Until(e.expires)
	if ttl > c.NXTTL+tolerance || ttl < c.NXTTL-tolerance {
		t.Fatalf("unexpected ttl got=%s want=%s±%s", ttl, c.NXTTL, tolerance)
	}
}

func TestCacheGetSetsZeroAndExpires(t *testing.T) {
	t.Parallel()
	c := New()
	c.MinTTL = 0
	qname := dns.Fqdn("expiring.example.net")
	c.DnsSet(testMsg(qname, dns.TypeA, 300))
	got := c.DnsGet(qname, dns.TypeA)
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if !got.Zero {
		t.Fatal("cached message must have Zero set")
	}
	if n := c.Entries(); n != 1 {
		t.Fatalf("entries got=%d want=1", n)
	}
	// Force expiry and verify the entry is gone.
	sh := c.shards[dns.TypeA]
	sh.mu.Lock()
	e := sh.byName[qname]
	e.expires = time.Now().Add(-time.Second)
	sh.byName[qname] = e
	sh.mu.Unlock()
	if got = c.DnsGet(qname, dns.TypeA); got != nil {
		t.Fatalf("expected expired entry to miss, got %v", got)
	}
	if n := c.Entries(); n != 0 {
		t.Fatalf("entries got=%d want=0", n)
	}
}

func TestCacheNameMatchingIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	c := New()
	c.DnsSet(testMsg("MiXeD.Example.Com.", dns.TypeA, 300))
	if got := c.DnsGet("mixed.example.com.", dns.TypeA); got == nil {
		t.Fatal("expected hit for lowercased name")
	}
	if got := c.DnsGet("MIXED.EXAMPLE.COM.", dns.TypeA); got == nil {
		t.Fatal("expected hit for uppercased name")
	}
	// A case variant must overwrite, not duplicate.
	c.DnsSet(testMsg("mixed.example.com.", dns.TypeA, 300))
	if n := c.Entries(); n != 1 {
		t.Fatalf("entries got=%d want=1", n)
	}
}

func TestCacheIgnoresCacheOriginatedMessages(t *testing.T) {
	t.Parallel()
	c := New()
	qname := dns.Fqdn("zero.example.com")
	msg := testMsg(qname, dns.TypeA, 300)
	msg.Zero = true
	c.DnsSet(msg)
	if got := c.DnsGet(qname, dns.TypeA); got != nil {
		t.Fatalf("expected no entry, got %v", got)
	}
}

func TestCacheHitRatio(t *testing.T) {
	t.Parallel()
	c := New()
	qname := dns.Fqdn("ratio.example.com")
	c.DnsSet(testMsg(qname, dns.TypeA, 300))
	c.DnsGet(qname, dns.TypeA)
	c.DnsGet("miss.example.com.", dns.TypeA)
	if x := c.HitRatio(); x != 50 {
		t.Fatalf("hit ratio got=%v want=50", x)
	}
}
