// Package cache provides a TTL-aware DNS answer cache keyed by question
// name and type.
package cache

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

const DefaultMinTTL = 10 * time.Second // always keep answers at least this long
const DefaultMaxTTL = 6 * time.Hour    // never keep answers longer than this
const DefaultNXTTL = time.Hour         // lifetime of NXDOMAIN answers

// maxQtype bounds the per-qtype shard table; larger qtypes are not cached.
const maxQtype = 260

// Cache stores terminal DNS answers per (qname, qtype), sharded by qtype.
// The TTL fields may be adjusted before first use but not after.
type Cache struct {
	MinTTL  time.Duration
	MaxTTL  time.Duration
	NXTTL   time.Duration
	lookups atomic.Uint64
	hits    atomic.Uint64
	shards  []*shard
}

func New() *Cache {
	shards := make([]*shard, maxQtype+1)
	for i := range shards {
		shards[i] = newShard()
	}
	return &Cache{
		MinTTL: DefaultMinTTL,
		MaxTTL: DefaultMaxTTL,
		NXTTL:  DefaultNXTTL,
		shards: shards,
	}
}

// DnsSet stores a copy of msg under its question, clamped to the configured
// TTL bounds. Messages already marked as cache-originated are ignored.
func (c *Cache) DnsSet(msg *dns.Msg) {
	if c != nil && msg != nil && !msg.Zero && len(msg.Question) == 1 {
		if qtype := msg.Question[0].Qtype; qtype <= maxQtype {
			msg = msg.Copy()
			msg.Zero = true
			ttl := c.NXTTL
			if msg.Rcode != dns.RcodeNameError {
				ttl = max(c.MinTTL, time.Duration(minMsgTTL(msg))*time.Second)
				ttl = min(c.MaxTTL, ttl)
			}
			c.shards[qtype].set(msg, ttl)
		}
	}
}

// DnsGet returns the cached message for qname and qtype, or nil. Name
// matching is case insensitive. The result has dns.Msg.Zero set and must
// be treated as immutable.
func (c *Cache) DnsGet(qname string, qtype uint16) (msg *dns.Msg) {
	if c != nil {
		c.lookups.Add(1)
		if qtype <= maxQtype {
			if msg = c.shards[qtype].get(qname); msg != nil {
				c.hits.Add(1)
			}
		}
	}
	return
}

// HitRatio returns the hit ratio as a percentage.
func (c *Cache) HitRatio() (n float64) {
	if c != nil {
		if lookups := c.lookups.Load(); lookups > 0 {
			n = float64(c.hits.Load()*100) / float64(lookups)
		}
	}
	return
}

// Entries returns the number of live entries.
func (c *Cache) Entries() (n int) {
	if c != nil {
		for _, sh := range c.shards {
			n += sh.entries()
		}
	}
	return
}

// Clear drops all entries.
func (c *Cache) Clear() {
	if c != nil {
		for _, sh := range c.shards {
			sh.clean(time.Time{})
		}
	}
}

// Clean drops expired entries.
func (c *Cache) Clean() {
	if c != nil {
		now := time.Now()
		for _, sh := range c.shards {
			sh.clean(now)
		}
	}
}

// minMsgTTL returns the smallest record TTL in msg, or -1 when msg carries
// no records that have one.
func minMsgTTL(msg *dns.Msg) (minTTL int) {
	minTTL = math.MaxInt
	for _, sec := range [][]dns.RR{msg.Answer, msg.Ns, msg.Extra} {
		for _, rr := range sec {
			if rr != nil && rr.Header().Rrtype != dns.TypeOPT {
				minTTL = min(minTTL, int(rr.Header().Ttl))
			}
		}
	}
	if minTTL == math.MaxInt {
		minTTL = -1
	}
	return
}
