package cache

import (
	"sync"
	"time"

	"github.com/miekg/dns"
)

type entry struct {
	msg     *dns.Msg
	expires time.Time
}

// shard holds the entries for one qtype, keyed by canonical question name.
type shard struct {
	mu     sync.RWMutex
	byName map[string]entry
}

func newShard() *shard {
	return &shard{byName: make(map[string]entry)}
}

func (sh *shard) entries() (n int) {
	sh.mu.RLock()
	n = len(sh.byName)
	sh.mu.RUnlock()
	return
}

func (sh *shard) set(msg *dns.Msg, ttl time.Duration) {
	qname := dns.CanonicalName(msg.Question[0].Name)
	expires := time.Now().Add(ttl)
	sh.mu.Lock()
	sh.byName[qname] = entry{msg: msg, expires: expires}
	sh.mu.Unlock()
}

func (sh *shard) get(qname string) *dns.Msg {
	qname = dns.CanonicalName(qname)
	sh.mu.RLock()
	e := sh.byName[qname]
	sh.mu.RUnlock()
	if e.msg != nil {
		if time.Until(e.expires) > 0 {
			return e.msg
		}
		sh.mu.Lock()
		delete(sh.byName, qname)
		sh.mu.Unlock()
	}
	return nil
}

// clean drops entries expired at now; the zero time drops everything.
func (sh *shard) clean(now time.Time) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for qname, e := range sh.byName {
		if now.IsZero() || now.After(e.expires) {
			delete(sh.byName, qname)
		}
	}
}
