package recursor

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"
)

type rootRtt struct {
	addr netip.Addr
	rtt  time.Duration
}

// OrderRoots sorts the root server list by current latency and drops those
// that do not answer within cutoff. Useful before a batch of lookups so the
// first hop goes to a nearby root.
func (r *Resolver) OrderRoots(ctx context.Context, cutoff time.Duration) {
	if _, ok := ctx.Deadline(); !ok {
		newctx, cancel := context.WithTimeout(ctx, cutoff*2)
		defer cancel()
		ctx = newctx
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var l []*rootRtt
	var wg sync.WaitGroup
	for _, addr := range r.rootServers {
		rt := &rootRtt{addr: addr}
		l = append(l, rt)
		wg.Add(1)
		go r.timeRoot(ctx, &wg, rt)
	}
	wg.Wait()
	sort.Slice(l, func(i, j int) bool { return l[i].rtt < l[j].rtt })
	var ordered []netip.Addr
	useIPv6 := false
	for _, rt := range l {
		if rt.rtt <= cutoff {
			useIPv6 = useIPv6 || rt.addr.Is6()
			ordered = append(ordered, rt.addr)
		}
	}
	if len(ordered) > 0 {
		r.rootServers = ordered
		r.useIPv6 = useIPv6
	}
}

func (r *Resolver) timeRoot(ctx context.Context, wg *sync.WaitGroup, rt *rootRtt) {
	defer wg.Done()
	const numProbes = 3
	network := "tcp4"
	if rt.addr.Is6() {
		network = "tcp6"
	}
	rt.rtt = time.Hour
	var rtt time.Duration
	for i := 0; i < numProbes; i++ {
		now := time.Now()
		conn, err := r.DialContext(ctx, network, netip.AddrPortFrom(rt.addr, r.cfg.port()).String())
		if err != nil {
			return
		}
		rtt += time.Since(now)
		_ = conn.Close()
	}
	rt.rtt = rtt / numProbes
}
