package recursor

import (
	"net"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// findAddresses returns the addresses of all A and AAAA records in rrs whose
// owner name equals target. An empty target matches every owner. Returns nil
// when no record matches so callers can distinguish "no glue" from a
// successful extraction.
func findAddresses(target string, rrs []dns.RR) (addrs []netip.Addr) {
	for _, rr := range rrs {
		if target == "" || strings.EqualFold(target, rr.Header().Name) {
			switch rr := rr.(type) {
			case *dns.A:
				if addr := ipToAddr(rr.A); addr.IsValid() {
					addrs = append(addrs, addr)
				}
			case *dns.AAAA:
				if addr := ipToAddr(rr.AAAA); addr.IsValid() {
					addrs = append(addrs, addr)
				}
			}
		}
	}
	return
}

func ipToAddr(ip net.IP) (addr netip.Addr) {
	if ip != nil {
		if v4 := ip.To4(); v4 != nil {
			addr = netip.AddrFrom4([4]byte(v4))
		} else if v6 := ip.To16(); v6 != nil {
			addr = netip.AddrFrom16([16]byte(v6))
		}
	}
	return
}

func dedupAddrs(addrs []netip.Addr) []netip.Addr {
	seen := map[netip.Addr]struct{}{}
	var out []netip.Addr
	for _, addr := range addrs {
		if _, ok := seen[addr]; !ok {
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}
