package recursor

import (
	"fmt"
	"net/netip"
	"strings"

	_ "embed"

	"github.com/miekg/dns"
)

//go:generate go run ./cmd/genhints named.root

//go:embed named.root
var namedRoot string

// parseHints extracts the root server addresses from a named.root style
// zone file, IPv4 addresses first.
func parseHints(zone string) (hints []netip.Addr, err error) {
	var v4, v6 []netip.Addr
	zp := dns.NewZoneParser(strings.NewReader(zone), ".", "named.root")
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		for _, addr := range findAddresses("", []dns.RR{rr}) {
			if addr.Is4() {
				v4 = append(v4, addr)
			} else {
				v6 = append(v6, addr)
			}
		}
	}
	if err = zp.Err(); err != nil {
		return nil, fmt.Errorf("recursor: parsing root hints: %w", err)
	}
	if hints = append(v4, v6...); len(hints) == 0 {
		return nil, fmt.Errorf("recursor: no root server addresses in hints")
	}
	return
}
