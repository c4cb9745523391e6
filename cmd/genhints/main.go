// Command genhints downloads the current root hints from InterNIC and
// writes them to the named file, for refreshing the embedded named.root.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/miekg/dns"
)

const hintsURL = "https://www.internic.net/domain/named.root"

func fetchHints() (body []byte, err error) {
	var resp *http.Response
	if resp, err = http.Get(hintsURL); err == nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: %s", hintsURL, resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
	}
	return
}

// validate ensures the downloaded zone parses and carries root server
// addresses before it replaces the embedded copy.
func validate(body []byte) (err error) {
	var addrs int
	zp := dns.NewZoneParser(strings.NewReader(string(body)), ".", "named.root")
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		switch rr.(type) {
		case *dns.A, *dns.AAAA:
			addrs++
		}
	}
	if err = zp.Err(); err == nil && addrs == 0 {
		err = fmt.Errorf("no root server addresses in %s", hintsURL)
	}
	return
}

func main() {
	body, err := fetchHints()
	if err == nil {
		if err = validate(body); err == nil {
			out := os.Stdout
			if len(os.Args) > 1 {
				if out, err = os.Create(os.Args[1]); err == nil {
					defer out.Close()
				}
			}
			if err == nil {
				_, err = out.Write(body)
			}
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
