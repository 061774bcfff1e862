// Package proxy loads the egress proxies used to spread toncenter requests
// across API keys.
package proxy

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
)

const Delimiter = ":::"

//go:embed user_agents.txt
var userAgentsFile string

var UserAgents = loadUserAgents(userAgentsFile)

func loadUserAgents(data string) []string {
	var res []string
	for _, line := range strings.Split(data, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			res = append(res, line)
		}
	}
	return res
}

// Proxy is immutable after load. An empty Address means a direct connection.
type Proxy struct {
	Address   string
	ApiKey    string
	UserAgent string
}

// Name identifies the proxy in logs without leaking credentials.
func (p Proxy) Name() string {
	if p.Address == "" {
		return "direct"
	}
	addr := p.Address
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = addr[i+3:]
	}
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		addr = addr[i+1:]
	}
	return addr
}

// Dialer returns the fasthttp dial function for the proxy, nil for direct
// connections.
func (p Proxy) Dialer() fasthttp.DialFunc {
	addr := p.Address
	switch {
	case addr == "":
		return nil
	case strings.HasPrefix(addr, "socks5://"):
		return fasthttpproxy.FasthttpSocksDialer(addr)
	case strings.HasPrefix(addr, "http://"):
		return fasthttpproxy.FasthttpHTTPDialer(strings.TrimPrefix(addr, "http://"))
	default:
		return fasthttpproxy.FasthttpHTTPDialer(addr)
	}
}

type Pool struct {
	proxies []Proxy
}

func NewPool(proxies []Proxy) *Pool {
	return &Pool{proxies: proxies}
}

// Load reads an "address:::api_key" file, one proxy per line.
func Load(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer f.Close()
	return Parse(f, UserAgents)
}

// Parse reads proxies from r and assigns each one a random user agent.
// Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader, agents []string) (*Pool, error) {
	var proxies []Proxy
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, key, ok := strings.Cut(line, Delimiter)
		if !ok {
			return nil, fmt.Errorf("line %d: expected address%skey", n, Delimiter)
		}
		p := Proxy{Address: strings.TrimSpace(addr), ApiKey: strings.TrimSpace(key)}
		if len(agents) > 0 {
			p.UserAgent = agents[rand.IntN(len(agents))]
		}
		proxies = append(proxies, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(proxies) == 0 {
		return nil, fmt.Errorf("no proxies found")
	}
	return NewPool(proxies), nil
}

func (p *Pool) Proxies() []Proxy {
	return p.proxies
}

func (p *Pool) Len() int {
	return len(p.proxies)
}
