// Package chain queries a node over JSON-RPC for the facts the account view
// aggregates: voting state, proxy definitions and balances.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"acctview/pkg/config"
	"acctview/pkg/models"
	"acctview/pkg/wire"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	DialTimeout = 10 * time.Second

	ErrNoEndpoint = errors.New("no reachable rpc endpoint")
	// ErrArity is returned with usable capabilities when only the proxy
	// arity lookup failed. AddProxyArgs then holds the configured fallback.
	ErrArity = errors.New("proxy arity lookup failed")
)

// Capabilities describes which batch lookups a node serves.
type Capabilities struct {
	Delegation   bool
	Proxy        bool
	AddProxyArgs int
	Modules      []string
}

// Client is a connection to the first answering endpoint of a chain.
type Client struct {
	cfg config.ChainConfig
	rpc *rpc.Client
	url string
}

// Dial walks the configured endpoints in order and keeps the first that
// answers rpc_modules. The endpoints that failed on the way are returned too.
func Dial(ctx context.Context, chain config.ChainConfig) (*Client, []string, error) {
	chain = chain.WithDefaults()
	var failed []string
	var lastErr error

	for _, url := range chain.RPCURLs {
		dctx, cancel := context.WithTimeout(ctx, DialTimeout)
		rc, err := rpc.DialContext(dctx, url)
		if err != nil {
			cancel()
			failed = append(failed, url)
			lastErr = err
			continue
		}
		c := &Client{cfg: chain, rpc: rc, url: url}
		_, err = c.modules(dctx)
		cancel()
		if err != nil {
			rc.Close()
			failed = append(failed, url)
			lastErr = err
			continue
		}
		return c, failed, nil
	}

	if lastErr == nil {
		return nil, failed, ErrNoEndpoint
	}
	return nil, failed, fmt.Errorf("%w: %v", ErrNoEndpoint, lastErr)
}

// NewClient wraps an already connected rpc client.
func NewClient(chain config.ChainConfig, rc *rpc.Client) *Client {
	return &Client{cfg: chain.WithDefaults(), rpc: rc}
}

func (c *Client) URL() string { return c.url }

func (c *Client) Close() { c.rpc.Close() }

func (c *Client) modules(ctx context.Context) (map[string]string, error) {
	var mods map[string]string
	if err := c.rpc.CallContext(ctx, &mods, "rpc_modules"); err != nil {
		return nil, fmt.Errorf("rpc_modules: %w", err)
	}
	return mods, nil
}

func served(mods map[string]string, method string) bool {
	prefix, _, ok := strings.Cut(method, "_")
	if !ok {
		return false
	}
	_, found := mods[prefix]
	return found
}

// Capabilities reports which lookups the node serves and the proxy
// registration arity that selects the proxy wire shape.
func (c *Client) Capabilities(ctx context.Context) (Capabilities, error) {
	mods, err := c.modules(ctx)
	if err != nil {
		return Capabilities{}, err
	}
	caps := Capabilities{
		Delegation:   served(mods, c.cfg.DelegationMethod),
		Proxy:        served(mods, c.cfg.ProxyMethod),
		AddProxyArgs: c.cfg.AddProxyArgs,
	}
	for name := range mods {
		caps.Modules = append(caps.Modules, name)
	}
	sort.Strings(caps.Modules)

	var arityErr error
	if caps.Proxy && c.cfg.ArityMethod != "" {
		var n int
		if err := c.rpc.CallContext(ctx, &n, c.cfg.ArityMethod); err != nil {
			arityErr = fmt.Errorf("%w: %s: %v", ErrArity, c.cfg.ArityMethod, err)
		} else {
			caps.AddProxyArgs = n
		}
	}
	if caps.AddProxyArgs == 0 {
		caps.AddProxyArgs = wire.StructuredArity
	}
	return caps, arityErr
}

// batch issues one call per address in a single round trip. Results keep
// the order of addrs.
func (c *Client) batch(ctx context.Context, method string, addrs []string) ([]json.RawMessage, error) {
	results := make([]json.RawMessage, len(addrs))
	if len(addrs) == 0 {
		return results, nil
	}
	elems := make([]rpc.BatchElem, len(addrs))
	for i, addr := range addrs {
		elems[i] = rpc.BatchElem{
			Method: method,
			Args:   []interface{}{addr},
			Result: &results[i],
		}
	}
	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return nil, fmt.Errorf("%s batch: %w", method, err)
	}
	for i, e := range elems {
		if e.Error != nil {
			return nil, fmt.Errorf("%s %s: %w", method, addrs[i], e.Error)
		}
	}
	return results, nil
}

func (c *Client) VotingOf(ctx context.Context, addrs []string) ([]json.RawMessage, error) {
	return c.batch(ctx, c.cfg.DelegationMethod, addrs)
}

func (c *Client) Proxies(ctx context.Context, addrs []string) ([]json.RawMessage, error) {
	return c.batch(ctx, c.cfg.ProxyMethod, addrs)
}

// Balance fetches the free balance of one address.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	args := []interface{}{address}
	if c.cfg.BalanceMethod == config.DefaultBalanceMethod {
		args = append(args, "latest")
	}
	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, c.cfg.BalanceMethod, args...); err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.cfg.BalanceMethod, address, err)
	}
	v, err := wire.Quantity(raw)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.cfg.BalanceMethod, address, err)
	}
	return v, nil
}

// Probe dials a single endpoint and reports what it serves.
func Probe(ctx context.Context, chain config.ChainConfig, url string) models.CheckResult {
	res := models.CheckResult{URL: url, Status: "error"}
	chain.RPCURLs = []string{url}

	start := time.Now()
	c, _, err := Dial(ctx, chain)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer c.Close()
	res.LatencyMs = time.Since(start).Milliseconds()

	caps, err := c.Capabilities(ctx)
	res.Modules = caps.Modules
	res.Delegation = caps.Delegation
	res.Proxy = caps.Proxy
	if err != nil {
		res.Error = err.Error()
		if !errors.Is(err, ErrArity) {
			return res
		}
	}
	res.Status = "ok"
	return res
}
