package execpolicy

import "strings"

// Protocol is a network transport an outbound connection may use, matched
// against network_rule() declarations (spec.md §3 PolicyRule, §4.1).
type Protocol string

const (
	ProtocolHTTP      Protocol = "http"
	ProtocolHTTPS     Protocol = "https"
	ProtocolSocks5TCP Protocol = "socks5-tcp"
	ProtocolSocks5UDP Protocol = "socks5-udp"
)

// NetworkRule grants, denies, or defers a decision for outbound connections
// to host over protocol.
//
// Maps to: codex-rs/execpolicy/src/lib.rs NetworkRule
type NetworkRule struct {
	Host          string
	Protocol      Protocol
	Decision      Decision
	Justification string
}

// CompileNetworkDomains reduces all registered NetworkRules into final
// allow/deny host lists: later rules override earlier ones for the same
// host, and Prompt rules contribute to neither list (spec.md §4.1
// compile_network_domains).
//
// Maps to: codex-rs/execpolicy/src/lib.rs Policy::compile_network_domains
func (p *Policy) CompileNetworkDomains() (allowed, denied []string) {
	final := make(map[string]Decision, len(p.networkRules))
	order := make([]string, 0, len(p.networkRules))
	for _, r := range p.networkRules {
		key := strings.ToLower(r.Host)
		if _, seen := final[key]; !seen {
			order = append(order, key)
		}
		final[key] = r.Decision
	}

	for _, host := range order {
		switch final[host] {
		case DecisionAllow:
			allowed = append(allowed, host)
		case DecisionForbidden:
			denied = append(denied, host)
		}
	}
	return allowed, denied
}

// AddNetworkRule registers a network_rule() declaration.
func (p *Policy) AddNetworkRule(r NetworkRule) {
	p.networkRules = append(p.networkRules, r)
}
