package guard

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/SocialPulseHQ/SocialPulse/app/models"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/cache"
	"github.com/SocialPulseHQ/SocialPulse/internal/pkg/config"
)

const (
	ipRangeKeyPrefix = "ip_ranges:"
	blockedIPPrefix  = "blocked_ip:"
	ipFetchTimeout   = 5 * time.Second
)

// Provider-published sources for outbound webhook infrastructure ranges.
var ipRangeSources = map[string][]string{
	string(models.PlatformFacebook):  {"https://developers.facebook.com/docs/graph-api/webhooks/getting-started#ip-ranges"},
	string(models.PlatformInstagram): {"https://developers.facebook.com/docs/graph-api/webhooks/getting-started#ip-ranges"},
	string(models.PlatformTwitter):   {"https://developer.twitter.com/en/docs/twitter-api/enterprise/account-activity-api/guides/ip-addresses"},
	string(models.PlatformLinkedIn):  {"https://learn.microsoft.com/en-us/linkedin/shared/api-guide/webhook-ips"},
}

// Fallback ranges used until a refresh succeeds.
var defaultRanges = map[string][]string{
	string(models.PlatformFacebook):  {"31.13.24.0/21", "31.13.64.0/18", "66.220.144.0/20", "69.63.176.0/20", "173.252.64.0/18"},
	string(models.PlatformInstagram): {"31.13.24.0/21", "31.13.64.0/18", "66.220.144.0/20", "69.63.176.0/20", "173.252.64.0/18"},
	string(models.PlatformTwitter):   {"199.59.148.0/22", "199.16.156.0/22", "192.133.76.0/22", "64.63.15.0/24"},
	string(models.PlatformLinkedIn):  {"108.174.0.0/20", "144.2.192.0/20", "65.156.227.0/24"},
}

var cidrPattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}/\d{1,2}\b`)

// IPRangeManager maintains per-platform CIDR allow-lists, refreshed from
// provider-published sources on a TTL with the previous set kept on any
// fetch failure.
type IPRangeManager struct {
	cfg *config.Config

	mu        sync.RWMutex
	networks  map[string][]*net.IPNet
	refreshed map[string]time.Time
	client    *http.Client
}

func NewIPRangeManager(cfg *config.Config) *IPRangeManager {
	m := &IPRangeManager{
		cfg:       cfg,
		networks:  map[string][]*net.IPNet{},
		refreshed: map[string]time.Time{},
		client:    &http.Client{Timeout: ipFetchTimeout},
	}
	for platform, cidrs := range defaultRanges {
		m.networks[platform] = parseCIDRs(cidrs)
	}
	return m
}

// Allowed reports whether the client IP falls inside the platform's
// published ranges, refreshing the range set when its TTL has lapsed.
func (m *IPRangeManager) Allowed(platform, clientIP string) (bool, error) {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false, fmt.Errorf("unparseable client IP %q", clientIP)
	}

	m.maybeRefresh(platform)

	m.mu.RLock()
	networks := m.networks[platform]
	m.mu.RUnlock()
	if len(networks) == 0 {
		return false, fmt.Errorf("no ranges known for %s", platform)
	}

	for _, n := range networks {
		if n.Contains(ip) {
			return true, nil
		}
	}
	return false, nil
}

func (m *IPRangeManager) maybeRefresh(platform string) {
	m.mu.RLock()
	last := m.refreshed[platform]
	m.mu.RUnlock()
	if time.Since(last) < m.cfg.IPRangeRefreshTTL {
		return
	}

	// Claim the refresh slot before doing network I/O so concurrent
	// requests don't stampede the provider.
	m.mu.Lock()
	if time.Since(m.refreshed[platform]) < m.cfg.IPRangeRefreshTTL {
		m.mu.Unlock()
		return
	}
	m.refreshed[platform] = time.Now()
	m.mu.Unlock()

	cidrs := m.fetchRanges(platform)
	if len(cidrs) == 0 {
		// Fetch failed: try the cached copy from a previous process.
		if cached, err := cache.Get(ipRangeKeyPrefix + platform); err == nil {
			_ = json.Unmarshal([]byte(cached), &cidrs)
		}
	}
	if len(cidrs) == 0 {
		log.Warnf("[Guard] IP range refresh for %s yielded nothing, keeping previous set", platform)
		return
	}

	networks := parseCIDRs(cidrs)
	if len(networks) == 0 {
		return
	}

	m.mu.Lock()
	m.networks[platform] = networks
	m.mu.Unlock()

	if data, err := json.Marshal(cidrs); err == nil {
		_ = cache.Set(ipRangeKeyPrefix+platform, string(data), 2*m.cfg.IPRangeRefreshTTL)
	}
	log.Infof("[Guard] refreshed %d IP ranges for %s", len(networks), platform)
}

// fetchRanges pulls the provider page and extracts anything CIDR-shaped.
// Best effort: any error returns an empty slice and the caller falls back.
func (m *IPRangeManager) fetchRanges(platform string) []string {
	var out []string
	for _, src := range ipRangeSources[platform] {
		resp, err := m.client.Get(src)
		if err != nil {
			log.Warnf("[Guard] IP range fetch failed for %s: %v", platform, err)
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		out = append(out, cidrPattern.FindAllString(string(body), -1)...)
	}
	return out
}

// BlockIP sets a temporary block with an explicit expiry.
func (m *IPRangeManager) BlockIP(clientIP string, ttl time.Duration) error {
	return cache.Set(blockedIPPrefix+clientIP, time.Now().Add(ttl).Unix(), ttl)
}

// IsBlocked reports whether the IP carries an active temporary block.
func (m *IPRangeManager) IsBlocked(clientIP string) (bool, error) {
	return cache.Exists(blockedIPPrefix + clientIP)
}

func parseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		if _, n, err := net.ParseCIDR(c); err == nil {
			out = append(out, n)
		}
	}
	return out
}
