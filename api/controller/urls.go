package controller

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// udmPrefix is where UniFi OS consoles proxy the Network application.
const udmPrefix = "proxy/network/"

const (
	loginPath     = "api/login"
	authLoginPath = "api/auth/login"
	sitesPath     = "api/self/sites"
)

// loginPaths are tried in order; a success on authLoginPath marks a UniFi OS console.
var loginPaths = []string{loginPath, authLoginPath}

// normalizeHost turns a configured host into a base URL without trailing slash.
// A bare host or host:port is served over https.
func normalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errors.New("host is required")
	}

	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return "", errors.Wrapf(err, "invalid host %q", host)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.Newf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.Newf("invalid host %q", host)
	}

	return strings.TrimRight(host, "/"), nil
}

// resolveURL builds the absolute URL of an endpoint for the given device type.
func (c *Client) resolveURL(udm bool, endpoint string) string {
	endpoint = strings.TrimLeft(endpoint, "/")
	if udm {
		return c.baseURL + "/" + udmPrefix + endpoint
	}
	return c.baseURL + "/" + endpoint
}

func sysinfoPath(site string) string {
	return "api/s/" + url.PathEscape(site) + "/stat/sysinfo"
}

// rulesPath returns the collection endpoint of a rule kind.
func rulesPath(kind Kind, site string) string {
	if kind == KindFirewall {
		return "api/s/" + url.PathEscape(site) + "/rest/firewallrule"
	}
	return "v2/api/site/" + url.PathEscape(site) + "/trafficrules"
}

// rulePath returns the endpoint of a single rule.
func rulePath(kind Kind, site, id string) string {
	return rulesPath(kind, site) + "/" + url.PathEscape(id)
}
