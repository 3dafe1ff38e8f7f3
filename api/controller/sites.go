package controller

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-unifi-rules/internal/response"
	"github.com/lexfrei/go-unifi-rules/observability"
)

// DefaultDisplayName is used when the controller does not report its own name.
const DefaultDisplayName = "UniFi Console"

type namedEntry struct {
	Name string `json:"name"`
}

// resolveSite returns the name of the first site the account can see.
// Caller must hold the session gate.
func (c *Client) resolveSite(ctx context.Context, udm bool) (string, error) {
	resp, err := c.get(ctx, c.resolveURL(udm, sitesPath))
	defer response.Close(resp)

	if err := response.Check(resp, err, "failed to list sites"); err != nil {
		c.metrics.RecordError("resolve_site", "SiteError")
		return "", &SiteError{StatusCode: response.StatusCode(err), Err: transportCause(err)}
	}

	sites, err := response.DecodeList[namedEntry](resp.Body, "failed to decode sites")
	if err != nil {
		c.metrics.RecordError("resolve_site", "SiteError")
		return "", &SiteError{Err: err}
	}

	if len(sites) == 0 {
		c.metrics.RecordError("resolve_site", "SiteError")
		return "", &SiteError{Err: errors.New("controller returned no sites")}
	}
	if sites[0].Name == "" {
		c.metrics.RecordError("resolve_site", "SiteError")
		return "", &SiteError{Err: errors.New("first site has no name")}
	}

	c.logger.Info("resolved site",
		observability.Field{Key: "site", Value: sites[0].Name},
		observability.Field{Key: "available", Value: len(sites)},
	)

	return sites[0].Name, nil
}

// DisplayName returns the console name reported by the controller's sysinfo, or
// DefaultDisplayName when the controller does not answer with one.
// Authentication and site errors are returned unchanged.
func (c *Client) DisplayName(ctx context.Context) (string, error) {
	tgt, err := c.ensureReady(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.get(ctx, c.resolveURL(tgt.udm, sysinfoPath(tgt.site)))
	defer response.Close(resp)

	if err != nil {
		return "", errors.Wrap(err, "failed to fetch console name")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("failed to fetch console name",
			observability.Field{Key: "status", Value: resp.StatusCode},
		)
		return DefaultDisplayName, nil
	}

	entries, err := response.DecodeList[namedEntry](resp.Body, "failed to decode sysinfo")
	if err != nil || len(entries) == 0 || entries[0].Name == "" {
		c.logger.Warn("controller sysinfo carries no name, using default",
			observability.Field{Key: "default", Value: DefaultDisplayName},
		)
		return DefaultDisplayName, nil
	}

	return entries[0].Name, nil
}

// transportCause returns err unless it only reports an unexpected status,
// which the typed errors carry as StatusCode instead.
func transportCause(err error) error {
	if response.StatusCode(err) != 0 {
		return nil
	}
	return err
}
