// Package controller provides a Go client for toggling traffic and firewall rules
// on a self-hosted UniFi Network controller.
//
// The client logs in with a local account, detects whether it talks to a UniFi OS
// console (UDM, UDR, Cloud Key Gen2+) or a classic Network application, discovers the
// first site, and reads or flips individual rules.
//
// # Session Handling
//
// Every operation lazily logs in and resolves the site on first use. Login tries
// api/login first and api/auth/login second; success on the latter routes all further
// requests through the console's proxy/network/ prefix. Session cookies and the
// X-Csrf-Token header are carried automatically. Concurrent operations share one
// session and wait for a login already in progress.
//
// # Rules
//
// Traffic rules are keyed by description and switch between ALLOW and BLOCK.
// Firewall rules are keyed by name and switch between accept and drop.
// A toggle re-reads the rule set and writes the whole rule object back with only
// the action changed, so fields this package does not model are preserved.
//
// # Rate Limiting and Retries
//
// Reads and writes use separate rate limiters (1000 and 60 requests per minute by
// default). Retries are off by default; when enabled they only apply to reads.
//
// # Example Usage
//
//	client, err := controller.New("192.168.1.1", "admin", "secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rules, err := client.ListTrafficRules(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for key, rule := range rules {
//	    fmt.Printf("%s: %s\n", key, rule.Action)
//	}
//
//	if err := client.SetTrafficRule(ctx, "Kids tablets", false); err != nil {
//	    var notFound *controller.NotFoundError
//	    if errors.As(err, &notFound) {
//	        ...
//	    }
//	}
package controller
