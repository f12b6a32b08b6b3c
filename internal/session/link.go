package session

import "strings"

// dnsLabelMaxLen is the longest CID that still fits in a single DNS label,
// relevant for subdomain-style gateway hosts.
const dnsLabelMaxLen = 63

// LinkBuilder derives shareable links from CIDs. Fallback is used for CIDs
// exceeding the DNS label limit; which host the fallback should actually be
// is an open upstream decision, so current deployments configure both to the
// same gateway.
type LinkBuilder struct {
	PublicGateway   string
	FallbackGateway string
}

// ShareableLink returns "<gateway>/ipfs/<cid>". The format is load-bearing:
// links already shared must keep resolving, so do not change it.
func (b LinkBuilder) ShareableLink(cid string) string {
	gw := b.PublicGateway
	if len(cid) > dnsLabelMaxLen {
		gw = b.FallbackGateway
	}
	return strings.TrimRight(gw, "/") + "/ipfs/" + cid
}
