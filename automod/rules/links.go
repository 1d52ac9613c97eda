package rules

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/haven-chat/warden/automod/engine"
	"github.com/haven-chat/warden/automod/event"
)

// community invite links; both the long and short invite hosts
var invitePattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:haven\.chat/invite|hvn\.gg)/[a-zA-Z0-9-]+`)

var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

var _ engine.MessageRuleFunc = InviteLinkMessageRule

// InviteLinkMessageRule flags unsolicited invite links to other communities.
// Invites back to the community the message was posted in are allowed, via
// the per-community "invite-allowlist" set.
func InviteLinkMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleInviteLink) {
		return nil
	}
	matches := invitePattern.FindAllString(c.Event.Content, -1)
	if len(matches) == 0 {
		return nil
	}
	for _, m := range matches {
		code := m[strings.LastIndex(m, "/")+1:]
		if c.InSet("invite-allowlist/"+c.Event.CommunityID, code) {
			continue
		}
		c.Increment("invite-link", c.Event.AuthorID)
		c.AddFinding(event.RuleInviteLink, 30, fmt.Sprintf("invite: %s", m))
		return nil
	}
	return nil
}

var _ engine.MessageRuleFunc = LinkSpamMessageRule

// LinkSpamMessageRule flags messages stuffed with links, bursts of
// link-carrying messages, and links to known-bad domains.
func LinkSpamMessageRule(c *engine.MessageContext) error {
	if !c.RuleApplies(event.RuleLinkSpam) {
		return nil
	}

	for _, raw := range urlPattern.FindAllString(c.Event.Content, -1) {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host != "" && c.InSet("bad-domains", host) {
			c.AddFinding(event.RuleLinkSpam, 50, fmt.Sprintf("bad domain: %s", host))
			return nil
		}
	}

	if c.Policy.LinkCountMax > 0 && c.Event.Links > c.Policy.LinkCountMax {
		c.AddFinding(event.RuleLinkSpam, 30, fmt.Sprintf("%d links in one message", c.Event.Links))
		return nil
	}

	if c.Policy.LinkBurstCount > 0 && c.Event.Links > 0 {
		since := c.Event.CreatedAt.Add(-c.Policy.LinkBurstWindow.Duration)
		total := c.Window.LinksSince(since) + c.Event.Links
		if total >= c.Policy.LinkBurstCount {
			c.AddFinding(event.RuleLinkSpam, 30, fmt.Sprintf("%d links in %s", total, c.Policy.LinkBurstWindow.Duration))
		}
	}
	return nil
}
