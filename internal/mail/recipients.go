package mail

import (
	"context"

	"github.com/dicklesworth/agentmail/internal/contact"
	"github.com/dicklesworth/agentmail/internal/types"
)

// resolvedRecipient holds one resolved agent; the kind it was addressed
// as, after precedence dedup, is given by which resolvedRecipients
// bucket (to, cc or bcc) holds it.
type resolvedRecipient struct {
	agent types.Agent
}

// resolvedRecipients groups resolved recipients by kind, each agent
// appearing in exactly one bucket.
type resolvedRecipients struct {
	to, cc, bcc []resolvedRecipient
}

// resolveRecipients looks up every name in to/cc/bcc, auto-registering
// unknown names when the configuration allows it, and dedups an agent
// appearing in more than one list down to its highest-precedence kind
// (to > cc > bcc). Names that fail to resolve (auto-register disabled,
// or the name collides with nothing registrable) are returned in
// unknown rather than failing the whole call immediately, so the caller
// can build one RECIPIENT_NOT_FOUND error naming all of them.
func (e *Engine) resolveRecipients(ctx context.Context, projectID int64, sender types.Agent, to, cc, bcc []string, now int64) (resolvedRecipients, []string, error) {
	seen := make(map[int64]bool)
	var unknown []string

	resolveOne := func(name string) *types.Agent {
		agent, _, err := e.store.ResolveOrRegisterAgent(ctx, projectID, name, e.cfg.AutoRegisterRecipients, sender, now)
		if err != nil {
			unknown = append(unknown, name)
			return nil
		}
		if seen[agent.ID] {
			return nil
		}
		seen[agent.ID] = true
		return &agent
	}

	var out resolvedRecipients
	for _, name := range to {
		if a := resolveOne(name); a != nil {
			out.to = append(out.to, resolvedRecipient{agent: *a})
		}
	}
	for _, name := range cc {
		if a := resolveOne(name); a != nil {
			out.cc = append(out.cc, resolvedRecipient{agent: *a})
		}
	}
	for _, name := range bcc {
		if a := resolveOne(name); a != nil {
			out.bcc = append(out.bcc, resolvedRecipient{agent: *a})
		}
	}
	return out, unknown, nil
}

func (e *Engine) collectSuggestions(ctx context.Context, projectID int64, unknown []string) map[string][]string {
	suggestions := make(map[string][]string)
	for _, name := range unknown {
		names, err := e.store.SuggestAgentNames(ctx, projectID, name, 5)
		if err == nil {
			suggestions[name] = names
		}
	}
	return suggestions
}

// enforceContactPolicy runs the contact-policy decision for every
// recipient (to+cc+bcc) and fails the whole send if any is blocked or
// requires approval: a partial delivery to some recipients but not
// others would be more surprising than an all-or-nothing refusal.
func (e *Engine) enforceContactPolicy(ctx context.Context, projectID int64, sender types.Agent, recipients resolvedRecipients, threadID string) error {
	senderReservations, _ := e.reservation.Active(ctx, projectID, &sender.ID, nowMicros())

	var blocked []string
	var requireApproval []string

	check := func(r resolvedRecipient) {
		recipientReservations, _ := e.reservation.Active(ctx, projectID, &r.agent.ID, nowMicros())
		decision := e.contact.Decide(ctx, projectID, sender, r.agent, threadID, senderReservations, recipientReservations)
		switch decision {
		case contact.BlockAll:
			blocked = append(blocked, r.agent.Name)
		case contact.RequireApproval:
			requireApproval = append(requireApproval, r.agent.Name)
		}
	}

	for _, r := range recipients.to {
		check(r)
	}
	for _, r := range recipients.cc {
		check(r)
	}
	for _, r := range recipients.bcc {
		check(r)
	}

	if len(blocked) > 0 {
		return contactBlockedError(blocked)
	}
	if len(requireApproval) > 0 {
		return contactRequiredError(requireApproval, nil)
	}
	return nil
}
