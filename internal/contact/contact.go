// Package contact implements the per-recipient contact-policy decision
// engine: whether sender may message recipient, given the recipient's
// stored policy and a handful of auxiliary signals.
package contact

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dicklesworth/agentmail/internal/pattern"
	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

// Decision is the outcome of evaluating one (sender, recipient) pair.
type Decision string

const (
	Allow           Decision = "allow"
	BlockAll        Decision = "block_all"
	RequireApproval Decision = "require_approval"
)

// Engine evaluates contact policy, computing the recent_ok and approved
// auxiliary signals itself. Auxiliary query failures are fail-open: a
// failure increments BypassCount and the signal is treated as absent,
// never as a reason to block mail delivery.
type Engine struct {
	store              *store.Store
	contactTTL         time.Duration
	recentThreadWindow int
	bypassCount        atomic.Int64
}

func New(s *store.Store, contactTTL time.Duration, recentThreadWindow int) *Engine {
	return &Engine{store: s, contactTTL: contactTTL, recentThreadWindow: recentThreadWindow}
}

// BypassCount reports how many auxiliary-signal queries have failed open
// since process start — an observability hook for the anomaly synthesis
// layer, not a correctness gate.
func (e *Engine) BypassCount() int64 {
	return e.bypassCount.Load()
}

// Decide evaluates the decision table for one recipient. threadID may be
// empty (no thread context yet, e.g. a fresh send with no thread_id).
// senderReservations/recipientReservations are each agent's currently
// active reservations, passed in so the caller (the messaging engine)
// only has to fetch them once per send rather than once per recipient.
func (e *Engine) Decide(ctx context.Context, projectID int64, sender, recipient types.Agent, threadID string, senderReservations, recipientReservations []types.FileReservation) Decision {
	if sender.ID == recipient.ID {
		return Allow
	}

	policy := recipient.ContactPolicy
	switch policy {
	case types.PolicyBlockAll:
		return BlockAll
	case types.PolicyOpen:
		return Allow
	case types.PolicyAuto, types.PolicyContactsOnly:
		// fall through to recent_ok / approved evaluation below
	default:
		// Unknown policy strings are treated as auto
		policy = types.PolicyAuto
	}

	approved, err := e.store.HasApprovedLink(ctx, projectID, sender.ID, recipient.ID)
	if err != nil {
		e.bypassCount.Add(1)
		approved = false
	}

	if policy == types.PolicyContactsOnly {
		if approved {
			return Allow
		}
		return RequireApproval
	}

	// policy == auto
	recentOK := e.recentOK(ctx, projectID, sender, recipient, threadID, senderReservations, recipientReservations)
	if recentOK || approved {
		return Allow
	}
	return RequireApproval
}

// recentOK computes the disjunction of the three recent_ok signals. Each
// auxiliary query failure fails open (signal absent) and increments the
// bypass counter independently.
func (e *Engine) recentOK(ctx context.Context, projectID int64, sender, recipient types.Agent, threadID string, senderReservations, recipientReservations []types.FileReservation) bool {
	if threadID != "" {
		participants, err := e.store.ThreadParticipants(ctx, projectID, threadID, e.recentThreadWindow)
		if err != nil {
			e.bypassCount.Add(1)
		} else if participants[recipient.ID] {
			return true
		}
	}

	recent, err := e.store.RecentContactOK(ctx, projectID, sender.ID, recipient.ID, e.contactTTL, nowMicros())
	if err != nil {
		e.bypassCount.Add(1)
	} else if recent {
		return true
	}

	if reservationsOverlap(senderReservations, recipientReservations) {
		return true
	}

	return false
}

// reservationsOverlap reports whether any of sender's active reservations
// overlaps any of recipient's — the "working in the same region" signal.
func reservationsOverlap(a, b []types.FileReservation) bool {
	for _, ra := range a {
		pa, err := pattern.Compile(ra.PathPattern)
		if err != nil {
			continue
		}
		for _, rb := range b {
			pb, err := pattern.Compile(rb.PathPattern)
			if err != nil {
				continue
			}
			if pa.Overlaps(pb) {
				return true
			}
		}
	}
	return false
}

func nowMicros() int64 {
	return time.Now().UnixMicro()
}
