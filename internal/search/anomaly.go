package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dicklesworth/agentmail/internal/reservation"
	"github.com/dicklesworth/agentmail/internal/types"
)

// AnomalyInputs bundles the aggregate signals the anomaly heuristics
// read. Assembling these is the caller's job (the engines that already
// hold the relevant state) so this package stays a pure synthesis layer
// with no new store access beyond what FetchInbox/Search already need.
type AnomalyInputs struct {
	ProjectID int64
	Now       int64

	AckSLAMicros int64

	// Agents whose inbox should be scanned for ack-overdue/unread mail
	// when building per-agent cards (idle, ack SLA).
	Agents []types.Agent

	ReservationEngine *reservation.Engine

	// ContactBypassCount is the contact engine's fail-open counter
	//; a nonzero, growing count across a window indicates a
	// store health problem worth surfacing, not a mail-delivery bug.
	ContactBypassCount int64

	// AgentIdleThreshold is how long since last_active_ts before an
	// agent is flagged idle.
	AgentIdleThreshold time.Duration

	// ReservationExpiryWarning flags reservations expiring within this
	// window.
	ReservationExpiryWarning time.Duration
}

// BuildAnomalies runs every category's trigger condition concurrently,
// since each reads a disjoint slice of project state, and returns the
// union of cards that fired in a fixed category order regardless of
// which goroutine finishes first.
func (e *Engine) BuildAnomalies(ctx context.Context, in AnomalyInputs) ([]types.AnomalyCard, error) {
	results := make([][]types.AnomalyCard, 5)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cards, err := e.ackSLACards(gctx, in)
		results[0] = cards
		return err
	})
	if in.ReservationEngine != nil {
		g.Go(func() error {
			cards, err := e.reservationConflictCards(gctx, in)
			results[1] = cards
			return err
		})
		g.Go(func() error {
			cards, err := e.reservationExpiryCards(gctx, in)
			results[2] = cards
			return err
		})
	}
	g.Go(func() error {
		results[3] = e.agentIdleCards(in)
		return nil
	})
	g.Go(func() error {
		results[4] = e.toolErrorCards(in)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var cards []types.AnomalyCard
	for _, c := range results {
		cards = append(cards, c...)
	}
	return cards, nil
}

// ackSLACards triggers when any agent has bucket-1 (ack-overdue) mail
// older than 1 hour.
func (e *Engine) ackSLACards(ctx context.Context, in AnomalyInputs) ([]types.AnomalyCard, error) {
	const staleWindow = int64(time.Hour / time.Microsecond)
	var cards []types.AnomalyCard

	for _, agent := range in.Agents {
		entries, err := e.FetchInbox(ctx, in.ProjectID, agent.ID, in.Now, in.AckSLAMicros, BucketAckOverdue, 0)
		if err != nil {
			return nil, err
		}
		var worst int64
		count := 0
		for _, entry := range entries {
			age := in.Now - entry.Message.CreatedTS
			if age < staleWindow {
				continue
			}
			count++
			if age > worst {
				worst = age
			}
		}
		if count == 0 {
			continue
		}
		cards = append(cards, types.AnomalyCard{
			Category:    types.CategoryAckSLA,
			Severity:    types.SeverityWarning,
			Confidence:  1.0,
			Headline:    fmt.Sprintf("%s has %d overdue acknowledgement(s)", agent.Name, count),
			Rationale:   fmt.Sprintf("oldest unacknowledged required message is %s old", time.Duration(worst*1000).Round(time.Minute)),
			Remediation: fmt.Sprintf("acknowledge_message(agent=%q)", agent.Name),
		})
	}
	return cards, nil
}

func (e *Engine) reservationConflictCards(ctx context.Context, in AnomalyInputs) ([]types.AnomalyCard, error) {
	conflicts, err := in.ReservationEngine.ListConflicts(ctx, in.ProjectID, in.Now)
	if err != nil {
		return nil, err
	}
	cards := make([]types.AnomalyCard, 0, len(conflicts))
	for _, c := range conflicts {
		cards = append(cards, types.AnomalyCard{
			Category:    types.CategoryReservationConflict,
			Severity:    types.SeverityCritical,
			Confidence:  1.0,
			Headline:    fmt.Sprintf("reservation conflict on %q vs %q", c.A.PathPattern, c.B.PathPattern),
			Rationale:   "two exclusive reservations held by different agents overlap",
			Remediation: "release_file_reservations or renegotiate scope with the other agent",
		})
	}
	return cards, nil
}

func (e *Engine) reservationExpiryCards(ctx context.Context, in AnomalyInputs) ([]types.AnomalyCard, error) {
	active, err := in.ReservationEngine.Active(ctx, in.ProjectID, nil, in.Now)
	if err != nil {
		return nil, err
	}
	warnMicros := in.ReservationExpiryWarning.Microseconds()
	var cards []types.AnomalyCard
	for _, r := range active {
		if r.ExpiresTS-in.Now > warnMicros {
			continue
		}
		cards = append(cards, types.AnomalyCard{
			Category:    types.CategoryReservationExpiry,
			Severity:    types.SeverityInfo,
			Confidence:  1.0,
			Headline:    fmt.Sprintf("reservation on %q expires soon", r.PathPattern),
			Rationale:   "active reservation is within its expiry warning window",
			Remediation: "renew_file_reservations if work is still in progress",
		})
	}
	return cards, nil
}

func (e *Engine) agentIdleCards(in AnomalyInputs) []types.AnomalyCard {
	thresholdMicros := in.AgentIdleThreshold.Microseconds()
	var cards []types.AnomalyCard
	for _, agent := range in.Agents {
		if in.Now-agent.LastActiveTS < thresholdMicros {
			continue
		}
		cards = append(cards, types.AnomalyCard{
			Category:    types.CategoryAgentIdle,
			Severity:    types.SeverityInfo,
			Confidence:  0.8,
			Headline:    fmt.Sprintf("%s has been idle", agent.Name),
			Rationale:   fmt.Sprintf("last_active_ts is older than the idle threshold of %s", in.AgentIdleThreshold),
			Remediation: "whois to check current task_description before reassigning work",
		})
	}
	return cards
}

// toolErrorCards is the fail-open bypass-counter observability hook.
func (e *Engine) toolErrorCards(in AnomalyInputs) []types.AnomalyCard {
	if in.ContactBypassCount == 0 {
		return nil
	}
	return []types.AnomalyCard{{
		Category:    types.CategoryToolErrors,
		Severity:    types.SeverityWarning,
		Confidence:  1.0,
		Headline:    fmt.Sprintf("%d contact-policy auxiliary query failure(s) bypassed", in.ContactBypassCount),
		Rationale:   "the contact-policy engine fails open on DB errors for its auxiliary signals; repeated bypasses suggest a store health issue",
		Remediation: "health_check to confirm store circuit-breaker state",
	}}
}
