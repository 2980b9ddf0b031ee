package search

import (
	"context"
	"testing"
	"time"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

func TestBuildAnomaliesAckSLAFiresOnOverdueMail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	blue, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	red, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	sla := int64(30 * time.Minute / time.Microsecond)
	now := int64(3 * time.Hour / time.Microsecond)

	_, err := s.CreateMessage(ctx, store.NewMessageInput{
		ProjectID: p.ID, SenderID: blue.ID, Subject: "Ship it", BodyMD: "please ack",
		Importance: types.ImportanceNormal, AckRequired: true, CreatedTS: 0,
		Recipients: []types.MessageRecipient{{AgentID: red.ID, Kind: types.KindTo}},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	e := New(s)
	cards, err := e.BuildAnomalies(ctx, AnomalyInputs{
		ProjectID:          p.ID,
		Now:                now,
		AckSLAMicros:       sla,
		Agents:             []types.Agent{red},
		AgentIdleThreshold: 365 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("BuildAnomalies: %v", err)
	}

	var found *types.AnomalyCard
	for i := range cards {
		if cards[i].Category == types.CategoryAckSLA {
			found = &cards[i]
		}
	}
	if found == nil {
		t.Fatalf("expected an ack_sla card, got %+v", cards)
	}
	if found.Headline == "" || found.Remediation == "" {
		t.Fatalf("unexpected empty card fields: %+v", found)
	}
}

func TestBuildAnomaliesNoCardsWhenNothingOverdue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	red, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	e := New(s)
	cards, err := e.BuildAnomalies(ctx, AnomalyInputs{
		ProjectID:          p.ID,
		Now:                int64(time.Hour / time.Microsecond),
		AckSLAMicros:       int64(30 * time.Minute / time.Microsecond),
		Agents:             []types.Agent{red},
		AgentIdleThreshold: 365 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("BuildAnomalies: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected no anomaly cards, got %+v", cards)
	}
}
