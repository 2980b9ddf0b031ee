package mcpshell

import (
	"github.com/dicklesworth/agentmail/internal/types"
	"github.com/dicklesworth/agentmail/internal/wiretime"
)

// Wire view structs render the core's microsecond-epoch timestamps as
// ISO-8601; conversion happens only in this shell package (here and in a
// few tool handlers), since the core itself is format-neutral (spec §6).

type wireProject struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	HumanKey  string `json:"human_key"`
	CreatedAt string `json:"created_at"`
}

func viewProject(p types.Project) wireProject {
	return wireProject{ID: p.ID, Slug: p.Slug, HumanKey: p.HumanKey, CreatedAt: wiretime.ToISO(p.CreatedTS)}
}

type wireAgent struct {
	Name              string `json:"name"`
	Program           string `json:"program,omitempty"`
	Model             string `json:"model,omitempty"`
	TaskDescription   string `json:"task_description,omitempty"`
	ContactPolicy     string `json:"contact_policy"`
	AttachmentsPolicy string `json:"attachments_policy"`
	InceptionAt       string `json:"inception_at"`
	LastActiveAt      string `json:"last_active_at"`
}

func viewAgent(a types.Agent) wireAgent {
	return wireAgent{
		Name: a.Name, Program: a.Program, Model: a.Model, TaskDescription: a.TaskDescription,
		ContactPolicy: string(a.ContactPolicy), AttachmentsPolicy: string(a.AttachmentsPolicy),
		InceptionAt: wiretime.ToISO(a.InceptionTS), LastActiveAt: wiretime.ToISO(a.LastActiveTS),
	}
}

type wireMessage struct {
	ID          int64              `json:"id"`
	Subject     string             `json:"subject"`
	BodyMD      string             `json:"body_md"`
	Importance  string             `json:"importance"`
	AckRequired bool               `json:"ack_required"`
	ThreadID    string             `json:"thread_id,omitempty"`
	Attachments []types.Attachment `json:"attachments,omitempty"`
	CreatedAt   string             `json:"created_at"`
}

func viewMessage(m types.Message) wireMessage {
	return wireMessage{
		ID: m.ID, Subject: m.Subject, BodyMD: m.BodyMD, Importance: string(m.Importance),
		AckRequired: m.AckRequired, ThreadID: m.ThreadID, Attachments: m.Attachments,
		CreatedAt: wiretime.ToISO(m.CreatedTS),
	}
}

func viewMessages(ms []types.Message) []wireMessage {
	out := make([]wireMessage, 0, len(ms))
	for _, m := range ms {
		out = append(out, viewMessage(m))
	}
	return out
}

type wireDeliveryEnvelope struct {
	ProjectKey string      `json:"project_key"`
	Message    wireMessage `json:"message"`
	Recipients []string    `json:"recipients"`
	Count      int         `json:"count"`
}

func viewDelivery(e types.DeliveryEnvelope) wireDeliveryEnvelope {
	return wireDeliveryEnvelope{ProjectKey: e.ProjectKey, Message: viewMessage(e.Message), Recipients: e.Recipients, Count: e.Count}
}

type wireInboxEntry struct {
	Message   wireMessage `json:"message"`
	From      string      `json:"from"`
	Bucket    int         `json:"bucket"`
	Priority  string      `json:"priority"`
	AckStatus string      `json:"ack_status"`
	Read      bool        `json:"read"`
}

func viewInbox(entries []types.InboxEntry) []wireInboxEntry {
	out := make([]wireInboxEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, wireInboxEntry{
			Message: viewMessage(e.Message), From: e.From, Bucket: e.Bucket,
			Priority: e.Priority, AckStatus: e.AckStatus, Read: e.Read,
		})
	}
	return out
}

type wireReservation struct {
	ID          int64  `json:"id"`
	Agent       string `json:"agent,omitempty"`
	PathPattern string `json:"path_pattern"`
	Exclusive   bool   `json:"exclusive"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at"`
	ReleasedAt  string `json:"released_at,omitempty"`
}

func viewReservation(r types.FileReservation) wireReservation {
	out := wireReservation{
		ID: r.ID, PathPattern: r.PathPattern, Exclusive: r.Exclusive,
		CreatedAt: wiretime.ToISO(r.CreatedTS), ExpiresAt: wiretime.ToISO(r.ExpiresTS),
	}
	if r.ReleasedTS != nil {
		out.ReleasedAt = wiretime.ToISO(*r.ReleasedTS)
	}
	return out
}

func viewReservations(rs []types.FileReservation) []wireReservation {
	out := make([]wireReservation, 0, len(rs))
	for _, r := range rs {
		out = append(out, viewReservation(r))
	}
	return out
}

type wireConflict struct {
	A wireReservation `json:"a"`
	B wireReservation `json:"b"`
}

func viewConflicts(cs []types.ReservationConflict) []wireConflict {
	out := make([]wireConflict, 0, len(cs))
	for _, c := range cs {
		out = append(out, wireConflict{A: viewReservation(c.A), B: viewReservation(c.B)})
	}
	return out
}

type wireLink struct {
	Requester string `json:"requester"`
	Target    string `json:"target"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

type wireSearchResult struct {
	Method   string        `json:"method"`
	Messages []wireMessage `json:"messages"`
}

func viewSearchResult(r types.SearchResult) wireSearchResult {
	return wireSearchResult{Method: string(r.Method), Messages: viewMessages(r.Messages)}
}
