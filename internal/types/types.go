// Package types holds the data model shared across the mail, reservation,
// contact, and search engines.
package types

// Importance represents a message's urgency.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
	ImportanceUrgent Importance = "urgent"
)

// ContactPolicy controls who may initiate contact with an agent.
type ContactPolicy string

const (
	PolicyOpen         ContactPolicy = "open"
	PolicyAuto         ContactPolicy = "auto"
	PolicyContactsOnly ContactPolicy = "contacts_only"
	PolicyBlockAll     ContactPolicy = "block_all"
)

// AttachmentsPolicy controls how inline images are handled for an agent.
type AttachmentsPolicy string

const (
	AttachmentsAuto   AttachmentsPolicy = "auto"
	AttachmentsInline AttachmentsPolicy = "inline"
	AttachmentsFile   AttachmentsPolicy = "file"
)

// RecipientKind is the role a recipient plays on a message.
type RecipientKind string

const (
	KindTo  RecipientKind = "to"
	KindCC  RecipientKind = "cc"
	KindBCC RecipientKind = "bcc"
)

// LinkStatus is the lifecycle state of an AgentLink (contact edge).
type LinkStatus string

const (
	LinkRequested LinkStatus = "requested"
	LinkApproved  LinkStatus = "approved"
	LinkDeclined  LinkStatus = "declined"
	LinkRevoked   LinkStatus = "revoked"
)

// AttachmentType classifies how an attachment was stored.
type AttachmentType string

const (
	AttachmentFile        AttachmentType = "file"
	AttachmentInlineImage AttachmentType = "inline_image"
	AttachmentRawFile     AttachmentType = "raw_file"
)

// Project is the tenant boundary. Created on first EnsureProject, never
// deleted by the core.
type Project struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	HumanKey  string `json:"human_key"`
	CreatedTS int64  `json:"created_ts"`
}

// Agent is a named identity within a project.
type Agent struct {
	ID                int64             `json:"id"`
	GUID              string            `json:"guid"`
	ProjectID         int64             `json:"project_id"`
	Name              string            `json:"name"`
	Program           string            `json:"program,omitempty"`
	Model             string            `json:"model,omitempty"`
	TaskDescription   string            `json:"task_description,omitempty"`
	ContactPolicy     ContactPolicy     `json:"contact_policy"`
	AttachmentsPolicy AttachmentsPolicy `json:"attachments_policy"`
	InceptionTS       int64             `json:"inception_ts"`
	LastActiveTS      int64             `json:"last_active_ts"`
}

// Attachment is per-artifact metadata stored alongside a message.
type Attachment struct {
	Path     string         `json:"path"`
	Type     AttachmentType `json:"type"`
	Bytes    int64          `json:"bytes"`
	MimeType string         `json:"mime_type"`
	Name     string         `json:"name"`
}

// Message is immutable once created.
type Message struct {
	ID           int64        `json:"id"`
	GUID         string       `json:"guid"`
	ProjectID    int64        `json:"project_id"`
	SenderID     int64        `json:"sender_id"`
	Subject      string       `json:"subject"`
	BodyMD       string       `json:"body_md"`
	Importance   Importance   `json:"importance"`
	AckRequired  bool         `json:"ack_required"`
	ThreadID     string       `json:"thread_id,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	CreatedTS    int64        `json:"created_ts"`

	// ArchivedAt is read back from the archived_at column when present;
	// no code path in this repository sets that column.
	ArchivedAt *int64 `json:"archived_at,omitempty"`
}

// MessageRecipient is one row per (message, agent).
type MessageRecipient struct {
	MessageID int64         `json:"message_id"`
	AgentID   int64         `json:"agent_id"`
	Kind      RecipientKind `json:"kind"`
	ReadTS    *int64        `json:"read_ts,omitempty"`
	AckTS     *int64        `json:"ack_ts,omitempty"`
}

// AgentLink is a directed contact edge (a_agent_id -> b_agent_id).
type AgentLink struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	AAgentID  int64      `json:"a_agent_id"`
	BAgentID  int64      `json:"b_agent_id"`
	Status    LinkStatus `json:"status"`
	UpdatedTS int64      `json:"updated_ts"`
}

// FileReservation declares exclusive or shared intent over a glob of paths.
type FileReservation struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	AgentID     int64  `json:"agent_id"`
	PathPattern string `json:"path_pattern"`
	Exclusive   bool   `json:"exclusive"`
	CreatedTS   int64  `json:"created_ts"`
	ExpiresTS   int64  `json:"expires_ts"`
	ReleasedTS  *int64 `json:"released_ts,omitempty"`
}

// Active reports whether the reservation is currently in force.
func (r FileReservation) Active(now int64) bool {
	return r.ReleasedTS == nil && r.ExpiresTS > now
}

// ReservationConflict is one pairwise exclusive-overlap finding.
type ReservationConflict struct {
	A FileReservation `json:"a"`
	B FileReservation `json:"b"`
}

// DeliveryEnvelope is the return payload of a successful send/reply.
type DeliveryEnvelope struct {
	ProjectKey string   `json:"project_key"`
	Message    Message  `json:"message"`
	Recipients []string `json:"recipients"`
	Count      int      `json:"count"`
}

// InboxEntry is one synthesized inbox row.
type InboxEntry struct {
	Message    Message `json:"message"`
	From       string  `json:"from"`
	Bucket     int     `json:"bucket"`
	Priority   string  `json:"priority"`
	AckStatus  string  `json:"ack_status"`
	Read       bool    `json:"read"`
}

// SearchMethod records which retrieval strategy produced a result set.
type SearchMethod string

const (
	SearchMethodFTS          SearchMethod = "fts"
	SearchMethodLikeFallback SearchMethod = "like_fallback"
)

// SearchResult wraps a search response envelope.
type SearchResult struct {
	Method   SearchMethod `json:"method"`
	Messages []Message    `json:"messages"`
}

// AnomalySeverity grades an anomaly card's urgency.
type AnomalySeverity string

const (
	SeverityInfo     AnomalySeverity = "info"
	SeverityWarning  AnomalySeverity = "warning"
	SeverityCritical AnomalySeverity = "critical"
)

// AnomalyCategory classifies an anomaly card's trigger.
type AnomalyCategory string

const (
	CategoryAckSLA              AnomalyCategory = "ack_sla"
	CategoryReservationConflict AnomalyCategory = "reservation_conflict"
	CategoryReservationExpiry   AnomalyCategory = "reservation_expiry"
	CategoryAgentIdle           AnomalyCategory = "agent_idle"
	CategoryToolErrors          AnomalyCategory = "tool_errors"
)

// AnomalyCard is a typed, actionable observation synthesized from project state.
type AnomalyCard struct {
	Category    AnomalyCategory `json:"category"`
	Severity    AnomalySeverity `json:"severity"`
	Confidence  float64         `json:"confidence"`
	Headline    string          `json:"headline"`
	Rationale   string          `json:"rationale"`
	Remediation string          `json:"remediation"`
}
