package mcpshell

// Argument structs for every tool in the external interface (spec §6).
// Field names mirror the wire contract's snake_case JSON vocabulary via
// jsonschema/json tags, in the teacher's postArgs/getArgs idiom.

type sendMessageArgs struct {
	ProjectKey      string   `json:"project_key" jsonschema:"Project slug or absolute path"`
	ProjectPath     string   `json:"project_path,omitempty" jsonschema:"Absolute project path, used on first contact with a new project"`
	Sender          string   `json:"sender" jsonschema:"Sending agent's name"`
	SenderProgram   string   `json:"sender_program,omitempty" jsonschema:"Program name, used as template if sender is being auto-registered"`
	SenderModel     string   `json:"sender_model,omitempty" jsonschema:"Model name, used as template if sender is being auto-registered"`
	To              []string `json:"to,omitempty" jsonschema:"Primary recipient agent names"`
	CC              []string `json:"cc,omitempty" jsonschema:"Carbon-copy recipient agent names"`
	BCC             []string `json:"bcc,omitempty" jsonschema:"Blind carbon-copy recipient agent names"`
	Subject         string   `json:"subject" jsonschema:"Message subject, truncated to 200 characters"`
	BodyMD          string   `json:"body_md" jsonschema:"Message body in Markdown"`
	Importance      string   `json:"importance,omitempty" jsonschema:"low|normal|high|urgent, default normal"`
	AckRequired     bool     `json:"ack_required,omitempty" jsonschema:"Whether recipients must explicitly acknowledge"`
	ThreadID        string   `json:"thread_id,omitempty" jsonschema:"Explicit thread to attach this message to"`
	Topic           string   `json:"topic,omitempty" jsonschema:"Reserved for future use; validated but not persisted"`
	AttachmentPaths []string `json:"attachment_paths,omitempty" jsonschema:"Filesystem paths to attach"`
	Broadcast       bool     `json:"broadcast,omitempty" jsonschema:"Not implemented; always refused"`
}

type replyMessageArgs struct {
	ProjectKey  string   `json:"project_key" jsonschema:"Project slug or absolute path"`
	ProjectPath string   `json:"project_path,omitempty" jsonschema:"Absolute project path"`
	Sender      string   `json:"sender" jsonschema:"Replying agent's name"`
	MessageID   int64    `json:"message_id" jsonschema:"Original message id being replied to"`
	To          []string `json:"to,omitempty" jsonschema:"Override recipients; defaults to the original sender"`
	CC          []string `json:"cc,omitempty"`
	BCC         []string `json:"bcc,omitempty"`
	BodyMD      string   `json:"body_md" jsonschema:"Reply body in Markdown"`
}

type fetchInboxArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Agent      string `json:"agent" jsonschema:"Agent whose inbox to synthesize"`
	Bucket     int    `json:"bucket,omitempty" jsonschema:"Restrict to one priority bucket 1-7, 0 for all"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum entries returned after bucketing and sorting, default 200"`
}

type messageRefArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Agent      string `json:"agent" jsonschema:"Acting agent's name"`
	MessageID  int64  `json:"message_id" jsonschema:"Target message id"`
}

type reservePathsArgs struct {
	ProjectKey string   `json:"project_key" jsonschema:"Project slug"`
	ProjectPath string  `json:"project_path,omitempty" jsonschema:"Absolute project path"`
	Agent      string   `json:"agent" jsonschema:"Reserving agent's name"`
	Paths      []string `json:"paths" jsonschema:"Glob patterns to reserve"`
	Exclusive  bool     `json:"exclusive,omitempty" jsonschema:"True for exclusive, false for shared intent; omitted means shared"`
	TTLMinutes int      `json:"ttl_minutes,omitempty" jsonschema:"Reservation lifetime in minutes; default from config"`
}

type releasePathsArgs struct {
	ProjectKey string   `json:"project_key" jsonschema:"Project slug"`
	Agent      string   `json:"agent" jsonschema:"Releasing agent's name"`
	Paths      []string `json:"paths" jsonschema:"Patterns to release"`
}

type renewPathsArgs struct {
	ProjectKey   string   `json:"project_key" jsonschema:"Project slug"`
	Agent        string   `json:"agent" jsonschema:"Renewing agent's name"`
	Paths        []string `json:"paths" jsonschema:"Patterns to renew"`
	ExtendMinutes int     `json:"extend_minutes,omitempty" jsonschema:"Minutes to extend expires_ts by; default from config"`
}

type forceReleaseArgs struct {
	ProjectKey     string  `json:"project_key" jsonschema:"Project slug"`
	ReservationIDs []int64 `json:"reservation_ids" jsonschema:"Reservation row ids to force-release"`
}

type requestContactArgs struct {
	ProjectKey  string `json:"project_key" jsonschema:"Project slug"`
	ProjectPath string `json:"project_path,omitempty" jsonschema:"Absolute project path"`
	Requester   string `json:"requester" jsonschema:"Agent initiating the contact request"`
	Target      string `json:"target" jsonschema:"Agent being asked for approval"`
}

type respondContactArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Requester  string `json:"requester" jsonschema:"Agent who originally requested contact"`
	Target     string `json:"target" jsonschema:"Agent responding to the request"`
	Approve    bool   `json:"approve" jsonschema:"True to approve, false to decline"`
}

type listContactsArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Agent      string `json:"agent" jsonschema:"Agent whose contact edges to list"`
}

type setContactPolicyArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Agent      string `json:"agent" jsonschema:"Agent whose policy to update"`
	Policy     string `json:"policy" jsonschema:"open|auto|contacts_only|block_all"`
}

type searchMessagesArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Query      string `json:"query" jsonschema:"Free-text query"`
	Importance string `json:"importance,omitempty" jsonschema:"Filter by importance"`
	SinceISO   string `json:"since,omitempty" jsonschema:"ISO-8601 lower bound on created_ts"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum results, default 20"`
}

type summarizeThreadArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	ThreadID   string `json:"thread_id" jsonschema:"Thread to summarize"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum messages, default 50"`
}

type ensureProjectArgs struct {
	ProjectKey  string `json:"project_key" jsonschema:"Canonical short slug for the project"`
	ProjectPath string `json:"project_path" jsonschema:"Absolute filesystem path identifying the project"`
}

type registerAgentArgs struct {
	ProjectKey        string `json:"project_key" jsonschema:"Project slug"`
	ProjectPath       string `json:"project_path,omitempty" jsonschema:"Absolute project path, used on first contact"`
	Name              string `json:"name" jsonschema:"Agent name, unique within the project"`
	Program           string `json:"program,omitempty" jsonschema:"Program identifier, e.g. claude-code"`
	Model             string `json:"model,omitempty" jsonschema:"Model identifier"`
	TaskDescription   string `json:"task_description,omitempty" jsonschema:"Free-text description of current task"`
	ContactPolicy     string `json:"contact_policy,omitempty" jsonschema:"open|auto|contacts_only|block_all, default auto"`
	AttachmentsPolicy string `json:"attachments_policy,omitempty" jsonschema:"auto|inline|file, default auto"`
}

type whoisArgs struct {
	ProjectKey string `json:"project_key" jsonschema:"Project slug"`
	Agent      string `json:"agent" jsonschema:"Agent name to look up"`
}

type healthCheckArgs struct {
	ProjectKey string `json:"project_key,omitempty" jsonschema:"Project slug; when set, also runs anomaly-card synthesis for that project"`
}
