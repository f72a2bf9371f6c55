package api

// Webhook is one event delivered to the intake. Once assembled it is never
// mutated.
type Webhook interface {
	ID() string
	WebhookLevel() Level
}

type Level string

const (
	LevelPipeline Level = "pipeline"
	LevelJob      Level = "job"
)

type PipelineStatus string

const (
	PipelineStatusSuccess  PipelineStatus = "success"
	PipelineStatusError    PipelineStatus = "error"
	PipelineStatusCanceled PipelineStatus = "canceled"
)

type JobStatus string

const (
	JobStatusSuccess  JobStatus = "success"
	JobStatusError    JobStatus = "error"
	JobStatusCanceled JobStatus = "canceled"
)

type ErrorDomain string

const (
	ErrorDomainProvider ErrorDomain = "provider"
	ErrorDomainUser     ErrorDomain = "user"
)

// Timestamps are RFC 3339 with a numeric offset, see FormatTime.
type PipelineWebhook struct {
	Level Level    `json:"level"`
	Name  string   `json:"name"`
	URL   string   `json:"url"`
	Start string   `json:"start"`
	End   string   `json:"end"`
	Git   *GitInfo `json:"git,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	UniqueID        string           `json:"unique_id"`
	PipelineID      string           `json:"pipeline_id"`
	PartialRetry    bool             `json:"partial_retry"`
	Status          PipelineStatus   `json:"status"`
	PreviousAttempt *RelatedPipeline `json:"previous_attempt,omitempty"`
}

func (w *PipelineWebhook) ID() string {
	return w.UniqueID
}

func (w *PipelineWebhook) WebhookLevel() Level {
	return LevelPipeline
}

type JobWebhook struct {
	Level Level    `json:"level"`
	Name  string   `json:"name"`
	URL   string   `json:"url"`
	Start string   `json:"start"`
	End   string   `json:"end"`
	Git   *GitInfo `json:"git,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	PipelineUniqueID string     `json:"pipeline_unique_id"`
	PipelineName     string     `json:"pipeline_name"`
	JobID            string     `json:"id"`
	Status           JobStatus  `json:"status"`
	QueueTime        int64      `json:"queue_time"`
	Dependencies     []string   `json:"dependencies,omitempty"`
	Node             *HostInfo  `json:"node,omitempty"`
	Error            *ErrorInfo `json:"error,omitempty"`
}

func (w *JobWebhook) ID() string {
	return w.JobID
}

func (w *JobWebhook) WebhookLevel() Level {
	return LevelJob
}

type RelatedPipeline struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type GitInfo struct {
	RepositoryURL  string `json:"repository_url,omitempty"`
	DefaultBranch  string `json:"default_branch,omitempty"`
	Branch         string `json:"branch,omitempty"`
	SHA            string `json:"sha,omitempty"`
	Message        string `json:"message,omitempty"`
	CommitTime     string `json:"commit_time,omitempty"`
	AuthorTime     string `json:"author_time,omitempty"`
	CommitterName  string `json:"committer_name,omitempty"`
	CommitterEmail string `json:"committer_email,omitempty"`
	AuthorName     string `json:"author_name,omitempty"`
	AuthorEmail    string `json:"author_email,omitempty"`
}

type HostInfo struct {
	Hostname  string `json:"hostname,omitempty"`
	Name      string `json:"name,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

type ErrorInfo struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Domain  ErrorDomain `json:"domain"`
}
