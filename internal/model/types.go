package model

// Plan represents a subscription tier
type Plan string

const (
	PlanFree         Plan = "free"
	PlanProfessional Plan = "professional"
	PlanBusiness     Plan = "business"
)

// AttachmentStatus represents attachment record state
type AttachmentStatus string

const (
	AttachmentCreated AttachmentStatus = "CREATED"
	AttachmentFailed  AttachmentStatus = "FAILED"
)

// Org represents a tenant organization
type Org struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Plan              Plan   `json:"plan"`
	PaymentConfigured bool   `json:"paymentConfigured"`
	CreatedAt         string `json:"createdAt,omitempty"`
}

// Form represents a published inquiry page and its workflow definition
type Form struct {
	ID         string   `json:"id"`
	OrgID      string   `json:"orgId"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	Services   []string `json:"services"`
	Definition []byte   `json:"definition"` // service -> step list, as JSON
	Published  bool     `json:"published"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

// Submission represents one finished visitor conversation
type Submission struct {
	ID        string                 `json:"id"`
	FormID    string                 `json:"formId"`
	Service   string                 `json:"service"`
	Payload   map[string]interface{} `json:"payload"`
	BotScore  float64                `json:"botScore"`
	IsBot     bool                   `json:"isBot"`
	CreatedAt string                 `json:"createdAt,omitempty"`
}

// Attachment represents a stored file linked to a submission
type Attachment struct {
	ID           string           `json:"id"`
	SubmissionID string           `json:"submissionId"`
	StorageID    string           `json:"storageId"`
	Name         string           `json:"name"`
	Size         int64            `json:"size"`
	MimeType     string           `json:"mimeType"`
	Status       AttachmentStatus `json:"status"`
	CreatedAt    string           `json:"createdAt,omitempty"`
}
