package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

// Org represents an orgs row
type Org struct {
	ID                string
	Name              string
	Plan              string
	PaymentConfigured bool
	CreatedAt         time.Time
}

func (q *Queries) GetOrgByID(ctx context.Context, id string) (Org, error) {
	var o Org
	err := q.Pool.QueryRow(ctx,
		"SELECT id, name, plan, payment_configured, created_at FROM orgs WHERE id = $1",
		id,
	).Scan(&o.ID, &o.Name, &o.Plan, &o.PaymentConfigured, &o.CreatedAt)
	return o, err
}

func (q *Queries) CreateOrg(ctx context.Context, id, name, plan string) (Org, error) {
	var o Org
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO orgs (id, name, plan) VALUES ($1, $2, $3)
		RETURNING id, name, plan, payment_configured, created_at`,
		id, name, plan,
	).Scan(&o.ID, &o.Name, &o.Plan, &o.PaymentConfigured, &o.CreatedAt)
	return o, err
}

func (q *Queries) SetOrgPaymentConfigured(ctx context.Context, id string, configured bool) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE orgs SET payment_configured = $2 WHERE id = $1",
		id, configured,
	)
	return err
}

// Form represents a forms row
type Form struct {
	ID         string
	OrgID      string
	Name       string
	Slug       string
	Services   []string
	Definition []byte
	Published  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CreateFormParams struct {
	ID         string
	OrgID      string
	Name       string
	Slug       string
	Services   []string
	Definition []byte
}

func (q *Queries) CreateForm(ctx context.Context, p CreateFormParams) (Form, error) {
	var f Form
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO forms (id, org_id, name, slug, services, definition)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, org_id, name, slug, services, definition, published, created_at, updated_at`,
		p.ID, p.OrgID, p.Name, p.Slug, p.Services, p.Definition,
	).Scan(&f.ID, &f.OrgID, &f.Name, &f.Slug, &f.Services, &f.Definition, &f.Published, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (q *Queries) GetFormByID(ctx context.Context, id string) (Form, error) {
	var f Form
	err := q.Pool.QueryRow(ctx,
		`SELECT id, org_id, name, slug, services, definition, published, created_at, updated_at
		FROM forms WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.OrgID, &f.Name, &f.Slug, &f.Services, &f.Definition, &f.Published, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (q *Queries) UpdateFormDefinition(ctx context.Context, id string, services []string, definition []byte) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE forms SET services = $2, definition = $3, updated_at = NOW() WHERE id = $1",
		id, services, definition,
	)
	return err
}

func (q *Queries) SetFormPublished(ctx context.Context, id string, published bool) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE forms SET published = $2, updated_at = NOW() WHERE id = $1",
		id, published,
	)
	return err
}

func (q *Queries) ListFormsByOrg(ctx context.Context, orgID string) ([]Form, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT id, org_id, name, slug, services, definition, published, created_at, updated_at
		FROM forms WHERE org_id = $1 ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forms []Form
	for rows.Next() {
		var f Form
		if err := rows.Scan(&f.ID, &f.OrgID, &f.Name, &f.Slug, &f.Services, &f.Definition, &f.Published, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// Submission represents a submissions row
type Submission struct {
	ID        string
	FormID    string
	Service   string
	Payload   map[string]interface{}
	BotScore  float64
	IsBot     bool
	CreatedAt time.Time
}

type CreateSubmissionParams struct {
	ID       string
	FormID   string
	Service  string
	Payload  map[string]interface{}
	BotScore float64
	IsBot    bool
}

func (q *Queries) CreateSubmission(ctx context.Context, p CreateSubmissionParams) (Submission, error) {
	var s Submission
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO submissions (id, form_id, service, payload, bot_score, is_bot)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, form_id, service, payload, bot_score, is_bot, created_at`,
		p.ID, p.FormID, p.Service, p.Payload, p.BotScore, p.IsBot,
	).Scan(&s.ID, &s.FormID, &s.Service, &s.Payload, &s.BotScore, &s.IsBot, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetSubmissionByID(ctx context.Context, id string) (Submission, error) {
	var s Submission
	err := q.Pool.QueryRow(ctx,
		`SELECT id, form_id, service, payload, bot_score, is_bot, created_at
		FROM submissions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.FormID, &s.Service, &s.Payload, &s.BotScore, &s.IsBot, &s.CreatedAt)
	return s, err
}

func (q *Queries) ListSubmissionsByForm(ctx context.Context, formID string, limit, offset int) ([]Submission, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT id, form_id, service, payload, bot_score, is_bot, created_at
		FROM submissions WHERE form_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		formID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.FormID, &s.Service, &s.Payload, &s.BotScore, &s.IsBot, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (q *Queries) CountSubmissionsSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	var count int
	err := q.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions s
		JOIN forms f ON f.id = s.form_id
		WHERE f.org_id = $1 AND s.created_at >= $2`,
		orgID, since,
	).Scan(&count)
	return count, err
}

func (q *Queries) DeleteBotSubmissionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.Pool.Exec(ctx,
		"DELETE FROM submissions WHERE is_bot AND created_at < $1",
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Attachment represents an attachments row
type Attachment struct {
	ID           string
	SubmissionID string
	StorageID    string
	Name         string
	Size         int64
	MimeType     string
	Status       string
	CreatedAt    time.Time
}

type CreateAttachmentParams struct {
	ID           string
	SubmissionID string
	StorageID    string
	Name         string
	Size         int64
	MimeType     string
	Status       string
}

func (q *Queries) CreateAttachment(ctx context.Context, p CreateAttachmentParams) (Attachment, error) {
	var a Attachment
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO attachments (id, submission_id, storage_id, name, size, mime_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, submission_id, storage_id, name, size, mime_type, status, created_at`,
		p.ID, p.SubmissionID, p.StorageID, p.Name, p.Size, p.MimeType, p.Status,
	).Scan(&a.ID, &a.SubmissionID, &a.StorageID, &a.Name, &a.Size, &a.MimeType, &a.Status, &a.CreatedAt)
	return a, err
}

func (q *Queries) UpdateAttachmentStatus(ctx context.Context, id, status string) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE attachments SET status = $2 WHERE id = $1",
		id, status,
	)
	return err
}

func (q *Queries) GetAttachmentByID(ctx context.Context, id string) (Attachment, error) {
	var a Attachment
	err := q.Pool.QueryRow(ctx,
		`SELECT id, submission_id, storage_id, name, size, mime_type, status, created_at
		FROM attachments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.SubmissionID, &a.StorageID, &a.Name, &a.Size, &a.MimeType, &a.Status, &a.CreatedAt)
	return a, err
}

func (q *Queries) ListAttachmentsBySubmission(ctx context.Context, submissionID string) ([]Attachment, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT id, submission_id, storage_id, name, size, mime_type, status, created_at
		FROM attachments WHERE submission_id = $1 ORDER BY created_at`,
		submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.StorageID, &a.Name, &a.Size, &a.MimeType, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}
