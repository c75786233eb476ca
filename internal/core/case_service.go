package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCaseNotFound is returned when a case id has no matching row.
var ErrCaseNotFound = errors.New("case not found")

// CaseService persists review cases. Serialization of concurrent writes
// to the same case is this layer's responsibility, handled by row-level
// updates; the pipeline itself holds no cross-invocation state.
type CaseService interface {
	CreateCase(ctx context.Context, c *Case) (string, error)
	GetCase(ctx context.Context, caseID string) (*Case, error)
	ListCases(ctx context.Context, status *CaseStatus) ([]Case, error)

	// AddPhotoURL appends an uploaded photo URL. When the case was
	// waiting on customer photos it moves to ready_for_human_review.
	AddPhotoURL(ctx context.Context, caseID, url string) (*Case, error)

	// SetHumanDecision records the reviewer verdict and notes.
	SetHumanDecision(ctx context.Context, caseID string, decision HumanDecision, notes string) (*Case, error)

	// SetFinalReply stores the closing customer message and closes the case.
	SetFinalReply(ctx context.Context, caseID, reply string) error
}

type caseService struct {
	pool *pgxpool.Pool
}

// NewCaseService constructs a CaseService backed by the cases table.
func NewCaseService(pool *pgxpool.Pool) CaseService {
	return &caseService{pool: pool}
}

func (s *caseService) CreateCase(ctx context.Context, c *Case) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.PhotoURLs == nil {
		c.PhotoURLs = []string{}
	}

	decisionJSON, err := json.Marshal(c.AIDecision)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ai_decision: %w", err)
	}
	auditJSON, err := json.Marshal(c.AIAudit)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ai_audit: %w", err)
	}
	citationsJSON, err := json.Marshal(c.PolicyCitations)
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy_citations: %w", err)
	}
	factsJSON, err := json.Marshal(c.OrderFacts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order_facts: %w", err)
	}
	photosJSON, err := json.Marshal(c.PhotoURLs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal photo_urls: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO cases (
			id, order_id, reason, customer_message, wants_store_credit,
			photos_required, status, ai_decision, ai_audit,
			policy_citations, order_facts, photo_urls
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.OrderID, c.Reason, c.CustomerMessage, c.WantsStoreCredit,
		c.PhotosRequired, c.Status, decisionJSON, auditJSON,
		citationsJSON, factsJSON, photosJSON)
	if err != nil {
		return "", fmt.Errorf("failed to insert case: %w", err)
	}
	return c.ID, nil
}

const caseColumns = `
	id, order_id, reason, customer_message, wants_store_credit,
	photos_required, status, ai_decision, ai_audit, policy_citations,
	order_facts, photo_urls, human_decision, human_notes, final_reply,
	created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var decisionJSON, auditJSON, citationsJSON, factsJSON, photosJSON []byte
	err := row.Scan(
		&c.ID, &c.OrderID, &c.Reason, &c.CustomerMessage, &c.WantsStoreCredit,
		&c.PhotosRequired, &c.Status, &decisionJSON, &auditJSON, &citationsJSON,
		&factsJSON, &photosJSON, &c.HumanDecision, &c.HumanNotes, &c.FinalReply,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(decisionJSON, &c.AIDecision); err != nil {
		return nil, fmt.Errorf("failed to decode ai_decision: %w", err)
	}
	if err := json.Unmarshal(auditJSON, &c.AIAudit); err != nil {
		return nil, fmt.Errorf("failed to decode ai_audit: %w", err)
	}
	if err := json.Unmarshal(citationsJSON, &c.PolicyCitations); err != nil {
		return nil, fmt.Errorf("failed to decode policy_citations: %w", err)
	}
	if len(factsJSON) > 0 {
		if err := json.Unmarshal(factsJSON, &c.OrderFacts); err != nil {
			return nil, fmt.Errorf("failed to decode order_facts: %w", err)
		}
	}
	if err := json.Unmarshal(photosJSON, &c.PhotoURLs); err != nil {
		return nil, fmt.Errorf("failed to decode photo_urls: %w", err)
	}
	return &c, nil
}

func (s *caseService) GetCase(ctx context.Context, caseID string) (*Case, error) {
	row := s.pool.QueryRow(ctx, "SELECT"+caseColumns+" FROM cases WHERE id = $1", caseID)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to fetch case %s: %w", caseID, err)
	}
	return c, nil
}

func (s *caseService) ListCases(ctx context.Context, status *CaseStatus) ([]Case, error) {
	query := "SELECT" + caseColumns + " FROM cases"
	args := []any{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}
	return cases, nil
}

func (s *caseService) AddPhotoURL(ctx context.Context, caseID, url string) (*Case, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cases
		SET photo_urls = photo_urls || to_jsonb($2::text),
		    status = CASE WHEN status = $3 THEN $4 ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`, caseID, url, CaseNeedsCustomerPhotos, CaseReadyForHumanReview)
	if err != nil {
		return nil, fmt.Errorf("failed to append photo url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrCaseNotFound
	}
	return s.GetCase(ctx, caseID)
}

func (s *caseService) SetHumanDecision(ctx context.Context, caseID string, decision HumanDecision, notes string) (*Case, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cases
		SET human_decision = $2, human_notes = $3, updated_at = now()
		WHERE id = $1
	`, caseID, decision, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to record human decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrCaseNotFound
	}
	return s.GetCase(ctx, caseID)
}

func (s *caseService) SetFinalReply(ctx context.Context, caseID, reply string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cases
		SET final_reply = $2, status = $3, updated_at = now()
		WHERE id = $1
	`, caseID, reply, CaseClosed)
	if err != nil {
		return fmt.Errorf("failed to store final reply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}
