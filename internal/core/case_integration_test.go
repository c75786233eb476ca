package core_test

import (
	"context"
	"os"
	"testing"

	"returns-copilot/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE cases, chat_messages, chat_sessions, order_items, orders, products CASCADE;

		INSERT INTO products (sku, name, category, is_final_sale, warranty_days) VALUES
		('TEST-TEE', 'Test Tee', 'apparel', false, NULL),
		('TEST-BOOT', 'Test Boot', 'footwear_accessories', false, 365);

		INSERT INTO orders (order_id, placed_at, delivered_at, tracking_status, is_gift, currency) VALUES
		('ORD-T1', now() - interval '10 days', now() - interval '7 days', 'delivered', false, 'USD'),
		('ORD-T2', now() - interval '3 days', NULL, 'in_transit', false, 'USD');

		INSERT INTO order_items (order_id, sku, qty, unit_price) VALUES
		('ORD-T1', 'TEST-TEE', 2, 28.00),
		('ORD-T1', 'UNKNOWN-SKU', 1, 10.00),
		('ORD-T2', 'TEST-BOOT', 1, 189.00);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestCaseService_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewCaseService(pool)

	estimate := decimal.NewFromFloat(48.00)
	method := core.RefundOriginalPayment
	created := &core.Case{
		OrderID:         "ORD-T1",
		Reason:          "Quality issue",
		CustomerMessage: "The seam ripped after one wear",
		PhotosRequired:  true,
		Status:          core.CaseNeedsCustomerPhotos,
		AIDecision: core.Decision{
			Eligible:       true,
			ResolutionType: core.ResolutionWarrantyClaimPending,
			RefundMethod:   &method,
			RefundEstimate: &estimate,
			Currency:       "USD",
			RequiresPhotos: true,
		},
		AIAudit: map[string]any{"complexity": float64(2)},
		PolicyCitations: []core.PolicyCitation{
			{Source: "warranty.md", Excerpt: "Warranty claims require photo evidence"},
		},
	}

	id, err := svc.CreateCase(ctx, created)
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated case id")
	}

	t.Run("GetCase_RoundTrip", func(t *testing.T) {
		got, err := svc.GetCase(ctx, id)
		if err != nil {
			t.Fatalf("GetCase: %v", err)
		}
		if got.Status != core.CaseNeedsCustomerPhotos {
			t.Errorf("expected status needs_customer_photos, got %s", got.Status)
		}
		if !got.AIDecision.RequiresPhotos {
			t.Error("expected requires_photos to survive the round trip")
		}
		if got.AIDecision.RefundEstimate == nil || !got.AIDecision.RefundEstimate.Equal(estimate) {
			t.Errorf("expected refund estimate %s, got %v", estimate, got.AIDecision.RefundEstimate)
		}
		if len(got.PolicyCitations) != 1 || got.PolicyCitations[0].Source != "warranty.md" {
			t.Errorf("unexpected citations: %+v", got.PolicyCitations)
		}
		if len(got.PhotoURLs) != 0 {
			t.Errorf("expected no photos yet, got %v", got.PhotoURLs)
		}
	})

	t.Run("GetCase_Unknown", func(t *testing.T) {
		_, err := svc.GetCase(ctx, "00000000-0000-0000-0000-000000000000")
		if err != core.ErrCaseNotFound {
			t.Errorf("expected ErrCaseNotFound, got %v", err)
		}
	})

	t.Run("AddPhoto_FlipsStatus", func(t *testing.T) {
		got, err := svc.AddPhotoURL(ctx, id, "/uploads/test-1.jpg")
		if err != nil {
			t.Fatalf("AddPhotoURL: %v", err)
		}
		if got.Status != core.CaseReadyForHumanReview {
			t.Errorf("expected status ready_for_human_review after photo, got %s", got.Status)
		}
		if len(got.PhotoURLs) != 1 || got.PhotoURLs[0] != "/uploads/test-1.jpg" {
			t.Errorf("unexpected photo urls: %v", got.PhotoURLs)
		}

		// A second photo appends without touching status.
		got, err = svc.AddPhotoURL(ctx, id, "/uploads/test-2.jpg")
		if err != nil {
			t.Fatalf("AddPhotoURL (second): %v", err)
		}
		if got.Status != core.CaseReadyForHumanReview {
			t.Errorf("expected status unchanged, got %s", got.Status)
		}
		if len(got.PhotoURLs) != 2 {
			t.Errorf("expected 2 photo urls, got %v", got.PhotoURLs)
		}
	})

	t.Run("HumanDecision_Recorded", func(t *testing.T) {
		got, err := svc.SetHumanDecision(ctx, id, core.HumanApproved, "photos show a covered defect")
		if err != nil {
			t.Fatalf("SetHumanDecision: %v", err)
		}
		if got.HumanDecision == nil || *got.HumanDecision != core.HumanApproved {
			t.Errorf("expected approved, got %v", got.HumanDecision)
		}
		if got.HumanNotes == nil || *got.HumanNotes != "photos show a covered defect" {
			t.Errorf("unexpected notes: %v", got.HumanNotes)
		}
	})

	t.Run("FinalReply_ClosesCase", func(t *testing.T) {
		if err := svc.SetFinalReply(ctx, id, "Your replacement ships tomorrow."); err != nil {
			t.Fatalf("SetFinalReply: %v", err)
		}
		got, err := svc.GetCase(ctx, id)
		if err != nil {
			t.Fatalf("GetCase: %v", err)
		}
		if got.Status != core.CaseClosed {
			t.Errorf("expected closed, got %s", got.Status)
		}
		if got.FinalReply == nil || *got.FinalReply != "Your replacement ships tomorrow." {
			t.Errorf("unexpected final reply: %v", got.FinalReply)
		}
	})

	t.Run("ListCases_StatusFilter", func(t *testing.T) {
		closed := core.CaseClosed
		list, err := svc.ListCases(ctx, &closed)
		if err != nil {
			t.Fatalf("ListCases: %v", err)
		}
		if len(list) != 1 || list[0].ID != id {
			t.Errorf("expected only the closed case, got %d cases", len(list))
		}

		open := core.CaseReadyForHumanReview
		list, err = svc.ListCases(ctx, &open)
		if err != nil {
			t.Fatalf("ListCases: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no open cases, got %d", len(list))
		}
	})
}
