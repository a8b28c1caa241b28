package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"tournament-arena-system/models"
	"tournament-arena-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errAlreadyPaid aborts the payout transaction when the locked re-read finds
// a concurrent request got there first. Mapped to the idempotent success
// message, never surfaced as a failure.
var errAlreadyPaid = errors.New("prize already distributed")

// ResultService runs the two-phase result pipeline: Phase A ingests a proof
// screenshot (audit snapshot, AI extraction, durable upload, submission
// row), Phase B cross-checks the extraction against the frozen audit data
// and credits the wallet, idempotently.
type ResultService struct {
	DB      *gorm.DB
	Vision  *VisionClient
	Wallets *WalletService
}

func NewResultService(db *gorm.DB, vision *VisionClient, wallets *WalletService) *ResultService {
	return &ResultService{DB: db, Vision: vision, Wallets: wallets}
}

// SubmitResult is Phase A. The audit snapshot is read before analysis so
// the reward basis is frozen at submission time; no submission document
// exists unless every earlier step succeeded. On success Phase B is
// triggered immediately and its outcome is returned alongside.
func (s *ResultService) SubmitResult(ctx context.Context, tournamentID, userID string, image []byte, contentType string) (*models.ResultSubmission, string, error) {
	var tournament models.Tournament
	err := s.DB.WithContext(ctx).First(&tournament, "id = ?", tournamentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrTournamentNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("fetch tournament for audit: %w", err)
	}

	var registration models.TournamentRegistration
	err = s.DB.WithContext(ctx).
		First(&registration, "id = ?", models.RegistrationKey(userID, tournamentID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrNotRegistered
	}
	if err != nil {
		return nil, "", fmt.Errorf("fetch registration for audit: %w", err)
	}

	analysis, err := s.Vision.AnalyzeScreenshot(ctx, image, contentType)
	if err != nil {
		return nil, "", err
	}

	// Kill prize is computed once, from the audited reward rate, so later
	// edits to the tournament cannot change a payout already earned.
	killPrize := float64(analysis.Kills) * tournament.KillReward

	ext := extensionForContentType(contentType)
	key := fmt.Sprintf("results/%s/%s/%s%s", tournamentID, userID, uuid.NewString(), ext)
	screenshotURL, err := utils.UploadBytesToR2(ctx, image, key, contentType)
	if err != nil {
		return nil, "", fmt.Errorf("upload screenshot: %w", err)
	}

	submission := models.ResultSubmission{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,

		ScreenshotURL: screenshotURL,

		AnalyzedRank:        analysis.Rank,
		AnalyzedKills:       analysis.Kills,
		AnalyzedMaxCapacity: analysis.MaxCapacity,
		AnalyzedPlayerName:  analysis.PlayerName,

		AuditedMaxTeams:   tournament.MaxTeams,
		AuditedKillReward: tournament.KillReward,
		AuditedPrizePool:  tournament.PrizePool,

		KillPrize: killPrize,
		Status:    models.StatusPendingVerification,
	}
	if err := submission.SetAuditedPlayerIDs(registration.PlayerIDList()); err != nil {
		return nil, "", fmt.Errorf("encode audit snapshot: %w", err)
	}

	if err := s.DB.WithContext(ctx).Create(&submission).Error; err != nil {
		return nil, "", fmt.Errorf("create result submission: %w", err)
	}
	log.Printf("[RESULT] submission %s created for %s in %s (rank %d, kills %d)",
		submission.ID, userID, tournamentID, analysis.Rank, analysis.Kills)

	// Auto-trigger Phase B. The submission is already durable; a failed
	// verification is reported but does not undo the submission.
	message, err := s.DistributePrize(ctx, tournamentID, userID)
	return &submission, message, err
}

// DistributePrize is Phase B. Three layers gate the credit: the status
// idempotency check and two independent cross-checks against the audit
// snapshot. Any failure is written back onto the submission as a
// human-readable reason, best-effort.
func (s *ResultService) DistributePrize(ctx context.Context, tournamentID, userID string) (string, error) {
	var sub models.ResultSubmission
	err := s.DB.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoSubmission
	}
	if err != nil {
		return "", fmt.Errorf("fetch latest submission: %w", err)
	}

	// Idempotency gate: a document already paid is never paid again. This
	// read is un-locked, so the payout transaction below re-checks it under
	// a row lock before crediting.
	if !PaymentDue(&sub) {
		return "Prize already distributed", nil
	}

	if reason := VerifySubmission(&sub); reason != "" {
		s.markVerificationFailed(ctx, &sub, reason)
		return "", &VerificationError{Reason: reason}
	}

	if sub.KillPrize <= 0 {
		if err := s.DB.WithContext(ctx).Model(&sub).
			Update("status", models.StatusVerifiedNoPrize).Error; err != nil {
			return "", fmt.Errorf("mark verified-no-prize: %w", err)
		}
		return "Result verified - no prize amount due", nil
	}

	description := fmt.Sprintf("Kill reward: %d kills x %.2f (submission %s)",
		sub.AnalyzedKills, sub.AuditedKillReward, sub.ID)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The gate above ran outside this transaction; two concurrent
		// requests can both pass it. Re-read under a row lock so only one
		// credit commits.
		var locked models.ResultSubmission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", sub.ID).Error; err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}
		if !PaymentDue(&locked) {
			return errAlreadyPaid
		}
		if err := s.Wallets.IncrementWithdrawable(tx, userID, sub.KillPrize,
			models.TransactionTypeKillReward, tournamentID, description); err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&locked).Updates(map[string]interface{}{
			"status":                      models.StatusPrizeDistributed,
			"paid_at":                     &now,
			"verification_failure_reason": "",
		}).Error
	})
	if errors.Is(err, errAlreadyPaid) {
		return "Prize already distributed", nil
	}
	if err != nil {
		// The credit did not commit, so the submission must not read as
		// distributed.
		s.markVerificationFailed(ctx, &sub, "payout failed: "+err.Error())
		return "", fmt.Errorf("distribute prize: %w", err)
	}

	log.Printf("[RESULT] payout for %s in %s: %.2f (%s)", userID, tournamentID, sub.KillPrize, description)
	return fmt.Sprintf("Prize of %.2f credited to wallet", sub.KillPrize), nil
}

// VerifySubmission runs the two cross-checks against the frozen audit
// snapshot and returns the failure reason, or "" when the submission is
// consistent. It is pure.
func VerifySubmission(sub *models.ResultSubmission) string {
	if sub.AnalyzedMaxCapacity != sub.AuditedMaxTeams {
		return fmt.Sprintf("match size discrepancy: screenshot shows %d slots, tournament has %d",
			sub.AnalyzedMaxCapacity, sub.AuditedMaxTeams)
	}
	name := NormalizePlayerName(sub.AnalyzedPlayerName)
	for _, id := range sub.AuditedPlayerIDList() {
		if NormalizePlayerName(id) == name {
			return ""
		}
	}
	return fmt.Sprintf("player mismatch: %q is not in the registered lineup", sub.AnalyzedPlayerName)
}

// PaymentDue reports whether a submission still needs its wallet credit.
// A submission already marked distributed must never be paid again, even when
// the caller's earlier un-locked read saw it as pending.
func PaymentDue(sub *models.ResultSubmission) bool {
	return sub.Status != models.StatusPrizeDistributed
}

// NormalizePlayerName folds case and whitespace for the lineup comparison.
func NormalizePlayerName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// markVerificationFailed persists the failure reason for audit. This is
// best-effort: a secondary failure here is logged and swallowed so it never
// masks the original failure returned to the caller.
func (s *ResultService) markVerificationFailed(ctx context.Context, sub *models.ResultSubmission, reason string) {
	err := s.DB.WithContext(ctx).Model(sub).Updates(map[string]interface{}{
		"status":                      models.StatusVerificationFailed,
		"verification_failure_reason": reason,
	}).Error
	if err != nil {
		log.Printf("[RESULT] failed to persist verification failure on %s: %v", sub.ID, err)
	}
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// --- Fiber handlers ---

// SubmitResultHandler accepts a multipart screenshot and runs Phase A plus
// the auto-triggered Phase B.
func (s *ResultService) SubmitResultHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	tournamentID := c.Params("id")

	fileHeader, err := c.FormFile("screenshot")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "screenshot file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read screenshot"})
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read screenshot"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeForExtension(filepath.Ext(fileHeader.Filename))
	}

	submission, message, err := s.SubmitResult(c.UserContext(), tournamentID, userID, image, contentType)
	if err != nil && submission == nil {
		// Phase A failed: no submission document exists.
		log.Printf("[RESULT] submit failed for %s in %s: %v", userID, tournamentID, err)
		return c.Status(HTTPStatus(err)).JSON(fiber.Map{"error": UserMessage(err)})
	}
	if err != nil {
		// Phase A succeeded but the auto-triggered verification failed;
		// the submission is durable and carries the persisted reason.
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message":    "result submitted, verification failed",
			"error":      UserMessage(err),
			"submission": submission,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    message,
		"submission": submission,
	})
}

// GetMySubmissionHandler returns the caller's latest submission for a
// tournament.
func (s *ResultService) GetMySubmissionHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	tournamentID := c.Params("id")

	var sub models.ResultSubmission
	err := s.DB.WithContext(c.UserContext()).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": UserMessage(ErrNoSubmission)})
	}
	if err != nil {
		log.Printf("[RESULT] fetch submission failed for %s in %s: %v", userID, tournamentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(sub)
}

func contentTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
