package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"tournament-arena-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// Get returns the user's wallet, creating an empty one on first touch.
func (s *WalletService) Get(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.DB.WithContext(ctx).
		Where(models.Wallet{UserID: userID}).
		FirstOrCreate(&wallet).Error
	if err != nil {
		return nil, fmt.Errorf("fetch wallet for %s: %w", userID, err)
	}
	return &wallet, nil
}

// IncrementWithdrawable atomically credits the withdrawable bucket and
// appends a ledger row, all inside the caller's transaction. The wallet row
// is locked for the duration so concurrent credits serialize.
func (s *WalletService) IncrementWithdrawable(tx *gorm.DB, userID string, amount float64, txType models.TransactionType, tournamentID, description string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %.2f", amount)
	}

	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{UserID: userID}
		if err := tx.Create(&wallet).Error; err != nil {
			return fmt.Errorf("create wallet for %s: %w", userID, err)
		}
	} else if err != nil {
		return fmt.Errorf("lock wallet for %s: %w", userID, err)
	}

	newBalance := wallet.WithdrawableBalance + amount
	if err := tx.Model(&wallet).Update("withdrawable_balance", newBalance).Error; err != nil {
		return fmt.Errorf("credit wallet for %s: %w", userID, err)
	}

	entry := models.WalletTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		TournamentID: tournamentID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: wallet.BonusBalance + newBalance,
		Description:  description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write wallet ledger for %s: %w", userID, err)
	}
	return nil
}

// Deposit credits real funds through the same atomic primitive the payout
// pipeline uses.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount float64) (*models.Wallet, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.IncrementWithdrawable(tx, userID, amount, models.TransactionTypeDeposit, "",
			fmt.Sprintf("Deposit of %.2f", amount))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Transactions lists the user's ledger, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.WalletTransaction
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("fetch wallet transactions for %s: %w", userID, err)
	}
	return entries, nil
}

// --- Fiber handlers ---

func (s *WalletService) GetWalletHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	wallet, err := s.Get(c.UserContext(), userID)
	if err != nil {
		log.Printf("[WALLET] fetch failed for %s: %v", userID, err)
		return c.Status(HTTPStatus(err)).JSON(fiber.Map{"error": UserMessage(err)})
	}
	return c.JSON(fiber.Map{
		"user_id":              wallet.UserID,
		"bonus_balance":        wallet.BonusBalance,
		"withdrawable_balance": wallet.WithdrawableBalance,
		"total_balance":        wallet.TotalBalance(),
	})
}

func (s *WalletService) GetTransactionsHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := s.Transactions(c.UserContext(), userID, limit)
	if err != nil {
		log.Printf("[WALLET] ledger fetch failed for %s: %v", userID, err)
		return c.Status(HTTPStatus(err)).JSON(fiber.Map{"error": UserMessage(err)})
	}
	return c.JSON(entries)
}

func (s *WalletService) DepositHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}
	wallet, err := s.Deposit(c.UserContext(), userID, req.Amount)
	if err != nil {
		log.Printf("[WALLET] deposit failed for %s: %v", userID, err)
		return c.Status(HTTPStatus(err)).JSON(fiber.Map{"error": UserMessage(err)})
	}
	return c.JSON(fiber.Map{
		"message":              "deposit successful",
		"bonus_balance":        wallet.BonusBalance,
		"withdrawable_balance": wallet.WithdrawableBalance,
		"total_balance":        wallet.TotalBalance(),
	})
}
