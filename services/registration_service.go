package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tournament-arena-system/models"
	"tournament-arena-system/utils"
	"tournament-arena-system/workers"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	registerAttempts = 3
	registerTimeout  = 10 * time.Second
	refreshInterval  = 2 * time.Second
)

// RegistrationService executes the atomic registration transaction:
// duplicate check, capacity check, bonus-first fee deduction, registration
// row and ledger row, all-or-nothing. Transient failures are retried with
// linear backoff; business-rule failures are terminal.
type RegistrationService struct {
	DB           *gorm.DB
	Connectivity *workers.ConnectivityMonitor

	// NetStatus carries a user-visible transient message ("waiting for
	// network") while an attempt loop observes connectivity loss.
	NetStatus *utils.StateHolder[string]

	refreshLimiter *rate.Limiter

	// attemptFn is one pass of the transaction; tests swap it to exercise
	// the retry loop without a database.
	attemptFn func(ctx context.Context, in RegisterInput) error
	// backoffUnit scales the linear backoff (attempt x unit).
	backoffUnit time.Duration
}

func NewRegistrationService(db *gorm.DB, connectivity *workers.ConnectivityMonitor) *RegistrationService {
	s := &RegistrationService{
		DB:             db,
		Connectivity:   connectivity,
		NetStatus:      utils.NewStateHolder[string](),
		refreshLimiter: rate.NewLimiter(rate.Every(refreshInterval), 1),
		backoffUnit:    time.Second,
	}
	s.attemptFn = s.registerOnce
	return s
}

// RegisterInput is everything the executor needs; the caller's identity is
// passed explicitly, never read from ambient state.
type RegisterInput struct {
	TournamentID  string
	UserID        string
	Username      string
	TeamName      string
	PlayerIDs     []string
	PaymentMethod string
}

// Register runs up to three attempts of the registration transaction with
// linear backoff (attempt x 1s) and a 10s timeout per attempt. A timeout
// counts as retryable; business-rule failures return immediately. While the
// loop runs, a nested observer watches connectivity and is always cancelled
// on return.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) error {
	obsCtx, cancelObserver := context.WithCancel(ctx)
	defer cancelObserver()
	if s.Connectivity != nil {
		go s.observeConnectivity(obsCtx)
	}

	var lastErr error
	for attempt := 1; attempt <= registerAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, registerTimeout)
		err := s.attemptFn(attemptCtx, in)
		cancel()

		if err == nil {
			log.Printf("[REGISTER] %s registered for tournament %s (team %q)", in.UserID, in.TournamentID, in.TeamName)
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		log.Printf("[REGISTER] attempt %d/%d failed for %s: %v", attempt, registerAttempts, in.UserID, err)
		if attempt < registerAttempts {
			backoff := time.Duration(attempt) * s.backoffUnit
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// registerOnce is a single pass of the read-then-write protocol inside one
// database transaction. Reads are taken under row locks so two concurrent
// registrations for the last open slot cannot both commit.
func (s *RegistrationService) registerOnce(ctx context.Context, in RegisterInput) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key := models.RegistrationKey(in.UserID, in.TournamentID)

		var existing models.TournamentRegistration
		err := tx.First(&existing, "id = ?", key).Error
		if err == nil {
			return ErrAlreadyRegistered
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing registration: %w", err)
		}

		var tournament models.Tournament
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&tournament, "id = ?", in.TournamentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTournamentNotFound
		}
		if err != nil {
			return fmt.Errorf("lock tournament: %w", err)
		}

		now := time.Now()
		if !tournament.RegistrationOpen(now) {
			return ErrRegistrationClosed
		}

		if tournament.MaxTeams > 0 {
			// Capacity is counted from registration rows under the
			// tournament lock; the registered_teams display counter is
			// reconciled elsewhere and never trusted here.
			var count int64
			if err := tx.Model(&models.TournamentRegistration{}).
				Where("tournament_id = ?", in.TournamentID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("count registrations: %w", err)
			}
			if int(count) >= tournament.MaxTeams {
				return ErrTournamentFull
			}
		}

		registration := models.TournamentRegistration{
			ID:            key,
			TournamentID:  in.TournamentID,
			UserID:        in.UserID,
			TeamName:      in.TeamName,
			PaymentStatus: "paid",
			PaymentMethod: in.PaymentMethod,
			AmountPaid:    tournament.EntryFee,
			Username:      in.Username,
		}
		if err := registration.SetPlayerIDs(in.PlayerIDs); err != nil {
			return fmt.Errorf("encode player ids: %w", err)
		}

		if tournament.EntryFee > 0 {
			var wallet models.Wallet
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&wallet, "user_id = ?", in.UserID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			if err != nil {
				return fmt.Errorf("lock wallet: %w", err)
			}

			bonusUsed, withdrawableUsed, ok := SplitEntryFee(wallet.BonusBalance, wallet.WithdrawableBalance, tournament.EntryFee)
			if !ok {
				return ErrInsufficientBalance
			}
			newBonus := wallet.BonusBalance - bonusUsed
			newWithdrawable := wallet.WithdrawableBalance - withdrawableUsed
			if err := tx.Model(&wallet).Updates(map[string]interface{}{
				"bonus_balance":        newBonus,
				"withdrawable_balance": newWithdrawable,
			}).Error; err != nil {
				return fmt.Errorf("deduct entry fee: %w", err)
			}

			entry := models.WalletTransaction{
				ID:           uuid.NewString(),
				UserID:       in.UserID,
				TournamentID: in.TournamentID,
				Type:         models.TransactionTypeEntryFee,
				Amount:       -tournament.EntryFee,
				BalanceAfter: newBonus + newWithdrawable,
				Description: fmt.Sprintf("Entry fee for %s (bonus %.2f, cash %.2f)",
					tournament.Name, bonusUsed, withdrawableUsed),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("write fee ledger: %w", err)
			}
		}

		if err := tx.Create(&registration).Error; err != nil {
			return registrationCreateError(err)
		}

		// The tournament's registered_teams counter is intentionally not
		// incremented here; the lifecycle scheduler reconciles it to avoid
		// write contention on the hot tournament row.
		return nil
	})
}

// registrationCreateError maps the insert failure on the composite-key row.
// Two concurrent registrations by the same user can both pass the duplicate
// read; the loser hits the primary-key constraint here and must surface as
// the duplicate, not as a generic failure.
func registrationCreateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("create registration: %w", err)
}

// SplitEntryFee computes the bonus-first deduction: promotional credit is
// exhausted before real funds are touched. ok is false when the combined
// balance cannot cover the fee.
func SplitEntryFee(bonus, withdrawable, fee float64) (bonusUsed, withdrawableUsed float64, ok bool) {
	if bonus+withdrawable < fee {
		return 0, 0, false
	}
	bonusUsed = bonus
	if fee < bonus {
		bonusUsed = fee
	}
	return bonusUsed, fee - bonusUsed, true
}

// RefreshAllowed rate-limits the manual tournament-list refresh to one call
// per two seconds, independent of any retry bookkeeping.
func (s *RegistrationService) RefreshAllowed() bool {
	return s.refreshLimiter.Allow()
}

// observeConnectivity mirrors the live reachability signal into the
// user-visible transient status for the duration of one Register call.
// Losing connectivity never triggers an attempt by itself.
func (s *RegistrationService) observeConnectivity(ctx context.Context) {
	unsubscribe := s.Connectivity.Subscribe(func(online bool) {
		if online {
			s.NetStatus.Set("")
		} else {
			s.NetStatus.Set("Waiting for network connection...")
		}
	})
	defer unsubscribe()
	<-ctx.Done()
}
