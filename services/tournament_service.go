package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"tournament-arena-system/models"
	"tournament-arena-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// TournamentService is the catalog and registration surface: create/list/get
// with derived lifecycle status and countdowns, plus the register endpoint
// backed by the atomic executor.
type TournamentService struct {
	DB            *gorm.DB
	Registrations *RegistrationService
	Countdowns    *CountdownService
}

func NewTournamentService(db *gorm.DB, registrations *RegistrationService, countdowns *CountdownService) *TournamentService {
	return &TournamentService{DB: db, Registrations: registrations, Countdowns: countdowns}
}

// CreateTournament creates a tournament from a multipart form (admin only).
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	name := c.FormValue("name")
	startTimeStr := c.FormValue("start_time")
	if name == "" || startTimeStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and start_time are required"})
	}

	startTime, err := time.Parse(time.RFC3339, startTimeStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}

	entryFee := 0.0
	if v := c.FormValue("entry_fee"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			entryFee = f
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be a non-negative number"})
		}
	}
	killReward := 0.0
	if v := c.FormValue("kill_reward"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			killReward = f
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "kill_reward must be a non-negative number"})
		}
	}
	maxTeams := 0
	if v := c.FormValue("max_teams"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxTeams = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "max_teams must be a non-negative integer"})
		}
	}

	id := uuid.NewString()
	tournament := &models.Tournament{
		ID:           id,
		Slug:         fmt.Sprintf("%s-%s", slug.Make(name), id[:8]),
		Name:         name,
		Description:  c.FormValue("description"),
		Game:         c.FormValue("game"),
		Rules:        c.FormValue("rules"),
		EntryFee:     entryFee,
		PrizePool:    c.FormValue("prize_pool"),
		KillReward:   killReward,
		MaxTeams:     maxTeams,
		StartTime:    startTime,
		RoomID:       c.FormValue("room_id"),
		RoomPassword: c.FormValue("room_password"),
		Status:       models.TournamentStatusDraft,
	}

	if banner, err := c.FormFile("banner"); err == nil && banner.Size > 0 {
		key := "tournaments/banners/" + uuid.NewString() + ".jpg"
		url, err := utils.UploadFileToR2(c.UserContext(), banner, key)
		if err != nil {
			log.Printf("[TOURNAMENT] banner upload failed: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload banner"})
		}
		tournament.BannerURL = url
	}

	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("[TOURNAMENT] create failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(tournament)
}

// GetAllTournaments lists published tournaments decorated with the derived
// lifecycle status and countdown strings. It also feeds the countdown
// ticker, which iterates whatever list was loaded last.
func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	query := s.DB.Order("start_time ASC")
	if c.Query("all") != "true" {
		query = query.Where("status = ?", models.TournamentStatusPublished)
	}
	if err := query.Find(&tournaments).Error; err != nil {
		log.Printf("[TOURNAMENT] list failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}

	now := time.Now()
	countdowns := s.Countdowns.Countdowns()
	for i := range tournaments {
		s.decorate(&tournaments[i], now, countdowns)
	}
	s.Countdowns.SetTournaments(tournaments)

	return c.JSON(tournaments)
}

// GetTournamentByID returns one tournament with live status, countdown and
// up-to-date registration count.
func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": UserMessage(ErrTournamentNotFound)})
		}
		log.Printf("[TOURNAMENT] fetch %s failed: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var count int64
	s.DB.Model(&models.TournamentRegistration{}).
		Where("tournament_id = ?", id).
		Count(&count)
	tournament.RegisteredTeams = int(count)

	s.decorate(&tournament, time.Now(), s.Countdowns.Countdowns())
	return c.JSON(tournament)
}

// UpdateTournamentStatus flips the raw status (publish/cancel/complete).
func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	status := models.TournamentStatus(strings.ToLower(req.Status))
	updates := map[string]interface{}{"status": status}
	switch status {
	case models.TournamentStatusDraft, models.TournamentStatusPublished, models.TournamentStatusCancelled:
	case models.TournamentStatusCompleted:
		now := time.Now()
		updates["completed_at"] = &now
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid status"})
	}

	result := s.DB.Model(&models.Tournament{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		log.Printf("[TOURNAMENT] status update %s failed: %v", id, result.Error)
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": UserMessage(ErrTournamentNotFound)})
	}

	var updated models.Tournament
	s.DB.First(&updated, "id = ?", id)
	s.decorate(&updated, time.Now(), s.Countdowns.Countdowns())
	return c.JSON(updated)
}

// RefreshTournaments is the manual list refresh, debounced to one call per
// two seconds globally.
func (s *TournamentService) RefreshTournaments(c *fiber.Ctx) error {
	if !s.Registrations.RefreshAllowed() {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "refresh is rate-limited, try again shortly",
		})
	}
	return s.GetAllTournaments(c)
}

// RegisterHandler registers the caller's team through the atomic executor.
func (s *TournamentService) RegisterHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	username, _ := c.Locals("user_name").(string)
	tournamentID := c.Params("id")

	var req struct {
		TeamName      string   `json:"team_name"`
		PlayerIDs     []string `json:"player_ids"`
		PaymentMethod string   `json:"payment_method"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if strings.TrimSpace(req.TeamName) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "team_name is required"})
	}

	err := s.Registrations.Register(c.UserContext(), RegisterInput{
		TournamentID:  tournamentID,
		UserID:        userID,
		Username:      username,
		TeamName:      req.TeamName,
		PlayerIDs:     req.PlayerIDs,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		log.Printf("[TOURNAMENT] registration failed for %s in %s: %v", userID, tournamentID, err)
		return c.Status(HTTPStatus(err)).JSON(fiber.Map{"error": UserMessage(err)})
	}
	return c.Status(201).JSON(fiber.Map{"message": "registration successful"})
}

// GetRegistrationsHandler lists a tournament's registered teams.
func (s *TournamentService) GetRegistrationsHandler(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	var regs []models.TournamentRegistration
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("registered_at DESC").
		Find(&regs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch registrations"})
	}
	return c.JSON(regs)
}

// decorate fills the derived fields and hides room credentials until the
// room is actually open.
func (s *TournamentService) decorate(t *models.Tournament, now time.Time, countdowns map[string]string) {
	t.LiveStatus = t.Lifecycle(now)
	t.Countdown = countdowns[t.ID]
	if t.LiveStatus != models.StatusRoomOpen && t.LiveStatus != models.StatusOngoing {
		t.RoomID = ""
		t.RoomPassword = ""
	}
}
