package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"tournament-arena-system/wizard"

	"github.com/gofiber/fiber/v2"
)

// WizardService exposes the registration wizard over HTTP. A machine is
// rebuilt per request from its persisted snapshot, so drafts survive both
// process restarts here and app restarts on the client.
type WizardService struct {
	Store         wizard.SnapshotStore
	Registrations *RegistrationService
}

func NewWizardService(store wizard.SnapshotStore, registrations *RegistrationService) *WizardService {
	return &WizardService{Store: store, Registrations: registrations}
}

type wizardEventRequest struct {
	Type string `json:"type"` // update_data | next | previous | reset | submit
	Data *struct {
		TeamName      *string   `json:"team_name"`
		PlayerIDs     *[]string `json:"player_ids"`
		PaymentMethod *string   `json:"payment_method"`
		TermsAccepted *bool     `json:"terms_accepted"`
	} `json:"data"`
}

// GetStateHandler returns the wizard state, restored from the snapshot.
func (s *WizardService) GetStateHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	tournamentID := c.Params("id")

	m := s.machine(c.UserContext(), userID, tournamentID, "")
	return c.JSON(s.render(m.State()))
}

// EventHandler applies one wizard event and returns the resulting state.
func (s *WizardService) EventHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	username, _ := c.Locals("user_name").(string)
	tournamentID := c.Params("id")

	var req wizardEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	ctx := c.UserContext()
	m := s.machine(ctx, userID, tournamentID, username)

	switch strings.ToLower(req.Type) {
	case "update_data":
		m.UpdateData(ctx, func(d wizard.StepData) wizard.StepData {
			d.TournamentID = tournamentID
			if req.Data == nil {
				return d
			}
			if req.Data.TeamName != nil {
				d.TeamName = *req.Data.TeamName
			}
			if req.Data.PlayerIDs != nil {
				d.PlayerIDs = *req.Data.PlayerIDs
			}
			if req.Data.PaymentMethod != nil {
				d.PaymentMethod = *req.Data.PaymentMethod
			}
			if req.Data.TermsAccepted != nil {
				d.TermsAccepted = *req.Data.TermsAccepted
			}
			return d
		})
	case "next":
		m.Next(ctx)
	case "previous":
		m.Previous(ctx)
	case "reset":
		m.Reset(ctx)
	case "submit":
		if err := m.Submit(ctx); err != nil {
			status := fiber.StatusBadRequest
			if !errors.Is(err, wizard.ErrValidation) {
				status = HTTPStatus(err)
			}
			return c.Status(status).JSON(s.render(m.State()))
		}
		return c.Status(fiber.StatusCreated).JSON(s.render(m.State()))
	default:
		return c.Status(400).JSON(fiber.Map{"error": "unknown event type"})
	}

	return c.JSON(s.render(m.State()))
}

// machine rebuilds the wizard for one user+tournament. The submit callback
// hands the draft to the atomic registration executor; its error text is
// what the wizard records as the last error, so only boundary-translated
// messages are allowed through.
func (s *WizardService) machine(ctx context.Context, userID, tournamentID, username string) *wizard.Machine {
	key := wizard.SnapshotKey(userID, tournamentID)
	submit := func(ctx context.Context, d wizard.StepData) error {
		err := s.Registrations.Register(ctx, RegisterInput{
			TournamentID:  d.TournamentID,
			UserID:        userID,
			Username:      username,
			TeamName:      strings.TrimSpace(d.TeamName),
			PlayerIDs:     d.PlayerIDs,
			PaymentMethod: d.PaymentMethod,
		})
		if err == nil {
			return nil
		}
		if IsBusinessError(err) {
			return err
		}
		log.Printf("[WIZARD] submit failed for %s in %s: %v", userID, d.TournamentID, err)
		return errors.New(UserMessage(err))
	}
	return wizard.NewMachine(ctx, s.Store, key, submit)
}

func (s *WizardService) render(st wizard.State) fiber.Map {
	out := fiber.Map{
		"step":        st.Step.String(),
		"data":        st.Data,
		"is_complete": wizard.IsComplete(st.Data),
	}
	if st.LastError != "" {
		out["error"] = st.LastError
	}
	if msg, ok := s.Registrations.NetStatus.Get(); ok && msg != "" {
		out["network_status"] = msg
	}
	return out
}
