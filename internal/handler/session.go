package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/service"
)

type SessionHandler struct {
	BaseHandler
	service *service.SessionService
}

func NewSessionHandler(logger *slog.Logger, svc *service.SessionService) *SessionHandler {
	return &SessionHandler{
		BaseHandler: BaseHandler{
			logger: logger,
		},
		service: svc,
	}
}

type PathRequest struct {
	Src string `query:"src" json:"src"`
	Dst string `query:"dst" json:"dst"`
}

type PathResponse struct {
	Path []string `json:"path"`
}

type ValueRequest struct {
	Value string `json:"value"`
}

type AssetRequest struct {
	Asset string `json:"asset"`
}

type AccountRequest struct {
	Address string `json:"address"`
}

// Register mounts the session routes on r.
func (h *SessionHandler) Register(r fiber.Router) {
	r.Get("/pairs", h.Pairs())
	r.Get("/assets", h.Assets())
	r.Get("/path", h.Path())
	r.Post("/sessions", h.Create())
	r.Get("/sessions/:id", h.View())
	r.Delete("/sessions/:id", h.Close())
	r.Post("/sessions/:id/account", h.Account())
	r.Post("/sessions/:id/input", h.Input())
	r.Post("/sessions/:id/output", h.Output())
	r.Post("/sessions/:id/source", h.Source())
	r.Post("/sessions/:id/dest", h.Dest())
	r.Post("/sessions/:id/reverse", h.Reverse())
	r.Post("/sessions/:id/swap", h.Swap())
	r.Post("/sessions/:id/allowance", h.Allowance())
	r.Get("/sessions/:id/balances", h.Balances())
	r.Get("/sessions/:id/notifications", h.Notifications())
}

func (h *SessionHandler) Pairs() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(h.service.Pairs())
	}
}

func (h *SessionHandler) Assets() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(h.service.Assets())
	}
}

func (h *SessionHandler) Path() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req PathRequest
		if err := c.Bind().Query(&req); err != nil {
			h.logger.Debug("failed to bind query parameters", "err", err)
			return ErrInvalidQueryParameters
		}
		if req.Src == "" {
			return NewFieldRequired("src")
		}
		if req.Dst == "" {
			return NewFieldRequired("dst")
		}

		path, err := h.service.ResolvePath(market.Asset(req.Src), market.Asset(req.Dst))
		if err != nil {
			return h.handleServiceError(err)
		}
		return c.JSON(PathResponse{Path: path.Strings()})
	}
}

func (h *SessionHandler) Create() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(h.service.Create())
	}
}

func (h *SessionHandler) View() fiber.Handler {
	return func(c fiber.Ctx) error {
		v, err := h.service.View(context.Background(), c.Params("id"))
		if err != nil {
			return h.handleServiceError(err)
		}
		return c.JSON(v)
	}
}

func (h *SessionHandler) Close() fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := h.service.Close(c.Params("id")); err != nil {
			return h.handleServiceError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (h *SessionHandler) Account() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AccountRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}
		return h.respond(c)(h.service.SetAccount(context.Background(), c.Params("id"), req.Address))
	}
}

func (h *SessionHandler) Input() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req ValueRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}
		return h.respond(c)(h.service.EditInput(context.Background(), c.Params("id"), req.Value))
	}
}

func (h *SessionHandler) Output() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req ValueRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}
		return h.respond(c)(h.service.EditOutput(context.Background(), c.Params("id"), req.Value))
	}
}

func (h *SessionHandler) Source() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AssetRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}
		return h.respond(c)(h.service.SelectSource(context.Background(), c.Params("id"), market.Asset(strings.TrimSpace(req.Asset))))
	}
}

func (h *SessionHandler) Dest() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req AssetRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}
		return h.respond(c)(h.service.SelectDest(context.Background(), c.Params("id"), market.Asset(strings.TrimSpace(req.Asset))))
	}
}

func (h *SessionHandler) Reverse() fiber.Handler {
	return func(c fiber.Ctx) error {
		return h.respond(c)(h.service.Reverse(context.Background(), c.Params("id")))
	}
}

func (h *SessionHandler) Swap() fiber.Handler {
	return func(c fiber.Ctx) error {
		return h.respond(c)(h.service.Swap(context.Background(), c.Params("id")))
	}
}

func (h *SessionHandler) Allowance() fiber.Handler {
	return func(c fiber.Ctx) error {
		return h.respond(c)(h.service.IncreaseAllowance(context.Background(), c.Params("id")))
	}
}

func (h *SessionHandler) Balances() fiber.Handler {
	return func(c fiber.Ctx) error {
		b, err := h.service.Balances(context.Background(), c.Params("id"))
		if err != nil {
			return h.handleServiceError(err)
		}
		return c.JSON(b)
	}
}

func (h *SessionHandler) Notifications() fiber.Handler {
	return func(c fiber.Ctx) error {
		notes, err := h.service.Notifications(c.Params("id"))
		if err != nil {
			return h.handleServiceError(err)
		}
		return c.JSON(notes)
	}
}

func (h *SessionHandler) bind(c fiber.Ctx, out any) error {
	if err := c.Bind().JSON(out); err != nil {
		h.logger.Debug("failed to bind request body", "err", err)
		return ErrInvalidBody
	}
	return nil
}

// respond writes the view on success and maps the error otherwise.
func (h *SessionHandler) respond(c fiber.Ctx) func(service.View, error) error {
	return func(v service.View, err error) error {
		if err != nil {
			return h.handleServiceError(err)
		}
		h.logger.Debug("session updated", "session", v.ID, "action", v.Action, "gen", v.Generation)
		return c.JSON(v)
	}
}
