package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/pkg/models"
)

const profileKey = "profile_id"

type answerRequest struct {
	Outcome models.Outcome `json:"outcome"`
}

type completeTestRequest struct {
	TestID     string            `json:"testId"`
	Score      int               `json:"score"`
	Difficulty models.Difficulty `json:"difficulty"`
}

type rateRequest struct {
	Rate *float64 `json:"rate"`
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArgument("invalid %s %q", name, c.Param(name))
	}
	return id, nil
}

// authorizeProfile lets callers act on their own profile; parents and admins may act on any
func (s *Server) authorizeProfile(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		actor := actorFrom(c)
		if actor.ProfileID != id && !actor.Role.CanManage() {
			return apperr.PermissionDenied("cannot act on profile %d", id)
		}
		c.Set(profileKey, id)
		return next(c)
	}
}

func (s *Server) rateLimited(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow(strconv.FormatInt(profileID(c), 10)) {
			return apperr.RateLimited("too many requests, slow down")
		}
		return next(c)
	}
}

func profileID(c echo.Context) int64 {
	id, _ := c.Get(profileKey).(int64)
	return id
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.InvalidArgument("malformed request body")
	}
	return nil
}

// POST /api/v1/profiles/:id/cards/:card/answers
func (s *Server) recordOutcome(c echo.Context) error {
	cardID, err := parseID(c, "card")
	if err != nil {
		return err
	}
	var req answerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.svc.RecordOutcome(c.Request().Context(), profileID(c), cardID, req.Outcome)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GET /api/v1/profiles/:id/cards/due?theme=&limit=
func (s *Server) getDueCards(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.InvalidArgument("invalid limit %q", raw)
		}
		limit = n
	}
	res, err := s.svc.GetDueCards(c.Request().Context(), profileID(c), c.QueryParam("theme"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/v1/profiles/:id/sync
func (s *Server) awardAndSync(c echo.Context) error {
	var req models.SyncRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.svc.AwardAndSync(c.Request().Context(), profileID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/v1/profiles/:id/tests/complete
func (s *Server) completeTest(c echo.Context) error {
	var req completeTestRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.svc.CompleteTest(c.Request().Context(), profileID(c), req.TestID, req.Score, req.Difficulty)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GET /api/v1/profiles/:id/quests
func (s *Server) getActiveQuests(c echo.Context) error {
	res, err := s.svc.GetActiveQuests(c.Request().Context(), profileID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GET /api/v1/profiles/:id/tokens
func (s *Server) getTokenBalance(c echo.Context) error {
	res, err := s.svc.GetTokenBalance(c.Request().Context(), profileID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// PUT /api/v1/profiles/:id/tokens/rate
func (s *Server) setConversionRate(c echo.Context) error {
	var req rateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Rate == nil {
		return apperr.InvalidArgument("rate is required")
	}
	res, err := s.svc.SetConversionRate(c.Request().Context(), actorFrom(c), profileID(c), *req.Rate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
