package server

import (
	"github.com/gin-gonic/gin"
	rateconfigservice "github.com/uplinelabs/upline/internal/rateconfig/service"
)

type replaceScheduleRequest struct {
	BasePercentage             float64         `json:"base_percentage"`
	NonKitMultiplierPercentage float64         `json:"non_kit_multiplier_percentage"`
	LevelRates                 map[int]float64 `json:"level_rates"`
	Enabled                    bool            `json:"enabled"`
}

// @Summary      Get Commission Schedule
// @Description  Return the active rate schedule
// @Tags         schedule
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /commission/schedule [get]
func (s *Server) GetSchedule(c *gin.Context) {
	schedule, err := s.rateSvc.GetActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, schedule)
}

// @Summary      Replace Commission Schedule
// @Description  Validate and atomically swap in a new rate schedule
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Param        request body replaceScheduleRequest true "Replace Schedule Request"
// @Success      200  {object}  DataResponse
// @Router       /commission/schedule [put]
func (s *Server) ReplaceSchedule(c *gin.Context) {
	var req replaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.rateSvc.Replace(c.Request.Context(), rateconfigservice.ReplaceInput{
		BasePercentage:             req.BasePercentage,
		NonKitMultiplierPercentage: req.NonKitMultiplierPercentage,
		LevelRates:                 req.LevelRates,
		Enabled:                    req.Enabled,
		ActorID:                    actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, schedule)
}
