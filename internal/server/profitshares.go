package server

import (
	"github.com/gin-gonic/gin"
	profitsharedomain "github.com/uplinelabs/upline/internal/profitshare/domain"
	profitshareservice "github.com/uplinelabs/upline/internal/profitshare/service"
	"github.com/uplinelabs/upline/pkg/db/pagination"
)

type createProfitShareRequest struct {
	Year               int     `json:"year"`
	Quarter            int     `json:"quarter"`
	TotalProfit        float64 `json:"total_profit"`
	DistributionMethod string  `json:"distribution_method"`
}

// @Summary      Create Profit Share Run
// @Description  Snapshot the active member set and their frozen shares as a draft run
// @Tags         profit-shares
// @Accept       json
// @Produce      json
// @Param        request body createProfitShareRequest true "Create Run Request"
// @Success      200  {object}  DataResponse
// @Router       /profit-shares [post]
func (s *Server) CreateProfitShareRun(c *gin.Context) {
	var req createProfitShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	run, err := s.profitSvc.CreateRun(c.Request.Context(), profitshareservice.CreateRunInput{
		Year:        req.Year,
		Quarter:     req.Quarter,
		TotalProfit: req.TotalProfit,
		Method:      profitsharedomain.DistributionMethod(req.DistributionMethod),
		ActorID:     actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}

// @Summary      List Profit Share Runs
// @Tags         profit-shares
// @Produce      json
// @Param        page   query  int  false  "Page"
// @Param        limit  query  int  false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /profit-shares [get]
func (s *Server) ListProfitShareRuns(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	runs, total, err := s.profitSvc.ListRuns(c.Request.Context(), query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, runs, query.Pagination.PageInfo(total))
}

// @Summary      Get Profit Share Run
// @Tags         profit-shares
// @Produce      json
// @Param        id  path  string  true  "Run ID"
// @Success      200  {object}  DataResponse
// @Router       /profit-shares/{id} [get]
func (s *Server) GetProfitShareRun(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	run, err := s.profitSvc.GetRun(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}

// @Summary      Approve Profit Share Run
// @Tags         profit-shares
// @Produce      json
// @Param        id  path  string  true  "Run ID"
// @Success      200  {object}  DataResponse
// @Router       /profit-shares/{id}/approve [post]
func (s *Server) ApproveProfitShareRun(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.profitSvc.Approve(c.Request.Context(), id, actorID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	run, err := s.profitSvc.GetRun(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}

// @Summary      Distribute Profit Share Run
// @Description  Pay out an approved run in resumable chunks; repeated calls are no-ops
// @Tags         profit-shares
// @Produce      json
// @Param        id  path  string  true  "Run ID"
// @Success      200  {object}  DataResponse
// @Router       /profit-shares/{id}/distribute [post]
func (s *Server) DistributeProfitShareRun(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.profitSvc.Distribute(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	run, err := s.profitSvc.GetRun(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}
