package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	commissiondomain "github.com/uplinelabs/upline/internal/commission/domain"
	"github.com/uplinelabs/upline/internal/commission/repository"
	commissionservice "github.com/uplinelabs/upline/internal/commission/service"
	"github.com/uplinelabs/upline/pkg/db/pagination"
)

// @Summary      List Commissions
// @Description  List commission records with optional status and member filters
// @Tags         commissions
// @Produce      json
// @Param        status       query  string  false  "Status"
// @Param        referrer_id  query  string  false  "Referrer ID"
// @Param        referee_id   query  string  false  "Referee ID"
// @Param        page         query  int     false  "Page"
// @Param        limit        query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /commissions [get]
func (s *Server) ListCommissions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		ReferrerID string `form:"referrer_id"`
		RefereeID  string `form:"referee_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := repository.ListFilter{
		Status: commissiondomain.CommissionStatus(query.Status),
	}
	if query.ReferrerID != "" {
		id, err := snowflake.ParseString(query.ReferrerID)
		if err != nil {
			AbortWithError(c, invalidIDError("referrer_id"))
			return
		}
		filter.ReferrerID = id
	}
	if query.RefereeID != "" {
		id, err := snowflake.ParseString(query.RefereeID)
		if err != nil {
			AbortWithError(c, invalidIDError("referee_id"))
			return
		}
		filter.RefereeID = id
	}

	records, total, err := s.commissionSvc.List(c.Request.Context(), filter, query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, records, query.Pagination.PageInfo(total))
}

// @Summary      Get Commission
// @Tags         commissions
// @Produce      json
// @Param        id  path  string  true  "Commission ID"
// @Success      200  {object}  DataResponse
// @Router       /commissions/{id} [get]
func (s *Server) GetCommission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	record, err := s.commissionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, record)
}

type bulkDecisionRequest struct {
	IDs    []string `json:"ids"`
	Action string   `json:"action"`
	Reason string   `json:"reason"`
}

// @Summary      Bulk Decide Commissions
// @Description  Approve or reject a batch of pending commissions, one transaction per record
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        request body bulkDecisionRequest true "Bulk Decision Request"
// @Success      200  {object}  DataResponse
// @Router       /commissions/bulk-decision [post]
func (s *Server) BulkDecideCommissions(c *gin.Context) {
	var req bulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ids := make([]snowflake.ID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, invalidIDError("ids"))
			return
		}
		ids = append(ids, id)
	}

	result, err := s.commissionSvc.BulkDecide(c.Request.Context(), commissionservice.BulkDecideInput{
		IDs:     ids,
		Action:  commissionservice.BulkAction(req.Action),
		Reason:  req.Reason,
		ActorID: actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}

type adjustCommissionRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

// @Summary      Adjust Commission
// @Description  Replace a paid commission's amount, compensating the original ledger entry
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Commission ID"
// @Param        request  body  adjustCommissionRequest  true  "Adjust Request"
// @Success      200  {object}  DataResponse
// @Router       /commissions/{id}/adjust [post]
func (s *Server) AdjustCommission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req adjustCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.commissionSvc.Adjust(c.Request.Context(), commissionservice.AdjustInput{
		ID:      id,
		Amount:  req.Amount,
		Reason:  req.Reason,
		ActorID: actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	record, err := s.commissionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, record)
}

type resetCommissionRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Reset Commission
// @Description  Return a decided commission to pending, cancelling its ledger entry
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "Commission ID"
// @Param        request  body  resetCommissionRequest  true  "Reset Request"
// @Success      200  {object}  DataResponse
// @Router       /commissions/{id}/reset [post]
func (s *Server) ResetCommission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req resetCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.commissionSvc.Reset(c.Request.Context(), id, actorID(c), req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}
	record, err := s.commissionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, record)
}
