package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	commissionservice "github.com/uplinelabs/upline/internal/commission/service"
)

type processPurchaseRequest struct {
	RefereeID     string  `json:"referee_id"`
	PackageAmount float64 `json:"package_amount"`
	Description   string  `json:"description"`
}

// @Summary      Process Purchase
// @Description  Record a package purchase and generate pending commissions up the sponsor chain
// @Tags         purchases
// @Accept       json
// @Produce      json
// @Param        request body processPurchaseRequest true "Process Purchase Request"
// @Success      200  {object}  DataResponse
// @Router       /purchases [post]
func (s *Server) ProcessPurchase(c *gin.Context) {
	var req processPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	refereeID, err := snowflake.ParseString(req.RefereeID)
	if err != nil {
		AbortWithError(c, invalidIDError("referee_id"))
		return
	}

	records, err := s.commissionSvc.ProcessPurchase(c.Request.Context(), commissionservice.PurchaseInput{
		RefereeID:     refereeID,
		PackageAmount: req.PackageAmount,
		Description:   req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, records)
}
