package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// @Summary      Get Wallet Balance
// @Description  Fold the completed ledger entries for a member into a balance
// @Tags         wallets
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  DataResponse
// @Router       /wallets/{id}/balance [get]
func (s *Server) GetBalance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	balance, err := s.ledgerSvc.BalanceOf(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"user_id": id.String(), "balance": balance})
}

// @Summary      List Wallet Transactions
// @Tags         wallets
// @Produce      json
// @Param        id     path   string  true   "Member ID"
// @Param        limit  query  int     false  "Limit"
// @Success      200  {object}  DataResponse
// @Router       /wallets/{id}/transactions [get]
func (s *Server) ListWalletTransactions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.Limit <= 0 || query.Limit > 200 {
		query.Limit = 50
	}

	txs, err := s.ledgerSvc.ListByUser(c.Request.Context(), id, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, txs)
}

// @Summary      Wallet Integrity Report
// @Description  Count ledger inconsistencies without mutating anything
// @Tags         wallets
// @Produce      json
// @Success      200  {object}  DataResponse
// @Router       /wallets/integrity [get]
func (s *Server) WalletIntegrity(c *gin.Context) {
	report, err := s.ledgerSvc.IntegrityCheck(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, report)
}

type walletAmountRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

func (r walletAmountRequest) userID() (snowflake.ID, error) {
	return snowflake.ParseString(r.UserID)
}

// @Summary      Request Top-Up
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request body walletAmountRequest true "Top-Up Request"
// @Success      200  {object}  DataResponse
// @Router       /wallets/topups [post]
func (s *Server) RequestTopUp(c *gin.Context) {
	var req walletAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := req.userID()
	if err != nil {
		AbortWithError(c, invalidIDError("user_id"))
		return
	}

	topup, err := s.ledgerSvc.RequestTopUp(c.Request.Context(), userID, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, topup)
}

// @Summary      Verify Top-Up
// @Description  Mark a pending top-up verified and credit the wallet in one transaction
// @Tags         wallets
// @Produce      json
// @Param        id  path  string  true  "Top-Up ID"
// @Success      200  {object}  DataResponse
// @Router       /wallets/topups/{id}/verify [post]
func (s *Server) VerifyTopUp(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	topup, err := s.ledgerSvc.VerifyTopUp(c.Request.Context(), id, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, topup)
}

// @Summary      Request Withdrawal
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request body walletAmountRequest true "Withdrawal Request"
// @Success      200  {object}  DataResponse
// @Router       /wallets/withdrawals [post]
func (s *Server) RequestWithdrawal(c *gin.Context) {
	var req walletAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := req.userID()
	if err != nil {
		AbortWithError(c, invalidIDError("user_id"))
		return
	}

	withdrawal, err := s.ledgerSvc.RequestWithdrawal(c.Request.Context(), userID, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, withdrawal)
}

// @Summary      Approve Withdrawal
// @Description  Approve a pending withdrawal and debit the wallet in one transaction
// @Tags         wallets
// @Produce      json
// @Param        id  path  string  true  "Withdrawal ID"
// @Success      200  {object}  DataResponse
// @Router       /wallets/withdrawals/{id}/approve [post]
func (s *Server) ApproveWithdrawal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	withdrawal, err := s.ledgerSvc.ApproveWithdrawal(c.Request.Context(), id, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, withdrawal)
}

// @Summary      Issue Loan
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request body walletAmountRequest true "Loan Request"
// @Success      200  {object}  DataResponse
// @Router       /wallets/loans [post]
func (s *Server) IssueLoan(c *gin.Context) {
	var req walletAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := req.userID()
	if err != nil {
		AbortWithError(c, invalidIDError("user_id"))
		return
	}

	entry, err := s.ledgerSvc.IssueLoan(c.Request.Context(), userID, req.Amount, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, entry)
}

// @Summary      Repay Loan
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request body walletAmountRequest true "Repayment Request"
// @Success      200  {object}  DataResponse
// @Router       /wallets/loans/repayments [post]
func (s *Server) RepayLoan(c *gin.Context) {
	var req walletAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := req.userID()
	if err != nil {
		AbortWithError(c, invalidIDError("user_id"))
		return
	}

	entry, err := s.ledgerSvc.RepayLoan(c.Request.Context(), userID, req.Amount, actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, entry)
}
