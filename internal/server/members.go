package server

import (
	"github.com/gin-gonic/gin"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	memberservice "github.com/uplinelabs/upline/internal/member/service"
	"github.com/uplinelabs/upline/pkg/db/pagination"
)

type createMemberRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	SponsorCode string `json:"sponsor_code"`
}

// @Summary      Create Member
// @Description  Register a member, resolving the sponsor link from a referral code
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        request body createMemberRequest true "Create Member Request"
// @Success      200  {object}  DataResponse
// @Router       /members [post]
func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.memberSvc.Create(c.Request.Context(), memberservice.CreateMemberInput{
		Name:        req.Name,
		Email:       req.Email,
		SponsorCode: req.SponsorCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}

// @Summary      List Members
// @Tags         members
// @Produce      json
// @Param        status  query  string  false  "Status"
// @Param        page    query  int     false  "Page"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /members [get]
func (s *Server) ListMembers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	members, total, err := s.memberSvc.List(c.Request.Context(), memberdomain.ListMemberFilter{
		Status: memberdomain.MemberStatus(query.Status),
	}, query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, members, query.Pagination.PageInfo(total))
}

// @Summary      Get Member
// @Tags         members
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  DataResponse
// @Router       /members/{id} [get]
func (s *Server) GetMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	member, err := s.memberSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}

// @Summary      Get Sponsor Chain
// @Description  Return the member's sponsors, nearest first, at most seven deep
// @Tags         members
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  DataResponse
// @Router       /members/{id}/chain [get]
func (s *Server) GetMemberChain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	chain, err := s.memberSvc.Chain(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, chain)
}

// @Summary      Grant Starter Kit
// @Description  Mark the member as a kit holder; repeated grants are no-ops
// @Tags         members
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  DataResponse
// @Router       /members/{id}/kit [post]
func (s *Server) GrantKit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	member, err := s.memberSvc.GrantKit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}

type setMemberStatusRequest struct {
	Status string `json:"status"`
}

// @Summary      Set Member Status
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "Member ID"
// @Param        request  body  setMemberStatusRequest  true  "Status Request"
// @Success      200  {object}  DataResponse
// @Router       /members/{id}/status [patch]
func (s *Server) SetMemberStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req setMemberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.memberSvc.SetStatus(c.Request.Context(), id, memberdomain.MemberStatus(req.Status)); err != nil {
		AbortWithError(c, err)
		return
	}
	member, err := s.memberSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, member)
}
