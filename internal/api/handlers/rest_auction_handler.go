package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/models"
	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/services"
)

const MsgAuctionDeleted = "Auction deleted successfully"

// RestAuctionHandler handles /api/auctions and the assignment endpoints.
type RestAuctionHandler struct {
	auctionService    services.IAuctionService
	assignmentService services.IAssignmentService
}

func NewRestAuctionHandler(auctionService services.IAuctionService, assignmentService services.IAssignmentService) *RestAuctionHandler {
	return &RestAuctionHandler{
		auctionService:    auctionService,
		assignmentService: assignmentService,
	}
}

// ListAuctions handles GET /api/auctions
func (h *RestAuctionHandler) ListAuctions(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	list, err := h.auctionService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateAuction handles POST /api/auctions
func (h *RestAuctionHandler) CreateAuction(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var req schema.AuctionWrite
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	rec, err := h.auctionService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GetAuction handles GET /api/auctions/:id
func (h *RestAuctionHandler) GetAuction(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	auctionID, ok := pathID(c, "id", auctionResource)
	if !ok {
		return
	}
	view, err := h.auctionService.Get(c.Request.Context(), userID, auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if view.Participants == nil {
		view.Participants = []models.ParticipantSummary{}
	}
	c.JSON(http.StatusOK, view)
}

// UpdateAuction handles PUT /api/auctions/:id
func (h *RestAuctionHandler) UpdateAuction(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	auctionID, ok := pathID(c, "id", auctionResource)
	if !ok {
		return
	}
	var req schema.AuctionWrite
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	rec, err := h.auctionService.Update(c.Request.Context(), userID, auctionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteAuction handles DELETE /api/auctions/:id
func (h *RestAuctionHandler) DeleteAuction(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	auctionID, ok := pathID(c, "id", auctionResource)
	if !ok {
		return
	}
	if err := h.auctionService.Delete(c.Request.Context(), userID, auctionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: MsgAuctionDeleted})
}

// AssignmentResponse is one created assignment row.
type AssignmentResponse struct {
	AuctionID     int64                   `json:"auctionId"`
	ParticipantID int64                   `json:"participantId"`
	Status        models.AssignmentStatus `json:"status"`
}

// AssignParticipants handles POST /api/auctions/:id/participants.
// The body replaces the auction's whole participant set.
func (h *RestAuctionHandler) AssignParticipants(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	auctionID, ok := pathID(c, "id", auctionResource)
	if !ok {
		return
	}
	var req schema.AssignParticipantsRequest
	if err := schema.Decode(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.assignmentService.AssignParticipants(c.Request.Context(), userID, auctionID, req.ParticipantIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]AssignmentResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, AssignmentResponse{AuctionID: r.AuctionID, ParticipantID: r.ParticipantID, Status: r.Status})
	}
	c.JSON(http.StatusOK, resp)
}

// ListAssignments handles GET /api/auctions/:id/participants
func (h *RestAuctionHandler) ListAssignments(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	auctionID, ok := pathID(c, "id", auctionResource)
	if !ok {
		return
	}
	rows, err := h.auctionService.ListAssignments(c.Request.Context(), userID, auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []models.AssignmentView{}
	}
	c.JSON(http.StatusOK, rows)
}
