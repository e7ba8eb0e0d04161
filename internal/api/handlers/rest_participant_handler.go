package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/services"
)

const (
	MsgParticipantDeleted = "Participant deleted successfully"
	MsgEmptyUpdate        = "No fields to update"
)

// RestParticipantHandler handles /api/participants.
type RestParticipantHandler struct {
	participantService services.IParticipantService
}

func NewRestParticipantHandler(participantService services.IParticipantService) *RestParticipantHandler {
	return &RestParticipantHandler{participantService: participantService}
}

// ListParticipants handles GET /api/participants
func (h *RestParticipantHandler) ListParticipants(c *gin.Context) {
	list, err := h.participantService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateParticipant handles POST /api/participants
func (h *RestParticipantHandler) CreateParticipant(c *gin.Context) {
	var req schema.ParticipantCreate
	if err := schema.Decode(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	p, err := h.participantService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetParticipant handles GET /api/participants/:id
func (h *RestParticipantHandler) GetParticipant(c *gin.Context) {
	id, ok := pathID(c, "id", participantResource)
	if !ok {
		return
	}
	p, err := h.participantService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	noCache(c)
	c.JSON(http.StatusOK, p)
}

// UpdateParticipant handles PUT /api/participants/:id
func (h *RestParticipantHandler) UpdateParticipant(c *gin.Context) {
	id, ok := pathID(c, "id", participantResource)
	if !ok {
		return
	}
	var req schema.ParticipantUpdate
	if err := schema.Decode(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.Empty() {
		respondError(c, auctionerrors.NewValidationError(MsgEmptyUpdate))
		return
	}
	p, err := h.participantService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteParticipant handles DELETE /api/participants/:id
func (h *RestParticipantHandler) DeleteParticipant(c *gin.Context) {
	id, ok := pathID(c, "id", participantResource)
	if !ok {
		return
	}
	if err := h.participantService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: MsgParticipantDeleted})
}
