package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

type TrainerHandler struct {
	trainerService service.TrainerService
	log            *logger.Logger
}

func NewTrainerHandler(trainerService service.TrainerService, log *logger.Logger) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService, log: log}
}

// --- DTOs for Client Management ---

type AddClientRequest struct {
	ClientID string `json:"clientId" binding:"required"`
}

// --- Handler Methods for Client Management ---

// AddClient godoc
// @Summary Add a client to the trainer's roster
// @Description Activates (or re-activates) the trainer-client relationship.
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientRequest body AddClientRequest true "Client id"
// @Success 200 {object} domain.TrainerClient "Relationship is active"
// @Failure 400 {object} envelope "Invalid input"
// @Failure 401 {object} envelope "Unauthorized"
// @Failure 403 {object} envelope "Forbidden (not a trainer)"
// @Router /trainer/clients [post]
func (h *TrainerHandler) AddClient(c *gin.Context) {
	var req AddClientRequest
	if !bindJSON(c, &req) {
		return
	}
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	rel, err := h.trainerService.AddClient(c.Request.Context(), trainerID, req.ClientID)
	if err != nil {
		respondError(c, h.log, "AddClient", err)
		return
	}
	respond(c, http.StatusOK, rel)
}

// GetManagedClients godoc
// @Summary Get the trainer's clients
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Param status query string false "active|inactive"
// @Success 200 {array} domain.TrainerClient
// @Router /trainer/clients [get]
func (h *TrainerHandler) GetManagedClients(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	clients, err := h.trainerService.GetManagedClients(c.Request.Context(), trainerID, domain.RelationStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.log, "GetManagedClients", err)
		return
	}
	if clients == nil {
		clients = []domain.TrainerClient{} // empty array, not null
	}
	respond(c, http.StatusOK, clients)
}

// RemoveClient godoc
// @Summary Deactivate a client relationship
// @Tags Trainer
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Failure 404 {object} envelope "Client not found"
// @Router /trainer/clients/{clientId} [delete]
func (h *TrainerHandler) RemoveClient(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	if err := h.trainerService.RemoveClient(c.Request.Context(), trainerID, c.Param("clientId")); err != nil {
		respondError(c, h.log, "RemoveClient", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"removed": true})
}
