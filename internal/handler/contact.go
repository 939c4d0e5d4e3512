package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

type ContactHandler struct {
	contactService service.ContactService
	log            logger.Logger
}

func NewContactHandler(contactService service.ContactService, log logger.Logger) *ContactHandler {
	return &ContactHandler{contactService: contactService, log: log}
}

type createContactRequest struct {
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

func (h *ContactHandler) Create(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact := &domain.Contact{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}

	if err := h.contactService.CreateContact(c.Request.Context(), contact); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact ID"})
		return
	}

	contact, err := h.contactService.GetContact(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *ContactHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	contacts, err := h.contactService.ListContacts(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}
