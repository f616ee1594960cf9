package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/pagination"
)

const (
	defaultContactLimit = 20
	maxContactLimit     = 100
)

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type contactUpdateRequest struct {
	Status     *string `json:"status" binding:"omitempty,oneof=new read replied archived"`
	AdminNotes *string `json:"adminNotes"`
}

func validContactStatus(status string) bool {
	switch status {
	case models.ContactNew, models.ContactRead, models.ContactReplied, models.ContactArchived:
		return true
	}
	return false
}

// SubmitContact is public. A valid token attaches the sender's account.
func SubmitContact(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/contact"
		defer d.handlePanic(c, route)

		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		now := d.now()
		msg := &models.ContactMessage{
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Subject:   strings.TrimSpace(req.Subject),
			Message:   strings.TrimSpace(req.Message),
			Status:    models.ContactNew,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if user := middleware.CurrentUser(c); user != nil {
			id := user.ID
			msg.UserID = &id
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Contacts.Create(ctx, msg); err != nil {
			d.respondError(c, route, err)
			return
		}

		d.Log.WithFields(logrus.Fields{"route": route, "contactId": msg.ID.Hex()}).Info("contact message received")
		c.JSON(http.StatusCreated, gin.H{"message": "Message sent", "contact": msg})
	}
}

func ListContacts(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/contact"
		defer d.handlePanic(c, route)

		page, err := pagination.Parse(c.Query("page"), c.Query("limit"), defaultContactLimit, maxContactLimit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		status := strings.TrimSpace(c.Query("status"))
		if status != "" && !validContactStatus(status) {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid status filter")
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, total, err := d.Contacts.List(ctx, status, page)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"contacts": list,
			"page":     page.Number,
			"pages":    page.Pages(total),
			"total":    total,
		})
	}
}

func GetContact(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/contact/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "contact")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		msg, err := d.Contacts.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Contact message"))
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func UpdateContact(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/contact/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "contact")
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		var req contactUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		msg, err := d.Contacts.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Contact message"))
			return
		}
		if req.Status != nil {
			msg.Status = *req.Status
		}
		if req.AdminNotes != nil {
			msg.AdminNotes = strings.TrimSpace(*req.AdminNotes)
		}
		msg.UpdatedAt = d.now()

		if err := d.Contacts.Update(ctx, msg); err != nil {
			d.respondError(c, route, notFoundAs(err, "Contact message"))
			return
		}
		d.Log.WithFields(logrus.Fields{"route": route, "contactId": id.Hex(), "status": msg.Status}).Info("contact message updated")
		c.JSON(http.StatusOK, msg)
	}
}

func DeleteContact(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/contact/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "contact")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Contacts.Delete(ctx, id); err != nil {
			d.respondError(c, route, notFoundAs(err, "Contact message"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Contact message removed"})
	}
}
