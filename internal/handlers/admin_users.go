package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"peakhive/internal/auth"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/pagination"
	"peakhive/internal/store"
)

const (
	defaultUserLimit = 20
	maxUserLimit     = 100
)

type adminUserUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
	Role  *string `json:"role" binding:"omitempty,oneof=user admin"`
}

func ListUsers(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users"
		defer d.handlePanic(c, route)

		page, err := pagination.Parse(c.Query("page"), c.Query("limit"), defaultUserLimit, maxUserLimit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		users, total, err := d.Users.List(ctx, c.Query("search"), page)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"page":  page.Number,
			"pages": page.Pages(total),
			"total": total,
		})
	}
}

func GetUser(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "user")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		user, err := d.Users.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "User"))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateUser(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "user")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		var req adminUserUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		user, err := d.Users.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "User"))
			return
		}

		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			user.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if email != user.Email {
				if err := d.ensureEmailFree(c, email); err != nil {
					d.respondError(c, route, err)
					return
				}
				user.Email = email
			}
		}
		if req.Phone != nil {
			user.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Role != nil {
			if *req.Role != models.RoleAdmin && middleware.CurrentUser(c).ID == user.ID {
				d.respondWithError(c, http.StatusBadRequest, route, "Cannot remove your own admin role")
				return
			}
			user.Role = *req.Role
		}
		user.UpdatedAt = d.now()

		if err := d.Users.Update(ctx, user); err != nil {
			d.respondError(c, route, notFoundAs(err, "User"))
			return
		}

		d.Log.WithFields(logrus.Fields{
			"route":  route,
			"userId": user.ID.Hex(),
			"by":     middleware.CurrentUser(c).ID.Hex(),
		}).Info("user updated")
		c.JSON(http.StatusOK, user)
	}
}

// DeleteUser removes the account and everything it owns, then recomputes
// the ratings of products it had reviewed.
func DeleteUser(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/users/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "user")
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if id == middleware.CurrentUser(c).ID {
			d.respondWithError(c, http.StatusBadRequest, route, "Cannot delete your own account")
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		reviewed, err := d.Users.Delete(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "User"))
			return
		}
		for _, productID := range reviewed {
			if err := d.recomputeRating(ctx, productID); err != nil {
				d.Log.WithFields(logrus.Fields{"route": route, "productId": productID.Hex()}).WithError(err).Warn("rating recompute failed")
			}
		}

		d.Log.WithFields(logrus.Fields{"route": route, "userId": id.Hex()}).Info("user deleted")
		c.JSON(http.StatusOK, gin.H{"message": "User removed"})
	}
}

// EnsureAdmin creates the configured admin account, or promotes an existing
// account with that email. It does nothing when email or password is empty.
func EnsureAdmin(ctx context.Context, users UserStore, name, email, password string, logger logrus.FieldLogger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		existing.Role = models.RoleAdmin
		if err := users.Update(ctx, existing); err != nil {
			return err
		}
		logger.WithField("email", email).Info("promoted bootstrap admin")
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	if len(password) < 6 {
		return errors.New("admin password must be at least 6 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	now := time.Now()
	admin := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.WithField("email", email).Info("created bootstrap admin")
	return nil
}
