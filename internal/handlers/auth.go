package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/auth"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/store"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type profileUpdateRequest struct {
	Name            *string                 `json:"name"`
	Email           *string                 `json:"email" binding:"omitempty,email"`
	Phone           *string                 `json:"phone"`
	Password        *string                 `json:"password" binding:"omitempty,min=6"`
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
}

type sessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

// issueSession signs an access token and persists a fresh refresh token.
func (d *Deps) issueSession(c *gin.Context, user *models.User) (*sessionResponse, primitive.ObjectID, error) {
	access, err := d.Issuer.Issue(user.ID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	plain, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, primitive.NilObjectID, err
	}

	now := d.now()
	refresh := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(d.RefreshTTL),
	}
	ctx, cancel := d.ctx(c)
	defer cancel()
	if err := d.Tokens.Create(ctx, refresh); err != nil {
		return nil, primitive.NilObjectID, err
	}

	return &sessionResponse{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresIn:    int64(d.Issuer.TTL().Seconds()),
		User:         user,
	}, refresh.ID, nil
}

func Register(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users"
		defer d.handlePanic(c, route)

		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		name := strings.TrimSpace(req.Name)
		if name == "" {
			d.respondWithError(c, http.StatusBadRequest, route, "Name is required")
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		if _, err := d.Users.FindByEmail(ctx, email); err == nil {
			d.respondWithError(c, http.StatusConflict, route, "User already exists")
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			d.respondError(c, route, err)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		now := d.now()
		user := &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleUser,
			Phone:        strings.TrimSpace(req.Phone),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := d.Users.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				d.respondWithError(c, http.StatusConflict, route, "User already exists")
				return
			}
			d.respondError(c, route, err)
			return
		}

		session, _, err := d.issueSession(c, user)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex()}).Info("user registered")
		c.JSON(http.StatusCreated, session)
	}
}

func Login(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/login"
		defer d.handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		user, err := d.Users.FindByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				d.respondWithError(c, http.StatusUnauthorized, route, "Invalid email or password")
				return
			}
			d.respondError(c, route, err)
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			d.respondWithError(c, http.StatusUnauthorized, route, "Invalid email or password")
			return
		}

		session, _, err := d.issueSession(c, user)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex()}).Info("user logged in")
		c.JSON(http.StatusOK, session)
	}
}

// Refresh rotates a refresh token: the presented one is revoked and linked
// to its replacement.
func Refresh(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/refresh"
		defer d.handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		token, err := d.Tokens.FindActive(ctx, auth.HashToken(strings.TrimSpace(req.RefreshToken)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				d.respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
				return
			}
			d.respondError(c, route, err)
			return
		}
		if !token.Active(d.now()) {
			d.respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
			return
		}

		user, err := d.Users.FindByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				d.respondWithError(c, http.StatusUnauthorized, route, "User not found")
				return
			}
			d.respondError(c, route, err)
			return
		}

		session, replacement, err := d.issueSession(c, user)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if err := d.Tokens.Revoke(ctx, token.ID, &replacement); err != nil {
			d.Log.WithField("route", route).WithError(err).Warn("could not revoke rotated refresh token")
		}

		c.JSON(http.StatusOK, session)
	}
}

func Logout(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/logout"
		defer d.handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		token, err := d.Tokens.FindActive(ctx, auth.HashToken(strings.TrimSpace(req.RefreshToken)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				d.respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
				return
			}
			d.respondError(c, route, err)
			return
		}
		if err := d.Tokens.Revoke(ctx, token.ID, nil); err != nil {
			d.respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func GetProfile(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.CurrentUser(c))
	}
}

func UpdateProfile(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/profile"
		defer d.handlePanic(c, route)

		var req profileUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		user := *middleware.CurrentUser(c)
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				d.respondWithError(c, http.StatusBadRequest, route, "Name cannot be empty")
				return
			}
			user.Name = name
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
		if req.Password != nil {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				d.respondError(c, route, err)
				return
			}
			user.PasswordHash = hash
		}
		if req.ShippingAddress != nil {
			addr := *req.ShippingAddress
			user.ShippingAddress = &addr
		}
		user.UpdatedAt = d.now()

		if err := d.Users.Update(ctx, &user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				d.respondWithError(c, http.StatusConflict, route, "Email already in use")
				return
			}
			d.respondError(c, route, notFoundAs(err, "User"))
			return
		}

		d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex()}).Info("profile updated")
		c.JSON(http.StatusOK, &user)
	}
}

func (d *Deps) ensureEmailFree(c *gin.Context, email string) error {
	ctx, cancel := d.ctx(c)
	defer cancel()

	_, err := d.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.Conflict("Email already in use")
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}
