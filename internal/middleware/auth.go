package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/auth"
	"peakhive/internal/models"
	"peakhive/internal/store"
)

const userKey = "user"

const lookupTimeout = 5 * time.Second

// UserFinder resolves a token subject to a persisted account.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Auth validates the bearer token and injects the account into the context.
// Tokens for accounts that no longer exist are rejected.
func Auth(issuer *auth.Issuer, users UserFinder, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, issuer, users)
		if err != nil && !isRejection(err) {
			logger.WithError(err).WithField("path", c.FullPath()).Error("user lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"path": c.FullPath(), "reason": err.Error()}).Warn("auth rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": unauthorizedMessage(err)})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the account when a valid token is sent and otherwise
// lets the request through anonymously.
func OptionalAuth(issuer *auth.Issuer, users UserFinder, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, issuer, users)
		switch {
		case err == nil:
			c.Set(userKey, user)
		case !isRejection(err):
			logger.WithError(err).WithField("path", c.FullPath()).Error("user lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		case !errors.Is(err, auth.ErrMissingToken):
			logger.WithField("reason", err.Error()).Debug("ignoring invalid optional token")
		}
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Not authorized as an admin"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated account or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

var errUnknownUser = errors.New("user not found")

func authenticate(c *gin.Context, issuer *auth.Issuer, users UserFinder) (*models.User, error) {
	raw, err := auth.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil, err
	}
	userID, err := issuer.Parse(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()
	user, err := users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound), err == nil && user == nil:
		return nil, errUnknownUser
	case err != nil:
		return nil, lookupError{err}
	}
	return user, nil
}

// lookupError marks a failure to reach the user store, as opposed to a bad
// or orphaned token.
type lookupError struct{ err error }

func (e lookupError) Error() string { return "user lookup: " + e.err.Error() }
func (e lookupError) Unwrap() error { return e.err }

func isRejection(err error) bool {
	var le lookupError
	return !errors.As(err, &le)
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Not authorized, no token"
	case errors.Is(err, errUnknownUser):
		return "Not authorized, user not found"
	default:
		return "Not authorized, token failed"
	}
}
