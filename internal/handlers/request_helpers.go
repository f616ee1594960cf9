package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/store"
)

func (d *Deps) handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		d.Log.WithField("route", route).Errorf("panic recovered: %v", r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

func (d *Deps) respondWithError(c *gin.Context, status int, route string, message string) {
	d.Log.WithFields(logrus.Fields{"route": route, "status": status}).Warn(message)
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// respondError maps err onto a status. Client errors carry their own
// message; anything unexpected is logged and hidden outside development.
func (d *Deps) respondError(c *gin.Context, route string, err error) {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		body := gin.H{"message": appErr.Message}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		d.Log.WithFields(logrus.Fields{"route": route, "status": appErr.Status}).Warn(appErr.Message)
		c.AbortWithStatusJSON(appErr.Status, body)
	case errors.Is(err, store.ErrNotFound):
		d.respondWithError(c, http.StatusNotFound, route, "Resource not found")
	case errors.Is(err, store.ErrDuplicate):
		d.respondWithError(c, http.StatusConflict, route, "Resource already exists")
	default:
		d.Log.WithField("route", route).WithError(err).Error("request failed")
		body := gin.H{"message": "Internal server error"}
		if d.Debug {
			body["error"] = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	}
}

func (d *Deps) respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		d.Log.WithFields(logrus.Fields{"route": route, "details": details}).Warn("validation failed")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"details": details,
		})
		return
	}

	d.respondWithError(c, http.StatusBadRequest, route, "Invalid request body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// pathID parses the named route parameter as an ObjectID.
func pathID(c *gin.Context, name, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return primitive.NilObjectID, apperror.BadRequest("Invalid %s id", label)
	}
	return id, nil
}

// notFoundAs turns a store miss into a 404 naming the resource.
func notFoundAs(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("%s not found", resource)
	}
	return err
}
