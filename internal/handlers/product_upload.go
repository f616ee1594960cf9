package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/models"
)

const (
	maxImageSize     = 5 << 20
	maxMultipartSize = 32 << 20
	uploadURLPrefix  = "uploads/"
	productImagesDir = "products"
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// parseMultipartProduct reads a product form. An "image" file part is saved
// and appended to the images list.
func (d *Deps) parseMultipartProduct(c *gin.Context) (productInput, error) {
	if err := c.Request.ParseMultipartForm(maxMultipartSize); err != nil {
		return productInput{}, apperror.BadRequest("Invalid multipart form")
	}

	var input productInput
	for field, target := range map[string]**string{
		"name":        &input.Name,
		"description": &input.Description,
		"category":    &input.Category,
		"brand":       &input.Brand,
	} {
		if value, ok := c.GetPostForm(field); ok {
			trimmed := strings.TrimSpace(value)
			*target = &trimmed
		}
	}

	if value, ok := c.GetPostForm("price"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productInput{}, apperror.BadRequest("price is invalid")
		}
		input.Price = &parsed
	}
	if value, ok := c.GetPostForm("stock"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return productInput{}, apperror.BadRequest("stock is invalid")
		}
		input.Stock = &parsed
	}

	for field, target := range map[string]**[]string{
		"features": &input.Features,
		"tags":     &input.Tags,
		"images":   &input.Images,
	} {
		if values := c.PostFormArray(field); len(values) > 0 {
			list := make([]string, 0, len(values))
			for _, v := range values {
				list = append(list, models.SplitList(v)...)
			}
			*target = &list
		}
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		imagePath, err := d.saveImage(file)
		if err != nil {
			return productInput{}, err
		}
		images := []string{}
		if input.Images != nil {
			images = *input.Images
		}
		images = append(images, imagePath)
		input.Images = &images
	case !errors.Is(err, http.ErrMissingFile):
		return productInput{}, apperror.BadRequest("Invalid image upload")
	}

	return input, nil
}

// saveImage writes an uploaded product image under UploadDir and returns the
// public path stored on the product.
func (d *Deps) saveImage(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", apperror.BadRequest("Image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", apperror.BadRequest("Unsupported image type: %s", extension)
	}
	if file.Size > maxImageSize {
		return "", apperror.BadRequest("Image file too large (max 5MB)")
	}

	filename := primitive.NewObjectID().Hex() + extension
	dir := filepath.Join(d.UploadDir, productImagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	fullPath := filepath.Join(dir, filename)
	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	d.Log.WithFields(logrus.Fields{"file": fullPath, "size": file.Size}).Info("image saved")
	return "/" + uploadURLPrefix + productImagesDir + "/" + filename, nil
}

// safeDeleteUpload removes a previously uploaded file. Paths outside the
// upload directory are refused and missing files are not an error.
func (d *Deps) safeDeleteUpload(publicPath string) error {
	trimmed := strings.TrimSpace(publicPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(trimmed, "/")), "/")
	if !strings.HasPrefix(cleanRel, uploadURLPrefix) {
		return fmt.Errorf("refusing to delete non-upload path: %s", publicPath)
	}

	cleanBase := filepath.Clean(d.UploadDir)
	cleanTarget := filepath.Clean(filepath.Join(cleanBase, filepath.FromSlash(strings.TrimPrefix(cleanRel, uploadURLPrefix))))
	if cleanTarget == cleanBase || !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload dir: %s", publicPath)
	}

	if err := os.Remove(cleanTarget); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// removeImages deletes uploaded files best-effort; external URLs are skipped.
func (d *Deps) removeImages(route string, images []string) {
	for _, image := range images {
		if !strings.HasPrefix(strings.TrimPrefix(strings.TrimSpace(image), "/"), uploadURLPrefix) {
			continue
		}
		if err := d.safeDeleteUpload(image); err != nil {
			d.Log.WithFields(logrus.Fields{"route": route, "image": image}).WithError(err).Warn("image cleanup failed")
		}
	}
}

func UploadImage(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/upload"
		defer d.handlePanic(c, route)

		file, err := c.FormFile("image")
		if err != nil {
			d.respondWithError(c, http.StatusBadRequest, route, "No image uploaded")
			return
		}
		imagePath, err := d.saveImage(file)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Image uploaded", "image": imagePath})
	}
}
