package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
	"github.com/noah-isme/waste-mgmt-api/pkg/response"
)

// DriverHandler manages truck driver endpoints including vehicle and licence images.
type DriverHandler struct {
	service *service.DriverService
}

// NewDriverHandler constructs a driver handler.
func NewDriverHandler(svc *service.DriverService) *DriverHandler {
	return &DriverHandler{service: svc}
}

// List godoc
// @Summary List truck drivers
// @Tags Drivers
// @Produce json
// @Param district query string false "District ID"
// @Param city query string false "City"
// @Param active query bool false "Active filter"
// @Param search query string false "Name, email or vehicle"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /drivers/get [get]
func (h *DriverHandler) List(c *gin.Context) {
	filter := models.DriverFilter{
		DistrictID: c.Query("district"),
		City:       c.Query("city"),
		Active:     boolQuery(c, "active"),
		Search:     c.Query("search"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	drivers, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, drivers, pagination)
}

// Get godoc
// @Summary Get truck driver
// @Tags Drivers
// @Produce json
// @Param id path string true "Driver ID"
// @Success 200 {object} response.Envelope
// @Router /drivers/get/{id} [get]
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, driver, nil)
}

// Create godoc
// @Summary Register truck driver
// @Tags Drivers
// @Accept json
// @Produce json
// @Param payload body service.CreateDriverRequest true "Driver payload"
// @Success 201 {object} response.Envelope
// @Router /drivers/create [post]
func (h *DriverHandler) Create(c *gin.Context) {
	var req service.CreateDriverRequest
	if !bindJSON(c, &req, "invalid driver payload") {
		return
	}
	driver, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, driver)
}

// Update godoc
// @Summary Update truck driver
// @Tags Drivers
// @Accept json
// @Produce json
// @Param id path string true "Driver ID"
// @Param payload body service.UpdateDriverRequest true "Driver payload"
// @Success 200 {object} response.Envelope
// @Router /drivers/update/{id} [put]
func (h *DriverHandler) Update(c *gin.Context) {
	var req service.UpdateDriverRequest
	if !bindJSON(c, &req, "invalid driver payload") {
		return
	}
	driver, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, driver, nil)
}

// Delete godoc
// @Summary Delete truck driver
// @Tags Drivers
// @Param id path string true "Driver ID"
// @Success 204 {object} response.Envelope
// @Router /drivers/delete/{id} [delete]
func (h *DriverHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadImage godoc
// @Summary Attach an image to a driver
// @Tags Drivers
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Driver ID"
// @Param file formData file true "Image"
// @Success 200 {object} response.Envelope
// @Router /drivers/images/{id} [post]
func (h *DriverHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
		return
	}

	driver, err := h.service.UploadImage(c.Request.Context(), c.Param("id"), fileHeader.Filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, driver, nil)
}

// ImageLink godoc
// @Summary Sign a download link for a driver image
// @Tags Drivers
// @Produce json
// @Param id path string true "Driver ID"
// @Param index path int true "Image index"
// @Success 200 {object} response.Envelope
// @Router /drivers/images/{id}/{index} [get]
func (h *DriverHandler) ImageLink(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image index must be a number"))
		return
	}
	link, err := h.service.ImageLink(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// DownloadImage godoc
// @Summary Download a driver image by signed token
// @Tags Drivers
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /drivers/image-download/{token} [get]
func (h *DriverHandler) DownloadImage(c *gin.Context) {
	file, name, err := h.service.OpenImage(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat image"))
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
