package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"medishare/internal/domain/donation"
	"medishare/internal/services"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const DefaultUploadMaxBytes int64 = 5 << 20

// DonationHandler exposes the donation lifecycle over HTTP.
type DonationHandler struct {
	service        *services.DonationService
	uploadMaxBytes int64
}

func NewDonationHandler(service *services.DonationService, uploadMaxBytes int64) *DonationHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = DefaultUploadMaxBytes
	}
	return &DonationHandler{service: service, uploadMaxBytes: uploadMaxBytes}
}

// CreateDevice handles POST /donations/device (multipart with an image field).
func (h *DonationHandler) CreateDevice(c *gin.Context) {
	img, err := h.readImage(c)
	if err != nil {
		writeError(c, err)
		return
	}

	fields := donation.DeviceFields{
		DeviceType:  c.PostForm("deviceType"),
		Description: c.PostForm("description"),
		Condition:   donation.Condition(c.PostForm("condition")),
	}
	v, err := h.service.CreateDeviceDonation(c.Request.Context(), actorFrom(c), fields, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.ToDonationDTO(v)))
}

// CreateMedicine handles POST /donations/medicine. Expiry hints read on the
// client arrive as aiExpiryText, aiExpiryValid and aiParsedDate.
func (h *DonationHandler) CreateMedicine(c *gin.Context) {
	img, err := h.readImage(c)
	if err != nil {
		writeError(c, err)
		return
	}

	fields := donation.MedicineFields{
		MedicineName: c.PostForm("medicineName"),
		Quantity:     c.PostForm("quantity"),
		Strength:     c.PostForm("strength"),
	}
	hints := donation.ExpiryHints{
		ExpiryText: optionalForm(c, "aiExpiryText"),
		IsValid:    optionalForm(c, "aiExpiryValid"),
		ParsedDate: optionalForm(c, "aiParsedDate"),
	}
	v, err := h.service.CreateMedicineDonation(c.Request.Context(), actorFrom(c), fields, img, hints)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.ToDonationDTO(v)))
}

func (h *DonationHandler) List(c *gin.Context) {
	views, err := h.service.ListDonations(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToDonationDTOs(views)))
}

func (h *DonationHandler) Search(c *gin.Context) {
	views, err := h.service.SearchNearbyApproved(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToDonationDTOs(views)))
}

func (h *DonationHandler) Get(c *gin.Context) {
	id, ok := donationID(c)
	if !ok {
		return
	}
	v, err := h.service.GetDonation(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToDonationDTO(v)))
}

// SetStatus handles the admin override PUT /donations/:id/status.
func (h *DonationHandler) SetStatus(c *gin.Context) {
	id, ok := donationID(c)
	if !ok {
		return
	}
	var req httpdto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, medishare_errors.Validation("status", "Status field is required"))
		return
	}
	v, err := h.service.AdminSetStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToDonationDTO(v)))
}

// Request handles PUT /donations/:id/request by a receiver.
func (h *DonationHandler) Request(c *gin.Context) {
	id, ok := donationID(c)
	if !ok {
		return
	}
	v, err := h.service.ReceiverRequest(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToDonationDTO(v)))
}

// DonorStatus handles PUT /donations/:id/donor-status.
func (h *DonationHandler) DonorStatus(c *gin.Context) {
	id, ok := donationID(c)
	if !ok {
		return
	}
	var req httpdto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, medishare_errors.Validation("status", "Invalid status"))
		return
	}
	v, err := h.service.DonorAdvanceStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToDonationDTO(v)))
}

func (h *DonationHandler) Delete(c *gin.Context) {
	id, ok := donationID(c)
	if !ok {
		return
	}
	res, err := h.service.DeleteDonation(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeleteDonationResponse{
		Message:          res.Message,
		ImageDeleteError: res.ImageDeleteError,
	}))
}

// readImage enforces the size limit and reads the "image" form file.
func (h *DonationHandler) readImage(c *gin.Context) (services.ImageUpload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes+(1<<20))

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return services.ImageUpload{}, h.tooLarge()
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return services.ImageUpload{}, medishare_errors.Validation("image", "Image file is required.")
		default:
			return services.ImageUpload{}, medishare_errors.Validation("image", "File upload error.")
		}
	}
	if fh.Size > h.uploadMaxBytes {
		return services.ImageUpload{}, h.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return services.ImageUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.uploadMaxBytes+1))
	if err != nil {
		return services.ImageUpload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > h.uploadMaxBytes {
		return services.ImageUpload{}, h.tooLarge()
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return services.ImageUpload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func (h *DonationHandler) tooLarge() error {
	limit := fmt.Sprintf("%dMB", h.uploadMaxBytes>>20)
	if h.uploadMaxBytes < 1<<20 {
		limit = fmt.Sprintf("%dKB", h.uploadMaxBytes>>10)
	}
	return medishare_errors.Validation("image", "Image file is too large (Max "+limit+").")
}

func optionalForm(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}

func donationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, medishare_errors.NotFound("Donation not found with that ID format"))
		return uuid.Nil, false
	}
	return id, true
}
