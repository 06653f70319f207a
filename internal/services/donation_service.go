package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"medishare/internal/aivalidation"
	"medishare/internal/domain/donation"
	"medishare/internal/domain/user"
	"medishare/internal/metrics"
	"medishare/internal/repository"
	"medishare/internal/storage"
	medishare_errors "medishare/pkg/errors"
	"medishare/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Operation names used in metrics and events.
const (
	OperationCreate          = "create"
	OperationAdminSetStatus  = "admin_set_status"
	OperationReceiverRequest = "receiver_request"
	OperationDonorAdvance    = "donor_advance"
)

const (
	lowConfidenceThreshold = 0.6
	maxStatusAttempts      = 3
)

// ImageStore is satisfied by storage.Client and storage.MemoryStore.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// Validator is satisfied by aivalidation.Client.
type Validator interface {
	Enabled() bool
	Predict(ctx context.Context, img aivalidation.Image) (aivalidation.PredictResult, error)
	CheckExpiry(ctx context.Context, img aivalidation.Image) (aivalidation.ExpiryResult, error)
}

type DonationServiceOptions struct {
	// VerifyMedicineExpiry runs the expiry check server side instead of
	// trusting the caller's hints.
	VerifyMedicineExpiry bool
}

type DonationService struct {
	donations repository.DonationRepository
	users     repository.UserRepository
	images    ImageStore
	validator Validator
	publisher *EventPublisher
	metrics   *metrics.Metrics
	log       *logger.Logger
	opts      DonationServiceOptions

	now       func() time.Time
	objectKey func(folder, originalName string) string
}

func NewDonationService(
	donations repository.DonationRepository,
	users repository.UserRepository,
	images ImageStore,
	validator Validator,
	publisher *EventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
	opts DonationServiceOptions,
) *DonationService {
	if log == nil {
		log = logger.NewNop()
	}
	if publisher == nil {
		publisher = NewEventPublisher(nil, log)
	}
	return &DonationService{
		donations: donations,
		users:     users,
		images:    images,
		validator: validator,
		publisher: publisher,
		metrics:   m,
		log:       log,
		opts:      opts,
		now:       time.Now,
		objectKey: storage.NewObjectKey,
	}
}

// ImageUpload is the image attached to a new donation.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (img ImageUpload) validate() error {
	if len(img.Data) == 0 {
		return medishare_errors.Validation("image", "Image file is required.")
	}
	if err := storage.ValidateContentType(img.ContentType); err != nil {
		return medishare_errors.Validation("image", "Invalid file type. Only images are allowed.")
	}
	return nil
}

func (img ImageUpload) forValidator() aivalidation.Image {
	name := img.Filename
	if name == "" {
		name = "upload.jpg"
	}
	return aivalidation.Image{Filename: name, ContentType: img.ContentType, Data: img.Data}
}

// PartySummary is the embedded view of a donor or receiver.
type PartySummary struct {
	ID               uuid.UUID
	FullName         string
	Email            string
	OrganizationName string
	Address          user.Address
}

type DonationView struct {
	donation.Donation
	Donor    *PartySummary
	Receiver *PartySummary
}

type DeleteResult struct {
	Message string
	// ImageDeleteError is set when the stored image could not be removed.
	ImageDeleteError string
}

func (s *DonationService) CreateDeviceDonation(ctx context.Context, actor Actor, fields donation.DeviceFields, img ImageUpload) (DonationView, error) {
	if err := requireRole(actor, "Only donors can create donations.", user.RoleDonor); err != nil {
		return DonationView{}, err
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return DonationView{}, err
	}
	if err := img.validate(); err != nil {
		return DonationView{}, err
	}

	ai := s.classifyDevice(ctx, img)

	d := donation.Donation{
		ItemType:    donation.ItemTypeDevice,
		DeviceType:  fields.DeviceType,
		Description: fields.Description,
		Condition:   fields.Condition,
	}
	return s.create(ctx, actor, d, storage.FolderDevices, img, ai)
}

func (s *DonationService) CreateMedicineDonation(ctx context.Context, actor Actor, fields donation.MedicineFields, img ImageUpload, hints donation.ExpiryHints) (DonationView, error) {
	if err := requireRole(actor, "Only donors can create donations.", user.RoleDonor); err != nil {
		return DonationView{}, err
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return DonationView{}, err
	}
	if err := img.validate(); err != nil {
		return DonationView{}, err
	}

	ai := s.medicineValidation(ctx, img, hints)

	d := donation.Donation{
		ItemType:     donation.ItemTypeMedicine,
		MedicineName: fields.MedicineName,
		Quantity:     fields.Quantity,
		Strength:     fields.Strength,
	}
	return s.create(ctx, actor, d, storage.FolderMedicines, img, ai)
}

func (s *DonationService) create(ctx context.Context, actor Actor, d donation.Donation, folder string, img ImageUpload, ai donation.AIValidation) (DonationView, error) {
	key := s.objectKey(folder, img.Filename)
	obj, err := s.images.Upload(ctx, key, img.ContentType, bytes.NewReader(img.Data), int64(len(img.Data)))
	if err != nil {
		s.log.Error(ctx, "image upload failed", zap.String("key", key), zap.Error(err))
		return DonationView{}, medishare_errors.External("Failed to upload image.", err)
	}

	now := s.now().UTC()
	d.ID = uuid.New()
	d.DonorID = actor.ID
	d.ImageURL = obj.URL
	d.ImageStorageKey = obj.Key
	d.Status = donation.StatusPendingApproval
	d.AIValidation = datatypes.NewJSONType(ai)
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := s.donations.Create(ctx, &d); err != nil {
		if delErr := s.images.Delete(ctx, obj.Key); delErr != nil {
			s.metrics.IncrementImageDeleteFailure()
			s.log.Error(ctx, "failed to remove orphaned image", zap.String("key", obj.Key), zap.Error(delErr))
		}
		return DonationView{}, err
	}

	s.metrics.IncrementCreated(string(d.ItemType))
	s.metrics.IncrementAIValidation(string(d.ItemType), string(ai.Status))
	s.metrics.IncrementTransition(OperationCreate, "", string(d.Status))
	s.publisher.PublishCreated(ctx, d)
	s.log.Info(ctx, "donation created",
		zap.String("donation_id", d.ID.String()),
		zap.String("item_type", string(d.ItemType)),
		zap.String("ai_status", string(ai.Status)),
	)

	return s.view(ctx, d)
}

func (s *DonationService) classifyDevice(ctx context.Context, img ImageUpload) donation.AIValidation {
	result := donation.AIValidation{Status: donation.AIStatusSkipped, ValidatedAt: s.now().UTC()}
	if s.validator == nil || !s.validator.Enabled() {
		s.log.Warn(ctx, "AI service not configured, skipping prediction")
		return result
	}

	prediction, err := s.validator.Predict(ctx, img.forValidator())
	result.ValidatedAt = s.now().UTC()
	if err != nil {
		s.log.Warn(ctx, "AI prediction failed", zap.Error(err))
		result.Status = donation.AIStatusFailed
		result.Error = fmt.Sprintf("AI prediction failed: %s", err.Error())
		return result
	}

	top, ok := prediction.Top()
	if !ok {
		zero := 0.0
		result.Status = donation.AIStatusCompletedNoDetection
		result.PredictedClass = "unknown"
		result.Confidence = &zero
		return result
	}

	confidence := top.Confidence
	result.Status = donation.AIStatusCompleted
	result.PredictedClass = top.Class
	result.Confidence = &confidence
	if confidence < lowConfidenceThreshold {
		s.log.Warn(ctx, "AI prediction confidence low",
			zap.String("class", top.Class),
			zap.Float64("confidence", confidence),
		)
	}
	return result
}

func (s *DonationService) medicineValidation(ctx context.Context, img ImageUpload, hints donation.ExpiryHints) donation.AIValidation {
	result := hintValidation(hints, s.now().UTC())
	if !s.opts.VerifyMedicineExpiry || s.validator == nil || !s.validator.Enabled() {
		return result
	}

	expiry, err := s.validator.CheckExpiry(ctx, img.forValidator())
	if err != nil {
		s.log.Warn(ctx, "AI expiry check failed, keeping caller hints", zap.Error(err))
		result.Error = fmt.Sprintf("AI expiry check failed: %s", err.Error())
		return result
	}

	verified := donation.AIValidation{
		Status:        donation.AIStatusCompleted,
		IsValidExpiry: expiry.IsValid,
		ValidatedAt:   s.now().UTC(),
	}
	if expiry.ExpiryTextDetected == nil || *expiry.ExpiryTextDetected == "" {
		verified.Status = donation.AIStatusCompletedNoDetection
	} else {
		verified.ExpiryTextDetected = *expiry.ExpiryTextDetected
	}
	if expiry.ParsedExpiryDate != nil {
		verified.ParsedExpiryDate = *expiry.ParsedExpiryDate
	}
	return verified
}

// hintValidation records caller-supplied expiry readings verbatim.
func hintValidation(hints donation.ExpiryHints, now time.Time) donation.AIValidation {
	result := donation.AIValidation{Status: donation.AIStatusSkipped, ValidatedAt: now}
	if !hints.Present() {
		return result
	}
	result.Status = donation.AIStatusFromFrontend
	if hints.ExpiryText != nil {
		result.ExpiryTextDetected = *hints.ExpiryText
	}
	result.IsValidExpiry = hints.ValidFlag()
	if hints.ParsedDate != nil {
		result.ParsedExpiryDate = *hints.ParsedDate
	}
	return result
}

// ListDonations returns the records visible to the actor, newest first.
func (s *DonationService) ListDonations(ctx context.Context, actor Actor) ([]DonationView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var filter repository.DonationFilter
	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleDonor:
		filter.DonorID = &actor.ID
	case user.RoleReceiver:
		filter.ReceiverID = &actor.ID
		filter.Statuses = donation.ReceiverVisibleStatuses()
	default:
		return nil, medishare_errors.Forbidden("Unauthorized role")
	}

	list, err := s.donations.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if actor.Role == user.RoleReceiver {
		list = visibleToReceiver(list, actor.ID)
	}
	return s.views(ctx, list)
}

func visibleToReceiver(list []donation.Donation, receiverID uuid.UUID) []donation.Donation {
	visible := make([]donation.Donation, 0, len(list))
	allowed := donation.ReceiverVisibleStatuses()
	for _, d := range list {
		if d.ReceiverID == nil || *d.ReceiverID != receiverID {
			continue
		}
		for _, st := range allowed {
			if d.Status == st {
				visible = append(visible, d)
				break
			}
		}
	}
	return visible
}

func (s *DonationService) GetDonation(ctx context.Context, actor Actor, id uuid.UUID) (DonationView, error) {
	if err := requireActor(actor); err != nil {
		return DonationView{}, err
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return DonationView{}, err
	}
	if !actor.IsAdmin() && d.DonorID != actor.ID {
		return DonationView{}, medishare_errors.Forbidden("Not authorized to view this donation")
	}
	return s.view(ctx, d)
}

// AdminSetStatus moves a record to any enumerated status. Targets that
// require a receiver are refused on records without one; every other target
// clears the receiver.
func (s *DonationService) AdminSetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (DonationView, error) {
	if err := requireRole(actor, "Not authorized as an admin", user.RoleAdmin); err != nil {
		return DonationView{}, err
	}
	target, ok := donation.ParseStatus(status)
	if !ok {
		return DonationView{}, medishare_errors.Validation("status", "Invalid status value provided")
	}

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return DonationView{}, err
		}
		if target.HoldsReceiver() && !current.HasReceiver() {
			return DonationView{}, medishare_errors.InvalidState(fmt.Sprintf(
				"Cannot set status '%s': donation has no receiver (Status: %s)", target, current.Status))
		}

		updated, err := s.donations.UpdateStatus(ctx, id, repository.StatusChange{
			To:              target,
			From:            []donation.Status{current.Status},
			RequireReceiver: target.HoldsReceiver(),
			ClearReceiver:   !target.HoldsReceiver(),
		})
		switch {
		case errors.Is(err, medishare_errors.ErrConflict):
			continue
		case errors.Is(err, medishare_errors.ErrNotFound):
			return DonationView{}, medishare_errors.NotFound("Donation not found")
		case err != nil:
			return DonationView{}, err
		}

		s.recordTransition(ctx, OperationAdminSetStatus, current.Status, updated, actor)
		return s.view(ctx, updated)
	}

	return DonationView{}, medishare_errors.InvalidState("Donation was modified concurrently, please retry")
}

// ReceiverRequest claims an approved donation. The status check and the
// receiver assignment are one conditional update, so one caller wins.
func (s *DonationService) ReceiverRequest(ctx context.Context, actor Actor, id uuid.UUID) (DonationView, error) {
	if err := requireRole(actor, "Only receivers can request donations.", user.RoleReceiver); err != nil {
		return DonationView{}, err
	}

	receiverID := actor.ID
	updated, err := s.donations.UpdateStatus(ctx, id, repository.StatusChange{
		To:             donation.StatusRequested,
		From:           []donation.Status{donation.StatusApproved},
		AssignReceiver: &receiverID,
	})
	switch {
	case errors.Is(err, medishare_errors.ErrNotFound):
		return DonationView{}, medishare_errors.NotFound("Donation not found")
	case errors.Is(err, medishare_errors.ErrConflict):
		s.metrics.IncrementRequestConflict()
		if updated.Status.HoldsReceiver() {
			return DonationView{}, medishare_errors.InvalidState(fmt.Sprintf(
				"Donation is no longer available (Status: %s)", updated.Status))
		}
		return DonationView{}, medishare_errors.InvalidState(fmt.Sprintf(
			"Donation is not available for request (Status: %s)", updated.Status))
	case err != nil:
		return DonationView{}, err
	}

	s.recordTransition(ctx, OperationReceiverRequest, donation.StatusApproved, updated, actor)
	return s.view(ctx, updated)
}

// DonorAdvanceStatus lets the record's donor confirm collection and then
// delivery. No other move is accepted.
func (s *DonationService) DonorAdvanceStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (DonationView, error) {
	if err := requireActor(actor); err != nil {
		return DonationView{}, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return DonationView{}, err
	}
	if current.DonorID != actor.ID {
		return DonationView{}, medishare_errors.Forbidden("Not authorized to update this donation.")
	}

	target, ok := donation.ParseStatus(status)
	if !ok {
		return DonationView{}, medishare_errors.Validation("status", "Invalid status")
	}
	if !donation.DonorTransitionAllowed(current.Status, target) {
		return DonationView{}, invalidDonorTransition(current.Status, target)
	}
	from, _ := donation.DonorSource(target)

	donorID := actor.ID
	updated, err := s.donations.UpdateStatus(ctx, id, repository.StatusChange{
		To:              target,
		From:            []donation.Status{from},
		DonorID:         &donorID,
		RequireReceiver: true,
	})
	switch {
	case errors.Is(err, medishare_errors.ErrNotFound):
		return DonationView{}, medishare_errors.NotFound("Donation not found")
	case errors.Is(err, medishare_errors.ErrConflict):
		return DonationView{}, invalidDonorTransition(updated.Status, target)
	case err != nil:
		return DonationView{}, err
	}

	s.recordTransition(ctx, OperationDonorAdvance, from, updated, actor)
	return s.view(ctx, updated)
}

func invalidDonorTransition(from, to donation.Status) error {
	return medishare_errors.InvalidState(fmt.Sprintf(
		"Invalid status transition: Cannot change from '%s' to '%s'.", from, to))
}

// DeleteDonation removes the stored image and then the record. A failed
// image delete is reported in the result and does not stop the record delete.
func (s *DonationService) DeleteDonation(ctx context.Context, actor Actor, id uuid.UUID) (DeleteResult, error) {
	if err := requireRole(actor, "Not authorized as an admin", user.RoleAdmin); err != nil {
		return DeleteResult{}, err
	}

	d, err := s.load(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}

	var imageErr error
	if d.ImageStorageKey != "" {
		if err := s.images.Delete(ctx, d.ImageStorageKey); err != nil {
			imageErr = err
			s.metrics.IncrementImageDeleteFailure()
			s.log.Error(ctx, "image deletion failed",
				zap.String("donation_id", d.ID.String()),
				zap.String("key", d.ImageStorageKey),
				zap.Error(err),
			)
		}
	} else {
		s.log.Warn(ctx, "donation has no stored image to delete", zap.String("donation_id", d.ID.String()))
	}

	if err := s.donations.Delete(ctx, id); err != nil {
		if errors.Is(err, medishare_errors.ErrNotFound) {
			return DeleteResult{}, medishare_errors.NotFound("Donation not found")
		}
		return DeleteResult{}, err
	}

	s.metrics.IncrementDeleted()
	s.publisher.PublishDeleted(ctx, d, actor, imageErr)
	s.log.Info(ctx, "donation deleted", zap.String("donation_id", d.ID.String()))

	result := DeleteResult{Message: "Donation removed successfully"}
	if imageErr != nil {
		result.ImageDeleteError = imageErr.Error()
	}
	return result, nil
}

// SearchNearbyApproved returns approved donations from donors in the
// receiver's city.
func (s *DonationService) SearchNearbyApproved(ctx context.Context, actor Actor) ([]DonationView, error) {
	if err := requireRole(actor, "Only receivers can search donations.", user.RoleReceiver); err != nil {
		return nil, err
	}

	receiver, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, medishare_errors.ErrNotFound) {
			return nil, medishare_errors.Unauthenticated("Not authorized, user not found")
		}
		return nil, err
	}
	city := receiver.City()
	if city == "" {
		return nil, medishare_errors.Validation("address.city", "Please update your profile address to find donations.")
	}

	donorIDs, err := s.users.ListIDsByRoleAndCity(ctx, user.RoleDonor, city)
	if err != nil {
		return nil, err
	}
	if len(donorIDs) == 0 {
		return []DonationView{}, nil
	}

	list, err := s.donations.List(ctx, repository.DonationFilter{
		DonorIDs: donorIDs,
		Statuses: []donation.Status{donation.StatusApproved},
	})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, list)
}

func (s *DonationService) load(ctx context.Context, id uuid.UUID) (donation.Donation, error) {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, medishare_errors.ErrNotFound) {
			return donation.Donation{}, medishare_errors.NotFound("Donation not found")
		}
		return donation.Donation{}, err
	}
	return d, nil
}

func (s *DonationService) recordTransition(ctx context.Context, operation string, from donation.Status, d donation.Donation, actor Actor) {
	s.metrics.IncrementTransition(operation, string(from), string(d.Status))
	s.publisher.PublishStatusChanged(ctx, operation, from, d, actor)
	s.log.Info(ctx, "donation status changed",
		zap.String("donation_id", d.ID.String()),
		zap.String("operation", operation),
		zap.String("from", string(from)),
		zap.String("to", string(d.Status)),
	)
}

func (s *DonationService) view(ctx context.Context, d donation.Donation) (DonationView, error) {
	views, err := s.views(ctx, []donation.Donation{d})
	if err != nil {
		return DonationView{}, err
	}
	return views[0], nil
}

// views embeds donor and receiver summaries with one user lookup.
func (s *DonationService) views(ctx context.Context, list []donation.Donation) ([]DonationView, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, d := range list {
		for _, id := range partyIDs(d) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	parties := make(map[uuid.UUID]*PartySummary, len(ids))
	if len(ids) > 0 {
		users, err := s.users.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			parties[u.ID] = &PartySummary{
				ID:               u.ID,
				FullName:         u.FullName,
				Email:            u.Email,
				OrganizationName: u.OrganizationName,
				Address:          u.Address,
			}
		}
	}

	views := make([]DonationView, 0, len(list))
	for _, d := range list {
		v := DonationView{Donation: d, Donor: parties[d.DonorID]}
		if d.ReceiverID != nil {
			v.Receiver = parties[*d.ReceiverID]
		}
		views = append(views, v)
	}
	return views, nil
}

func partyIDs(d donation.Donation) []uuid.UUID {
	if d.ReceiverID != nil {
		return []uuid.UUID{d.DonorID, *d.ReceiverID}
	}
	return []uuid.UUID{d.DonorID}
}
