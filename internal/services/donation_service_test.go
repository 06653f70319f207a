package services

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type fakeValidator struct {
	enabled    bool
	predict    aivalidation.PredictResult
	predictErr error
	expiry     aivalidation.ExpiryResult
	expiryErr  error
	calls      atomic.Int32
}

func (v *fakeValidator) Enabled() bool { return v.enabled }

func (v *fakeValidator) Predict(context.Context, aivalidation.Image) (aivalidation.PredictResult, error) {
	v.calls.Add(1)
	return v.predict, v.predictErr
}

func (v *fakeValidator) CheckExpiry(context.Context, aivalidation.Image) (aivalidation.ExpiryResult, error) {
	v.calls.Add(1)
	return v.expiry, v.expiryErr
}

// flakyStore wraps the memory store and fails on demand.
type flakyStore struct {
	*storage.MemoryStore
	failUpload bool
	failDelete bool
}

func (f *flakyStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (storage.Object, error) {
	if f.failUpload {
		return storage.Object{}, errors.New("storage unreachable")
	}
	return f.MemoryStore.Upload(ctx, key, contentType, body, size)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errors.New("storage unreachable")
	}
	return f.MemoryStore.Delete(ctx, key)
}

type DonationServiceSuite struct {
	suite.Suite
	ctx       context.Context
	donations *repository.InMemoryDonationRepository
	users     *repository.InMemoryUserRepository
	store     *flakyStore
	validator *fakeValidator
	service   *DonationService

	admin    Actor
	donor    Actor
	receiver Actor
}

func TestDonationServiceSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceSuite))
}

func (s *DonationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.donations = repository.NewInMemoryDonationRepository()
	s.users = repository.NewInMemoryUserRepository()
	s.store = &flakyStore{MemoryStore: storage.NewMemoryStore("")}
	s.validator = &fakeValidator{}
	s.service = s.newService(DonationServiceOptions{})

	s.admin = s.seedUser(user.RoleAdmin, "")
	s.donor = s.seedUser(user.RoleDonor, "Pune")
	s.receiver = s.seedUser(user.RoleReceiver, "pune")
}

func (s *DonationServiceSuite) newService(opts DonationServiceOptions) *DonationService {
	return NewDonationService(
		s.donations,
		s.users,
		s.store,
		s.validator,
		nil,
		metrics.NewWithRegistry(prometheus.NewRegistry()),
		logger.NewNop(),
		opts,
	)
}

func (s *DonationServiceSuite) seedUser(role user.Role, city string) Actor {
	now := time.Now().UTC()
	u := &user.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		FullName:     string(role) + " user",
		Address:      user.Address{City: city},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return Actor{ID: u.ID, Role: role}
}

func (s *DonationServiceSuite) image() ImageUpload {
	return ImageUpload{Filename: "chair.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func (s *DonationServiceSuite) wheelchair() donation.DeviceFields {
	return donation.DeviceFields{
		DeviceType:  "wheelchair",
		Description: "Used wheelchair, good condition",
		Condition:   donation.ConditionGood,
	}
}

func (s *DonationServiceSuite) createDevice() DonationView {
	v, err := s.service.CreateDeviceDonation(s.ctx, s.donor, s.wheelchair(), s.image())
	s.Require().NoError(err)
	return v
}

func (s *DonationServiceSuite) approved() DonationView {
	v := s.createDevice()
	v, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, "approved")
	s.Require().NoError(err)
	return v
}

func (s *DonationServiceSuite) requireKind(err error, kind medishare_errors.Kind) {
	s.Require().Error(err)
	s.Equal(kind, medishare_errors.KindOf(err), err.Error())
}

func (s *DonationServiceSuite) requireReceiverInvariant() {
	all, err := s.donations.List(s.ctx, repository.DonationFilter{})
	s.Require().NoError(err)
	for _, d := range all {
		s.Equal(d.Status.HoldsReceiver(), d.HasReceiver(), "donation %s in %s", d.ID, d.Status)
	}
}

func (s *DonationServiceSuite) TestCreateDeviceDonation() {
	s.Run("AI disabled records Skipped", func() {
		v := s.createDevice()
		s.Equal(donation.StatusPendingApproval, v.Status)
		s.Equal(donation.ItemTypeDevice, v.ItemType)
		s.Equal(donation.AIStatusSkipped, v.AI().Status)
		s.True(s.store.Has(v.ImageStorageKey))
		s.Contains(v.ImageStorageKey, storage.FolderDevices+"/chair_")
		s.Nil(v.ReceiverID)
		s.Require().NotNil(v.Donor)
		s.Equal(s.donor.ID, v.Donor.ID)
	})

	s.Run("AI down still creates with Failed", func() {
		s.validator.enabled = true
		s.validator.predictErr = errors.New("connection refused")
		defer func() { s.validator.enabled, s.validator.predictErr = false, nil }()

		v := s.createDevice()
		s.Equal(donation.StatusPendingApproval, v.Status)
		s.Equal(donation.AIStatusFailed, v.AI().Status)
		s.Contains(v.AI().Error, "connection refused")
	})

	s.Run("top prediction wins", func() {
		s.validator.enabled = true
		s.validator.predict = aivalidation.PredictResult{Predictions: []aivalidation.Prediction{
			{Class: "crutches", Confidence: 0.4},
			{Class: "wheelchair", Confidence: 0.91},
		}}
		defer func() { s.validator.enabled, s.validator.predict = false, aivalidation.PredictResult{} }()

		ai := s.createDevice().AI()
		s.Equal(donation.AIStatusCompleted, ai.Status)
		s.Equal("wheelchair", ai.PredictedClass)
		s.Require().NotNil(ai.Confidence)
		s.InDelta(0.91, *ai.Confidence, 1e-9)
	})

	s.Run("no detections", func() {
		s.validator.enabled = true
		defer func() { s.validator.enabled = false }()

		ai := s.createDevice().AI()
		s.Equal(donation.AIStatusCompletedNoDetection, ai.Status)
		s.Equal("unknown", ai.PredictedClass)
	})

	s.Run("missing fields and image", func() {
		fields := s.wheelchair()
		fields.Condition = ""
		_, err := s.service.CreateDeviceDonation(s.ctx, s.donor, fields, s.image())
		s.requireKind(err, medishare_errors.KindValidation)
		s.Equal("condition", medishare_errors.FieldOf(err))

		_, err = s.service.CreateDeviceDonation(s.ctx, s.donor, s.wheelchair(), ImageUpload{ContentType: "image/png"})
		s.requireKind(err, medishare_errors.KindValidation)
		s.Equal("image", medishare_errors.FieldOf(err))

		img := s.image()
		img.ContentType = "application/pdf"
		_, err = s.service.CreateDeviceDonation(s.ctx, s.donor, s.wheelchair(), img)
		s.requireKind(err, medishare_errors.KindValidation)
	})

	s.Run("upload failure is fatal", func() {
		s.store.failUpload = true
		defer func() { s.store.failUpload = false }()

		before, _ := s.donations.List(s.ctx, repository.DonationFilter{})
		_, err := s.service.CreateDeviceDonation(s.ctx, s.donor, s.wheelchair(), s.image())
		s.requireKind(err, medishare_errors.KindExternalService)
		after, _ := s.donations.List(s.ctx, repository.DonationFilter{})
		s.Len(after, len(before))
	})

	s.Run("only donors create", func() {
		_, err := s.service.CreateDeviceDonation(s.ctx, s.receiver, s.wheelchair(), s.image())
		s.requireKind(err, medishare_errors.KindAuthorization)

		_, err = s.service.CreateDeviceDonation(s.ctx, Actor{}, s.wheelchair(), s.image())
		s.requireKind(err, medishare_errors.KindUnauthenticated)
	})
}

func (s *DonationServiceSuite) TestCreateMedicineDonation() {
	str := func(v string) *string { return &v }
	fields := donation.MedicineFields{MedicineName: "Paracetamol", Quantity: "2 Strips", Strength: "500mg"}

	s.Run("hints recorded verbatim", func() {
		hints := donation.ExpiryHints{ExpiryText: str("EXP 01/2027"), IsValid: str("true"), ParsedDate: str("2027-01-31")}
		v, err := s.service.CreateMedicineDonation(s.ctx, s.donor, fields, s.image(), hints)
		s.Require().NoError(err)

		ai := v.AI()
		s.Equal(donation.ItemTypeMedicine, v.ItemType)
		s.Equal(donation.AIStatusFromFrontend, ai.Status)
		s.Equal("EXP 01/2027", ai.ExpiryTextDetected)
		s.Require().NotNil(ai.IsValidExpiry)
		s.True(*ai.IsValidExpiry)
		s.Equal("2027-01-31", ai.ParsedExpiryDate)
		s.Contains(v.ImageStorageKey, storage.FolderMedicines+"/")
		s.Zero(s.validator.calls.Load())
	})

	s.Run("no hints is Skipped", func() {
		v, err := s.service.CreateMedicineDonation(s.ctx, s.donor, fields, s.image(), donation.ExpiryHints{})
		s.Require().NoError(err)
		s.Equal(donation.AIStatusSkipped, v.AI().Status)
		s.Nil(v.AI().IsValidExpiry)
	})

	s.Run("server verification replaces hints", func() {
		s.validator.enabled = true
		s.validator.expiry = aivalidation.ExpiryResult{ExpiryTextDetected: str("EXP 03/2024"), IsValid: new(bool)}
		defer func() { s.validator.enabled, s.validator.expiry = false, aivalidation.ExpiryResult{} }()

		svc := s.newService(DonationServiceOptions{VerifyMedicineExpiry: true})
		hints := donation.ExpiryHints{IsValid: str("true")}
		v, err := svc.CreateMedicineDonation(s.ctx, s.donor, fields, s.image(), hints)
		s.Require().NoError(err)

		ai := v.AI()
		s.Equal(donation.AIStatusCompleted, ai.Status)
		s.Equal("EXP 03/2024", ai.ExpiryTextDetected)
		s.Require().NotNil(ai.IsValidExpiry)
		s.False(*ai.IsValidExpiry)
	})

	s.Run("verification failure falls back to hints", func() {
		s.validator.enabled = true
		s.validator.expiryErr = errors.New("timeout")
		defer func() { s.validator.enabled, s.validator.expiryErr = false, nil }()

		svc := s.newService(DonationServiceOptions{VerifyMedicineExpiry: true})
		v, err := svc.CreateMedicineDonation(s.ctx, s.donor, fields, s.image(), donation.ExpiryHints{IsValid: str("false")})
		s.Require().NoError(err)
		s.Equal(donation.AIStatusFromFrontend, v.AI().Status)
		s.Contains(v.AI().Error, "timeout")
	})

	s.Run("quantity required", func() {
		_, err := s.service.CreateMedicineDonation(s.ctx, s.donor, donation.MedicineFields{MedicineName: "x"}, s.image(), donation.ExpiryHints{})
		s.requireKind(err, medishare_errors.KindValidation)
		s.Equal("quantity", medishare_errors.FieldOf(err))
	})
}

func (s *DonationServiceSuite) TestListDonations() {
	mine := s.createDevice()
	otherDonor := s.seedUser(user.RoleDonor, "Mumbai")
	_, err := s.service.CreateDeviceDonation(s.ctx, otherDonor, s.wheelchair(), s.image())
	s.Require().NoError(err)

	all, err := s.service.ListDonations(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Len(all, 2)

	own, err := s.service.ListDonations(s.ctx, s.donor)
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal(mine.ID, own[0].ID)

	none, err := s.service.ListDonations(s.ctx, s.receiver)
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.service.ListDonations(s.ctx, Actor{})
	s.requireKind(err, medishare_errors.KindUnauthenticated)
}

func (s *DonationServiceSuite) TestListDonationsHidesPendingFromReceiver() {
	v := s.approved()
	_, err := s.service.ReceiverRequest(s.ctx, s.receiver, v.ID)
	s.Require().NoError(err)

	// Force a broken record past the service guards.
	stored, err := s.donations.GetByID(s.ctx, v.ID)
	s.Require().NoError(err)
	stored.ID = uuid.New()
	stored.Status = donation.StatusPendingApproval
	s.Require().NoError(s.donations.Create(s.ctx, &stored))

	list, err := s.service.ListDonations(s.ctx, s.receiver)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(v.ID, list[0].ID)
	s.Require().NotNil(list[0].Receiver)
	s.Equal(s.receiver.ID, list[0].Receiver.ID)
}

func (s *DonationServiceSuite) TestGetDonation() {
	v := s.createDevice()

	got, err := s.service.GetDonation(s.ctx, s.donor, v.ID)
	s.Require().NoError(err)
	s.Equal(v.ID, got.ID)

	_, err = s.service.GetDonation(s.ctx, s.admin, v.ID)
	s.NoError(err)

	_, err = s.service.GetDonation(s.ctx, s.receiver, v.ID)
	s.requireKind(err, medishare_errors.KindAuthorization)

	_, err = s.service.GetDonation(s.ctx, s.admin, uuid.New())
	s.requireKind(err, medishare_errors.KindNotFound)
}

func (s *DonationServiceSuite) TestAdminSetStatus() {
	s.Run("override to any non-receiver status", func() {
		v := s.createDevice()
		for _, st := range []string{"rejected", "approved", "pending_approval", "approved"} {
			updated, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, st)
			s.Require().NoError(err)
			s.Equal(donation.Status(st), updated.Status)
		}
		s.requireReceiverInvariant()
	})

	s.Run("receiver statuses need a receiver", func() {
		v := s.createDevice()
		_, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, "collected")
		s.requireKind(err, medishare_errors.KindInvalidState)
	})

	s.Run("moving back clears the receiver", func() {
		v := s.approved()
		_, err := s.service.ReceiverRequest(s.ctx, s.receiver, v.ID)
		s.Require().NoError(err)

		delivered, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, "delivered")
		s.Require().NoError(err)
		s.NotNil(delivered.ReceiverID)

		back, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, "approved")
		s.Require().NoError(err)
		s.Nil(back.ReceiverID)
		s.requireReceiverInvariant()
	})

	s.Run("unknown status and non-admin", func() {
		v := s.createDevice()
		_, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, "shipped")
		s.requireKind(err, medishare_errors.KindValidation)

		_, err = s.service.AdminSetStatus(s.ctx, s.donor, v.ID, "approved")
		s.requireKind(err, medishare_errors.KindAuthorization)

		_, err = s.service.AdminSetStatus(s.ctx, s.admin, uuid.New(), "approved")
		s.requireKind(err, medishare_errors.KindNotFound)
	})
}

func (s *DonationServiceSuite) TestReceiverRequest() {
	s.Run("only from approved", func() {
		pending := s.createDevice()
		_, err := s.service.ReceiverRequest(s.ctx, s.receiver, pending.ID)
		s.requireKind(err, medishare_errors.KindInvalidState)
		s.Contains(err.Error(), "pending_approval")

		rejected := s.createDevice()
		_, err = s.service.AdminSetStatus(s.ctx, s.admin, rejected.ID, "rejected")
		s.Require().NoError(err)
		_, err = s.service.ReceiverRequest(s.ctx, s.receiver, rejected.ID)
		s.requireKind(err, medishare_errors.KindInvalidState)
	})

	s.Run("succeeds once", func() {
		v := s.approved()
		got, err := s.service.ReceiverRequest(s.ctx, s.receiver, v.ID)
		s.Require().NoError(err)
		s.Equal(donation.StatusRequested, got.Status)
		s.Require().NotNil(got.ReceiverID)
		s.Equal(s.receiver.ID, *got.ReceiverID)

		other := s.seedUser(user.RoleReceiver, "Pune")
		_, err = s.service.ReceiverRequest(s.ctx, other, v.ID)
		s.requireKind(err, medishare_errors.KindInvalidState)
		s.Contains(err.Error(), "no longer available")

		stored, err := s.donations.GetByID(s.ctx, v.ID)
		s.Require().NoError(err)
		s.Equal(s.receiver.ID, *stored.ReceiverID)
	})

	s.Run("role gate and missing record", func() {
		v := s.approved()
		_, err := s.service.ReceiverRequest(s.ctx, s.donor, v.ID)
		s.requireKind(err, medishare_errors.KindAuthorization)

		_, err = s.service.ReceiverRequest(s.ctx, s.receiver, uuid.New())
		s.requireKind(err, medishare_errors.KindNotFound)
	})
}

func (s *DonationServiceSuite) TestConcurrentReceiverRequests() {
	v := s.approved()

	const n = 12
	receivers := make([]Actor, n)
	for i := range receivers {
		receivers[i] = s.seedUser(user.RoleReceiver, "Pune")
	}

	var wins, losses atomic.Int32
	var g errgroup.Group
	for _, r := range receivers {
		r := r
		g.Go(func() error {
			_, err := s.service.ReceiverRequest(s.ctx, r, v.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case medishare_errors.KindOf(err) == medishare_errors.KindInvalidState:
				losses.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(n-1), losses.Load())
	s.requireReceiverInvariant()
}

func (s *DonationServiceSuite) TestDonorAdvanceStatus() {
	v := s.approved()
	_, err := s.service.ReceiverRequest(s.ctx, s.receiver, v.ID)
	s.Require().NoError(err)

	s.Run("cannot skip collected", func() {
		_, err := s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "delivered")
		s.requireKind(err, medishare_errors.KindInvalidState)
		s.Contains(err.Error(), "Cannot change from 'requested' to 'delivered'")
	})

	s.Run("other donor is forbidden", func() {
		other := s.seedUser(user.RoleDonor, "Pune")
		_, err := s.service.DonorAdvanceStatus(s.ctx, other, v.ID, "collected")
		s.requireKind(err, medishare_errors.KindAuthorization)

		_, err = s.service.DonorAdvanceStatus(s.ctx, s.admin, v.ID, "collected")
		s.requireKind(err, medishare_errors.KindAuthorization)
	})

	s.Run("non donor targets are invalid", func() {
		_, err := s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "approved")
		s.requireKind(err, medishare_errors.KindInvalidState)
	})

	s.Run("collected then delivered", func() {
		got, err := s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "collected")
		s.Require().NoError(err)
		s.Equal(donation.StatusCollected, got.Status)

		got, err = s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "delivered")
		s.Require().NoError(err)
		s.Equal(donation.StatusDelivered, got.Status)
		s.True(got.Status.Terminal())

		_, err = s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "delivered")
		s.requireKind(err, medishare_errors.KindInvalidState)
	})
	s.requireReceiverInvariant()
}

func (s *DonationServiceSuite) TestDeleteDonation() {
	s.Run("removes record and image", func() {
		v := s.createDevice()
		res, err := s.service.DeleteDonation(s.ctx, s.admin, v.ID)
		s.Require().NoError(err)
		s.Empty(res.ImageDeleteError)
		s.False(s.store.Has(v.ImageStorageKey))

		_, err = s.service.GetDonation(s.ctx, s.admin, v.ID)
		s.requireKind(err, medishare_errors.KindNotFound)
	})

	s.Run("image failure is reported and not fatal", func() {
		v := s.createDevice()
		s.store.failDelete = true
		defer func() { s.store.failDelete = false }()

		res, err := s.service.DeleteDonation(s.ctx, s.admin, v.ID)
		s.Require().NoError(err)
		s.Contains(res.ImageDeleteError, "storage unreachable")

		_, err = s.service.GetDonation(s.ctx, s.admin, v.ID)
		s.requireKind(err, medishare_errors.KindNotFound)
	})

	s.Run("admin only and not found", func() {
		v := s.createDevice()
		_, err := s.service.DeleteDonation(s.ctx, s.donor, v.ID)
		s.requireKind(err, medishare_errors.KindAuthorization)

		_, err = s.service.DeleteDonation(s.ctx, s.admin, uuid.New())
		s.requireKind(err, medishare_errors.KindNotFound)
	})
}

func (s *DonationServiceSuite) TestSearchNearbyApproved() {
	local := s.approved()
	s.createDevice()

	mumbaiDonor := s.seedUser(user.RoleDonor, "Mumbai")
	far, err := s.service.CreateDeviceDonation(s.ctx, mumbaiDonor, s.wheelchair(), s.image())
	s.Require().NoError(err)
	_, err = s.service.AdminSetStatus(s.ctx, s.admin, far.ID, "approved")
	s.Require().NoError(err)

	found, err := s.service.SearchNearbyApproved(s.ctx, s.receiver)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(local.ID, found[0].ID)

	homeless := s.seedUser(user.RoleReceiver, "")
	_, err = s.service.SearchNearbyApproved(s.ctx, homeless)
	s.requireKind(err, medishare_errors.KindValidation)

	nowhere := s.seedUser(user.RoleReceiver, "Nagpur")
	found, err = s.service.SearchNearbyApproved(s.ctx, nowhere)
	s.Require().NoError(err)
	s.Empty(found)

	_, err = s.service.SearchNearbyApproved(s.ctx, s.donor)
	s.requireKind(err, medishare_errors.KindAuthorization)
}

func (s *DonationServiceSuite) TestWheelchairLifecycle() {
	v := s.createDevice()
	s.Equal(donation.StatusPendingApproval, v.Status)

	v, err := s.service.AdminSetStatus(s.ctx, s.admin, v.ID, "approved")
	s.Require().NoError(err)
	s.Equal(donation.StatusApproved, v.Status)

	found, err := s.service.SearchNearbyApproved(s.ctx, s.receiver)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(v.ID, found[0].ID)

	v, err = s.service.ReceiverRequest(s.ctx, s.receiver, v.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusRequested, v.Status)
	s.Equal(s.receiver.ID, *v.ReceiverID)

	v, err = s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "collected")
	s.Require().NoError(err)
	s.Equal(donation.StatusCollected, v.Status)

	v, err = s.service.DonorAdvanceStatus(s.ctx, s.donor, v.ID, "delivered")
	s.Require().NoError(err)
	s.Equal(donation.StatusDelivered, v.Status)

	s.requireReceiverInvariant()
}
