package tutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tutorbook/database/repository"
	tutorRepo "tutorbook/database/repository/tutor"
	"tutorbook/models"
	"tutorbook/services/storage"
	"tutorbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const avatarFolder = "tutorbook/avatars"

// TutorService manages the tutor's public profile.
type TutorService interface {
	Register(ctx context.Context, p *models.Principal, req models.UpsertTutorRequest) (*models.TutorProfile, error)
	Update(ctx context.Context, p *models.Principal, req models.UpsertTutorRequest) (*models.TutorProfile, error)
	Mine(ctx context.Context, p *models.Principal) (*models.TutorProfile, error)
	Get(ctx context.Context, tutorID string) (*models.TutorProfile, error)
	UploadAvatar(ctx context.Context, p *models.Principal, file io.Reader) (*models.TutorProfile, error)
}

type DefaultTutorService struct {
	Repo    tutorRepo.TutorRepository
	Storage storage.StorageService
	Logger  *zap.Logger
}

func validateRequest(req *models.UpsertTutorRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.FullName == "" {
		return utils.ValidationError("fullName is required")
	}
	if req.HourlyRate <= 0 {
		return utils.ValidationError("hourlyRate must be positive")
	}
	if req.Currency != "" && req.Currency != utils.CurrencyINR && req.Currency != utils.CurrencyUSD {
		return utils.ValidationError("currency must be INR or USD")
	}
	if !req.OffersPrivate && !req.OffersGroup {
		return utils.ValidationError("offer at least one session type")
	}
	return nil
}

func (s *DefaultTutorService) Register(ctx context.Context, p *models.Principal, req models.UpsertTutorRequest) (*models.TutorProfile, error) {
	if p == nil || p.Role != models.RoleTutor {
		return nil, utils.NewAppError(utils.KindUnauthorized, "forbidden", "only tutor accounts can create a tutor profile")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = utils.CurrencyINR
	}

	now := time.Now().UTC()
	t := &models.TutorProfile{
		ID:              uuid.NewString(),
		UserID:          p.UserID,
		FullName:        req.FullName,
		Email:           req.Email,
		HourlyRate:      req.HourlyRate,
		GroupHourlyRate: req.GroupHourlyRate,
		Currency:        req.Currency,
		OffersPrivate:   req.OffersPrivate,
		OffersGroup:     req.OffersGroup,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.ValidationError("a tutor profile already exists for this account")
		}
		return nil, err
	}
	s.Logger.Info("tutor registered", zap.String("tutorID", t.ID), zap.String("userID", p.UserID))
	return t, nil
}

func (s *DefaultTutorService) Mine(ctx context.Context, p *models.Principal) (*models.TutorProfile, error) {
	if p == nil || p.Role != models.RoleTutor {
		return nil, utils.NewAppError(utils.KindUnauthorized, "forbidden", "only tutors have a tutor profile")
	}
	t, err := s.Repo.GetByUserID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFoundError("tutor profile not found")
	}
	return t, err
}

func (s *DefaultTutorService) Get(ctx context.Context, tutorID string) (*models.TutorProfile, error) {
	t, err := s.Repo.GetByID(ctx, tutorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFoundError("tutor not found")
	}
	return t, err
}

func (s *DefaultTutorService) Update(ctx context.Context, p *models.Principal, req models.UpsertTutorRequest) (*models.TutorProfile, error) {
	t, err := s.Mine(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	updated, err := s.Repo.UpdateProfile(ctx, t.ID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update tutor profile: %w", err)
	}
	return updated, nil
}

// UploadAvatar replaces the avatar. The previous image is removed after the
// new one is stored.
func (s *DefaultTutorService) UploadAvatar(ctx context.Context, p *models.Principal, file io.Reader) (*models.TutorProfile, error) {
	t, err := s.Mine(ctx, p)
	if err != nil {
		return nil, err
	}
	url, publicID, err := s.Storage.UploadImage(ctx, file, avatarFolder)
	if errors.Is(err, storage.ErrDisabled) {
		return nil, utils.NewAppError(utils.KindValidation, "storage_disabled", "avatar uploads are not enabled")
	}
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetAvatar(ctx, t.ID, url, publicID); err != nil {
		_ = s.Storage.DeleteFile(ctx, publicID)
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}
	if t.AvatarPublicID != "" {
		if err := s.Storage.DeleteFile(ctx, t.AvatarPublicID); err != nil {
			s.Logger.Warn("failed to delete old avatar", zap.String("publicID", t.AvatarPublicID), zap.Error(err))
		}
	}
	t.AvatarURL, t.AvatarPublicID = url, publicID
	return t, nil
}
