package operations

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/biplovgautam/bilearnhub/internal/auth"
	"github.com/biplovgautam/bilearnhub/internal/model"
	"github.com/biplovgautam/bilearnhub/internal/store"
)

// Service implements the profile lifecycle operations. Every operation
// re-checks the principal itself; the HTTP middleware is not trusted to be
// the only gate.
type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger, now: time.Now}
}

// Result is the common success payload of the callable operations.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Aggregate pairs the user document with its student profile.
type Aggregate struct {
	User           model.User           `json:"user"`
	StudentProfile model.StudentProfile `json:"studentProfile"`
}

// CreateUserProfile writes users/{uid} from the principal's identity
// fields. Calling it again for the same uid is a zero-write no-op, so
// clients and retry layers may invoke it freely.
func (s *Service) CreateUserProfile(ctx context.Context, principal *auth.Principal, provider string) (Result, error) {
	if err := requirePrincipal(principal); err != nil {
		return Result{}, err
	}
	if provider == "" {
		provider = model.ProviderEmail
	}

	now := s.now().UTC()
	user := model.User{
		Email:         principal.Email,
		DisplayName:   optional(principal.DisplayName),
		PhotoURL:      optional(principal.PhotoURL),
		Role:          model.RoleStudent,
		Provider:      provider,
		EmailVerified: principal.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastSignIn:    now,
	}

	created, err := s.store.CreateUserIfAbsent(ctx, principal.UID, user)
	if err != nil {
		s.logger.Error("user profile create failed", zap.String("uid", principal.UID), zap.Error(err))
		return Result{}, internalError("failed to create user profile")
	}
	if !created {
		return Result{Success: true, Message: "user profile already exists"}, nil
	}

	s.logger.Info("user profile created",
		zap.String("uid", principal.UID),
		zap.String("provider", provider),
	)
	return Result{Success: true, Message: "user profile created successfully"}, nil
}

// Outcomes of EnsureStudentProfile, for logging and metrics.
const (
	EnsureCreated = "created"
	EnsureExists  = "exists"
	EnsureSkipped = "skipped"
)

// EnsureStudentProfile is the reactive provisioning path, invoked when a
// new identity record is observed. It has no caller to report to: events
// without usable data are skipped, and the event source's redelivery is
// the retry mechanism for storage faults.
func (s *Service) EnsureStudentProfile(ctx context.Context, uid, email string, displayName, photoURL *string) (string, error) {
	if uid == "" || email == "" {
		s.logger.Warn("user created event carries no usable data", zap.String("uid", uid))
		return EnsureSkipped, nil
	}

	profile := model.NewStudentProfile(email, displayName, photoURL, s.now().UTC())
	created, err := s.store.CreateStudentProfileIfAbsent(ctx, uid, profile)
	if err != nil {
		s.logger.Error("student profile provisioning failed", zap.String("uid", uid), zap.Error(err))
		return "", err
	}
	if !created {
		return EnsureExists, nil
	}

	s.logger.Info("student profile created", zap.String("uid", uid))
	return EnsureCreated, nil
}

// UpdateLastSignIn stamps the sign-in time on both documents in one
// atomic commit. Both exist or nothing is written.
func (s *Service) UpdateLastSignIn(ctx context.Context, principal *auth.Principal) (Result, error) {
	if err := requirePrincipal(principal); err != nil {
		return Result{}, err
	}

	if err := s.store.TouchLastSignIn(ctx, principal.UID, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, notFound("user profile not found")
		}
		s.logger.Error("last sign-in update failed", zap.String("uid", principal.UID), zap.Error(err))
		return Result{}, internalError("failed to update last sign-in")
	}
	return Result{Success: true}, nil
}

// EnrollInCourse adds the course to the student's enrolled list and seeds
// its progress record. Duplicate submissions are rejected, not absorbed.
func (s *Service) EnrollInCourse(ctx context.Context, principal *auth.Principal, courseID string) (Result, error) {
	if err := requirePrincipal(principal); err != nil {
		return Result{}, err
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return Result{}, invalidArgument("course ID is required")
	}

	now := s.now().UTC()
	err := s.store.EnrollCourse(ctx, principal.UID, courseID, model.NewCourseProgress(now), now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return Result{}, notFound("student profile not found")
		case errors.Is(err, store.ErrAlreadyExists):
			return Result{}, alreadyExists("already enrolled in this course")
		default:
			s.logger.Error("enrollment failed",
				zap.String("uid", principal.UID),
				zap.String("course_id", courseID),
				zap.Error(err),
			)
			return Result{}, internalError("failed to enroll in course")
		}
	}

	s.logger.Info("enrolled in course",
		zap.String("uid", principal.UID),
		zap.String("course_id", courseID),
	)
	return Result{Success: true, Message: "successfully enrolled in course"}, nil
}

// GetProfile returns the caller's profile aggregate.
func (s *Service) GetProfile(ctx context.Context, principal *auth.Principal) (Aggregate, error) {
	if err := requirePrincipal(principal); err != nil {
		return Aggregate{}, err
	}

	user, err := s.store.GetUser(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Aggregate{}, notFound("user profile not found")
		}
		s.logger.Error("user read failed", zap.String("uid", principal.UID), zap.Error(err))
		return Aggregate{}, internalError("failed to load profile")
	}

	profile, err := s.store.GetStudentProfile(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Aggregate{}, notFound("student profile not found")
		}
		s.logger.Error("student profile read failed", zap.String("uid", principal.UID), zap.Error(err))
		return Aggregate{}, internalError("failed to load profile")
	}

	return Aggregate{User: user, StudentProfile: profile}, nil
}

func requirePrincipal(principal *auth.Principal) error {
	if principal == nil || principal.UID == "" {
		return ErrUnauthenticated
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
