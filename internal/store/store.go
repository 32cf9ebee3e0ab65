package store

import (
	"context"
	"errors"
	"time"

	"github.com/biplovgautam/bilearnhub/internal/model"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Store is the single gateway to the users and student_profiles
// collections. Atomicity policy lives here rather than in the callers:
// creates are store-level create-if-absent, the sign-in touch commits both
// documents or neither, and enrollment re-checks membership inside the
// same transaction that appends.
type Store interface {
	GetUser(ctx context.Context, uid string) (model.User, error)
	GetStudentProfile(ctx context.Context, uid string) (model.StudentProfile, error)

	// CreateUserIfAbsent writes users/{uid} unless it already exists.
	// Reports whether a write happened.
	CreateUserIfAbsent(ctx context.Context, uid string, user model.User) (bool, error)

	// CreateStudentProfileIfAbsent writes student_profiles/{uid} unless it
	// already exists. Reports whether a write happened.
	CreateStudentProfileIfAbsent(ctx context.Context, uid string, profile model.StudentProfile) (bool, error)

	// TouchLastSignIn updates users/{uid}.lastSignIn and
	// student_profiles/{uid}.stats.lastActiveDate in one atomic commit.
	// Returns ErrNotFound, touching neither document, when either is
	// missing.
	TouchLastSignIn(ctx context.Context, uid string, at time.Time) error

	// EnrollCourse appends courseID to the enrolled list and creates its
	// progress entry in a single document update. Returns ErrNotFound when
	// the profile is missing and ErrAlreadyExists when the course is
	// already enrolled, both decided against the state read inside the
	// enrolling transaction.
	EnrollCourse(ctx context.Context, uid, courseID string, progress model.CourseProgress, at time.Time) error
}
