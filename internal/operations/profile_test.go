package operations

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/biplovgautam/bilearnhub/internal/auth"
	"github.com/biplovgautam/bilearnhub/internal/store"
)

func newTestService() (*Service, *store.Memory, *time.Time) {
	mem := store.NewMemory()
	svc := NewService(mem, zap.NewNop())
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, mem, &now
}

func principal(uid string) *auth.Principal {
	return &auth.Principal{
		UID:           uid,
		Email:         uid + "@example.com",
		DisplayName:   "Student " + uid,
		EmailVerified: true,
	}
}

func opCode(t *testing.T, err error) string {
	t.Helper()
	var opErr *Error
	if !errors.As(err, &opErr) {
		t.Fatalf("expected operation error, got %v", err)
	}
	return opErr.Code
}

func TestCreateUserProfileIdempotent(t *testing.T) {
	svc, mem, now := newTestService()
	ctx := context.Background()

	result, err := svc.CreateUserProfile(ctx, principal("u1"), "")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !result.Success || result.Message != "user profile created successfully" {
		t.Fatalf("unexpected first result: %+v", result)
	}

	firstWrite := *now
	user, err := mem.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Role != "student" || user.Provider != "email" {
		t.Fatalf("unexpected defaults: role=%s provider=%s", user.Role, user.Provider)
	}

	// Second call later must succeed without writing anything.
	*now = now.Add(time.Hour)
	result, err = svc.CreateUserProfile(ctx, principal("u1"), "google")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !result.Success || result.Message != "user profile already exists" {
		t.Fatalf("unexpected second result: %+v", result)
	}

	user, _ = mem.GetUser(ctx, "u1")
	if !user.UpdatedAt.Equal(firstWrite) {
		t.Fatalf("second create wrote to the document: %s", user.UpdatedAt)
	}
	if user.Provider != "email" {
		t.Fatalf("second create changed provider: %s", user.Provider)
	}
}

func TestCreateUserProfileKeepsProviderTag(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateUserProfile(ctx, principal("u2"), "google"); err != nil {
		t.Fatalf("create: %v", err)
	}
	user, _ := mem.GetUser(ctx, "u2")
	if user.Provider != "google" {
		t.Fatalf("expected provider google, got %s", user.Provider)
	}
}

func TestOperationsRequireVerifiedPrincipal(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()

	cases := map[string]func(p *auth.Principal) error{
		"createUserProfile": func(p *auth.Principal) error {
			_, err := svc.CreateUserProfile(ctx, p, "")
			return err
		},
		"updateLastSignIn": func(p *auth.Principal) error {
			_, err := svc.UpdateLastSignIn(ctx, p)
			return err
		},
		"enrollInCourse": func(p *auth.Principal) error {
			_, err := svc.EnrollInCourse(ctx, p, "c1")
			return err
		},
		"getProfile": func(p *auth.Principal) error {
			_, err := svc.GetProfile(ctx, p)
			return err
		},
	}

	for name, call := range cases {
		if code := opCode(t, call(nil)); code != CodeUnauthenticated {
			t.Fatalf("%s with nil principal: expected unauthenticated, got %s", name, code)
		}
		if code := opCode(t, call(&auth.Principal{})); code != CodeUnauthenticated {
			t.Fatalf("%s with empty uid: expected unauthenticated, got %s", name, code)
		}
	}

	// No operation may have written anything.
	if _, err := mem.GetUser(ctx, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unauthenticated call wrote a user document")
	}
	if _, err := mem.GetStudentProfile(ctx, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unauthenticated call wrote a profile document")
	}
}

func TestEnrollValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if code := opCode(t, mustErr(svc.EnrollInCourse(ctx, principal("u1"), ""))); code != CodeInvalidArgument {
		t.Fatalf("expected invalid-argument for empty course id, got %s", code)
	}
	if code := opCode(t, mustErr(svc.EnrollInCourse(ctx, principal("u1"), "   "))); code != CodeInvalidArgument {
		t.Fatalf("expected invalid-argument for blank course id, got %s", code)
	}
	if code := opCode(t, mustErr(svc.EnrollInCourse(ctx, principal("u1"), "c1"))); code != CodeNotFound {
		t.Fatalf("expected not-found without a student profile, got %s", code)
	}
}

func TestEnrollTwice(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()

	if outcome, err := svc.EnsureStudentProfile(ctx, "u1", "u1@example.com", nil, nil); err != nil || outcome != EnsureCreated {
		t.Fatalf("ensure profile: outcome=%s err=%v", outcome, err)
	}

	result, err := svc.EnrollInCourse(ctx, principal("u1"), "c1")
	if err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if !result.Success {
		t.Fatalf("unexpected first enroll result: %+v", result)
	}

	if code := opCode(t, mustErr(svc.EnrollInCourse(ctx, principal("u1"), "c1"))); code != CodeAlreadyExists {
		t.Fatalf("expected already-exists on duplicate enrollment, got %s", code)
	}

	profile, _ := mem.GetStudentProfile(ctx, "u1")
	count := 0
	for _, id := range profile.EnrolledCourses {
		if id == "c1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one copy of c1, got %v", profile.EnrolledCourses)
	}
	if profile.Progress["c1"].ProgressPercentage != 0 {
		t.Fatalf("expected zero progress, got %d", profile.Progress["c1"].ProgressPercentage)
	}
}

func TestUpdateLastSignInAllOrNothing(t *testing.T) {
	svc, mem, now := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateUserProfile(ctx, principal("u1"), ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	createdAt := *now

	// Student profile missing: the users document must stay untouched.
	*now = now.Add(time.Hour)
	if code := opCode(t, mustErr(svc.UpdateLastSignIn(ctx, principal("u1")))); code != CodeNotFound {
		t.Fatalf("expected not-found, got %s", code)
	}
	user, _ := mem.GetUser(ctx, "u1")
	if !user.LastSignIn.Equal(createdAt) {
		t.Fatalf("lastSignIn changed despite failed touch: %s", user.LastSignIn)
	}

	if _, err := svc.EnsureStudentProfile(ctx, "u1", "u1@example.com", nil, nil); err != nil {
		t.Fatalf("ensure profile: %v", err)
	}
	result, err := svc.UpdateLastSignIn(ctx, principal("u1"))
	if err != nil || !result.Success {
		t.Fatalf("touch: result=%+v err=%v", result, err)
	}
	user, _ = mem.GetUser(ctx, "u1")
	profile, _ := mem.GetStudentProfile(ctx, "u1")
	if !user.LastSignIn.Equal(*now) || !profile.Stats.LastActiveDate.Equal(*now) {
		t.Fatalf("touch did not update both documents")
	}
}

func TestEnsureStudentProfileOutcomes(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()

	outcome, err := svc.EnsureStudentProfile(ctx, "u1", "", nil, nil)
	if err != nil || outcome != EnsureSkipped {
		t.Fatalf("expected skip without email, got outcome=%s err=%v", outcome, err)
	}
	if _, err := mem.GetStudentProfile(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("skip wrote a document")
	}

	name := "Student One"
	outcome, err = svc.EnsureStudentProfile(ctx, "u1", "u1@example.com", &name, nil)
	if err != nil || outcome != EnsureCreated {
		t.Fatalf("expected created, got outcome=%s err=%v", outcome, err)
	}

	outcome, err = svc.EnsureStudentProfile(ctx, "u1", "u1@example.com", &name, nil)
	if err != nil || outcome != EnsureExists {
		t.Fatalf("expected exists on redelivery, got outcome=%s err=%v", outcome, err)
	}

	profile, _ := mem.GetStudentProfile(ctx, "u1")
	if len(profile.EnrolledCourses) != 0 || len(profile.Progress) != 0 {
		t.Fatalf("fresh profile is not empty: %+v", profile)
	}
	if !profile.Preferences.Notifications || profile.Preferences.Theme != "light" || profile.Preferences.Language != "en" {
		t.Fatalf("unexpected default preferences: %+v", profile.Preferences)
	}
	if profile.LinkedTeacherUID != nil {
		t.Fatalf("expected no linked teacher on a fresh profile")
	}
}

// Full sign-up flow: reactive provisioning, client profile creation,
// enrollment, duplicate rejection.
func TestSignupScenario(t *testing.T) {
	svc, mem, _ := newTestService()
	ctx := context.Background()

	if outcome, err := svc.EnsureStudentProfile(ctx, "u1", "u1@example.com", nil, nil); err != nil || outcome != EnsureCreated {
		t.Fatalf("reactive path: outcome=%s err=%v", outcome, err)
	}
	profile, _ := mem.GetStudentProfile(ctx, "u1")
	if len(profile.EnrolledCourses) != 0 {
		t.Fatalf("expected empty enrollment list, got %v", profile.EnrolledCourses)
	}

	if _, err := svc.CreateUserProfile(ctx, principal("u1"), "email"); err != nil {
		t.Fatalf("create user profile: %v", err)
	}
	user, _ := mem.GetUser(ctx, "u1")
	if user.Role != "student" {
		t.Fatalf("expected role student, got %s", user.Role)
	}

	if _, err := svc.EnrollInCourse(ctx, principal("u1"), "c1"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	profile, _ = mem.GetStudentProfile(ctx, "u1")
	if len(profile.EnrolledCourses) != 1 || profile.EnrolledCourses[0] != "c1" {
		t.Fatalf("expected enrolledCourses [c1], got %v", profile.EnrolledCourses)
	}
	if profile.Progress["c1"].ProgressPercentage != 0 {
		t.Fatalf("expected progress 0 for c1")
	}

	if code := opCode(t, mustErr(svc.EnrollInCourse(ctx, principal("u1"), "c1"))); code != CodeAlreadyExists {
		t.Fatalf("expected already-exists on repeat, got %s", code)
	}
}

func mustErr(_ Result, err error) error {
	return err
}
