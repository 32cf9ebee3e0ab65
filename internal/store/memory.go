package store

import (
	"context"
	"sync"
	"time"

	"github.com/biplovgautam/bilearnhub/internal/model"
)

// Memory is an in-process Store used by tests and local development. It
// honors the same atomicity contract as the Firestore implementation.
type Memory struct {
	mu       sync.Mutex
	users    map[string]model.User
	profiles map[string]model.StudentProfile
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]model.User),
		profiles: make(map[string]model.StudentProfile),
	}
}

func (m *Memory) GetUser(_ context.Context, uid string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[uid]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (m *Memory) GetStudentProfile(_ context.Context, uid string) (model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[uid]
	if !ok {
		return model.StudentProfile{}, ErrNotFound
	}
	return cloneProfile(profile), nil
}

func (m *Memory) CreateUserIfAbsent(_ context.Context, uid string, user model.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[uid]; ok {
		return false, nil
	}
	m.users[uid] = user
	return true, nil
}

func (m *Memory) CreateStudentProfileIfAbsent(_ context.Context, uid string, profile model.StudentProfile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[uid]; ok {
		return false, nil
	}
	m.profiles[uid] = cloneProfile(profile)
	return true, nil
}

func (m *Memory) TouchLastSignIn(_ context.Context, uid string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, userOK := m.users[uid]
	profile, profileOK := m.profiles[uid]
	if !userOK || !profileOK {
		return ErrNotFound
	}

	user.LastSignIn = at
	user.UpdatedAt = at
	m.users[uid] = user

	profile.Stats.LastActiveDate = at
	profile.UpdatedAt = at
	m.profiles[uid] = profile
	return nil
}

func (m *Memory) EnrollCourse(_ context.Context, uid, courseID string, progress model.CourseProgress, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[uid]
	if !ok {
		return ErrNotFound
	}
	if profile.IsEnrolled(courseID) {
		return ErrAlreadyExists
	}

	updated := cloneProfile(profile)
	updated.EnrolledCourses = append(updated.EnrolledCourses, courseID)
	if updated.Progress == nil {
		updated.Progress = make(map[string]model.CourseProgress)
	}
	updated.Progress[courseID] = progress
	updated.UpdatedAt = at
	m.profiles[uid] = updated
	return nil
}

// cloneProfile copies the slice and map fields so callers cannot mutate
// stored state through a returned profile.
func cloneProfile(p model.StudentProfile) model.StudentProfile {
	out := p
	out.EnrolledCourses = make([]string, len(p.EnrolledCourses))
	copy(out.EnrolledCourses, p.EnrolledCourses)
	out.Progress = make(map[string]model.CourseProgress, len(p.Progress))
	for id, progress := range p.Progress {
		entry := progress
		entry.CompletedLessons = make([]string, len(progress.CompletedLessons))
		copy(entry.CompletedLessons, progress.CompletedLessons)
		out.Progress[id] = entry
	}
	return out
}
