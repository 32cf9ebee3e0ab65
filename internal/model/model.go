package model

import "time"

// RoleStudent is the only role this service assigns at creation time.
const RoleStudent = "student"

// Sign-up providers recognized on user documents.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User is the users/{uid} document. It is the source of truth for
// identity-derived fields; the student profile is a projection of it.
type User struct {
	Email         string    `json:"email" firestore:"email"`
	DisplayName   *string   `json:"displayName" firestore:"displayName"`
	PhotoURL      *string   `json:"photoURL" firestore:"photoURL"`
	Role          string    `json:"role" firestore:"role"`
	Provider      string    `json:"provider" firestore:"provider"`
	EmailVerified bool      `json:"emailVerified" firestore:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" firestore:"updatedAt"`
	LastSignIn    time.Time `json:"lastSignIn" firestore:"lastSignIn"`
}

// StudentProfile is the student_profiles/{uid} document.
type StudentProfile struct {
	Email            string                    `json:"email" firestore:"email"`
	Role             string                    `json:"role" firestore:"role"`
	DisplayName      *string                   `json:"displayName" firestore:"displayName"`
	PhotoURL         *string                   `json:"photoURL" firestore:"photoURL"`
	EnrolledCourses  []string                  `json:"enrolledCourses" firestore:"enrolledCourses"`
	Progress         map[string]CourseProgress `json:"progress" firestore:"progress"`
	LinkedTeacherUID *string                   `json:"linkedTeacherUID" firestore:"linkedTeacherUID"`
	Preferences      Preferences               `json:"preferences" firestore:"preferences"`
	Stats            Stats                     `json:"stats" firestore:"stats"`
	CreatedAt        time.Time                 `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt" firestore:"updatedAt"`
}

// CourseProgress is the per-course learning state nested under
// progress[courseId]. An entry exists exactly when the course id is in
// EnrolledCourses.
type CourseProgress struct {
	StartDate          time.Time `json:"startDate" firestore:"startDate"`
	CompletedLessons   []string  `json:"completedLessons" firestore:"completedLessons"`
	CurrentLesson      *string   `json:"currentLesson" firestore:"currentLesson"`
	ProgressPercentage int       `json:"progressPercentage" firestore:"progressPercentage"`
	LastAccessDate     time.Time `json:"lastAccessDate" firestore:"lastAccessDate"`
}

type Preferences struct {
	Notifications bool   `json:"notifications" firestore:"notifications"`
	Theme         string `json:"theme" firestore:"theme"`
	Language      string `json:"language" firestore:"language"`
}

type Stats struct {
	CoursesCompleted  int       `json:"coursesCompleted" firestore:"coursesCompleted"`
	TotalLearningTime int       `json:"totalLearningTime" firestore:"totalLearningTime"`
	StreakDays        int       `json:"streakDays" firestore:"streakDays"`
	LastActiveDate    time.Time `json:"lastActiveDate" firestore:"lastActiveDate"`
}

// NewStudentProfile returns a profile with the default fields a freshly
// provisioned student gets.
func NewStudentProfile(email string, displayName, photoURL *string, now time.Time) StudentProfile {
	return StudentProfile{
		Email:            email,
		Role:             RoleStudent,
		DisplayName:      displayName,
		PhotoURL:         photoURL,
		EnrolledCourses:  []string{},
		Progress:         map[string]CourseProgress{},
		LinkedTeacherUID: nil,
		Preferences: Preferences{
			Notifications: true,
			Theme:         "light",
			Language:      "en",
		},
		Stats: Stats{
			CoursesCompleted:  0,
			TotalLearningTime: 0,
			StreakDays:        0,
			LastActiveDate:    now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewCourseProgress returns the zero-progress record created at enrollment.
func NewCourseProgress(now time.Time) CourseProgress {
	return CourseProgress{
		StartDate:          now,
		CompletedLessons:   []string{},
		CurrentLesson:      nil,
		ProgressPercentage: 0,
		LastAccessDate:     now,
	}
}

// IsEnrolled reports whether courseID is already in the enrolled list.
func (p StudentProfile) IsEnrolled(courseID string) bool {
	for _, id := range p.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
