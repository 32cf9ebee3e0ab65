package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/biplovgautam/bilearnhub/internal/model"
)

const (
	usersCollection    = "users"
	profilesCollection = "student_profiles"
)

// Firestore backs the store with Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (s *Firestore) userRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func (s *Firestore) profileRef(uid string) *firestore.DocumentRef {
	return s.client.Collection(profilesCollection).Doc(uid)
}

func (s *Firestore) GetUser(ctx context.Context, uid string) (model.User, error) {
	var user model.User
	snap, err := s.userRef(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return user, ErrNotFound
		}
		return user, err
	}
	if err := snap.DataTo(&user); err != nil {
		return user, err
	}
	return user, nil
}

func (s *Firestore) GetStudentProfile(ctx context.Context, uid string) (model.StudentProfile, error) {
	var profile model.StudentProfile
	snap, err := s.profileRef(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return profile, ErrNotFound
		}
		return profile, err
	}
	if err := snap.DataTo(&profile); err != nil {
		return profile, err
	}
	return profile, nil
}

func (s *Firestore) CreateUserIfAbsent(ctx context.Context, uid string, user model.User) (bool, error) {
	_, err := s.userRef(uid).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Firestore) CreateStudentProfileIfAbsent(ctx context.Context, uid string, profile model.StudentProfile) (bool, error) {
	_, err := s.profileRef(uid).Create(ctx, profile)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Firestore) TouchLastSignIn(ctx context.Context, uid string, at time.Time) error {
	userRef := s.userRef(uid)
	profileRef := s.profileRef(uid)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		// Reads come first; a missing document surfaces as NotFound
		// before anything is staged, so neither update commits.
		if _, err := tx.Get(userRef); err != nil {
			return err
		}
		if _, err := tx.Get(profileRef); err != nil {
			return err
		}

		if err := tx.Update(userRef, []firestore.Update{
			{Path: "lastSignIn", Value: at},
			{Path: "updatedAt", Value: at},
		}); err != nil {
			return err
		}
		return tx.Update(profileRef, []firestore.Update{
			{Path: "stats.lastActiveDate", Value: at},
			{Path: "updatedAt", Value: at},
		})
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *Firestore) EnrollCourse(ctx context.Context, uid, courseID string, progress model.CourseProgress, at time.Time) error {
	profileRef := s.profileRef(uid)

	return s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(profileRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}

		var profile model.StudentProfile
		if err := snap.DataTo(&profile); err != nil {
			return err
		}
		if profile.IsEnrolled(courseID) {
			return ErrAlreadyExists
		}

		// Course ids appear as map keys, so the progress entry is
		// addressed by FieldPath rather than a dotted path.
		return tx.Update(profileRef, []firestore.Update{
			{Path: "enrolledCourses", Value: firestore.ArrayUnion(courseID)},
			{FieldPath: firestore.FieldPath{"progress", courseID}, Value: progress},
			{Path: "updatedAt", Value: at},
		})
	})
}
