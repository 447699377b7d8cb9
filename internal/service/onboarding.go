package service

import (
	"context"
	"errors"
	"fmt"

	"learnstream/internal/identity"
	"learnstream/internal/logger"
	"learnstream/internal/models"
)

// EmailDirectory resolves the email address of an identity subject.
type EmailDirectory interface {
	Email(ctx context.Context, subject string) (string, error)
}

// OnboardingRequest is the learner profile submitted after sign-up.
type OnboardingRequest struct {
	Age                  int               `json:"age"`
	DifficultyPreference models.Difficulty `json:"difficultyPreference"`
}

// OnboardingResult reports the stored user and whether it was new.
type OnboardingResult struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
	Created bool        `json:"-"`
}

type OnboardingService struct {
	users     models.UserStore
	directory EmailDirectory
	log       *logger.Logger
}

func NewOnboardingService(users models.UserStore, directory EmailDirectory, log *logger.Logger) *OnboardingService {
	return &OnboardingService{users: users, directory: directory, log: log}
}

// Onboard validates the profile, looks up the subject's email and creates or
// updates the user row for subject.
func (s *OnboardingService) Onboard(ctx context.Context, subject string, req OnboardingRequest) (OnboardingResult, error) {
	if req.Age < models.MinAge || req.Age > models.MaxAge {
		return OnboardingResult{}, invalid("age", "Age must be between %d and %d", models.MinAge, models.MaxAge)
	}
	if !req.DifficultyPreference.Valid() {
		return OnboardingResult{}, invalid("difficultyPreference", "Invalid difficulty preference")
	}

	email, err := s.directory.Email(ctx, subject)
	if err != nil {
		if errors.Is(err, identity.ErrNoEmail) {
			return OnboardingResult{}, invalid("email", "User email not found")
		}
		return OnboardingResult{}, fmt.Errorf("failed to fetch user email: %w", err)
	}

	saved, created, err := s.users.Upsert(ctx, models.User{
		SubjectID:            subject,
		Email:                email,
		Age:                  req.Age,
		DifficultyPreference: req.DifficultyPreference,
	})
	if err != nil {
		return OnboardingResult{}, fmt.Errorf("failed to save user: %w", err)
	}

	res := OnboardingResult{User: saved, Created: created, Message: "User updated successfully"}
	if created {
		res.Message = "User created successfully"
	}
	s.log.Info("user onboarded", "user_id", saved.ID, "created", created, "difficulty", saved.DifficultyPreference)
	return res, nil
}

// Me returns the onboarded user for subject.
func (s *OnboardingService) Me(ctx context.Context, subject string) (models.User, error) {
	u, err := s.users.GetBySubject(ctx, subject)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}
