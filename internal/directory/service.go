package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"beaconattend/internal/apperr"
)

// Input is the writable part of an identity. Password applies to students
// only and is required on create.
type Input struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	BeaconID string `json:"bluetoothId" validate:"required,max=64"`
	Subject  string `json:"subject" validate:"max=200"`
	Password string `json:"password" validate:"omitempty,min=4,max=72"`
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.BeaconID = strings.TrimSpace(in.BeaconID)
	in.Subject = strings.TrimSpace(in.Subject)
	return in
}

// Service implements directory CRUD on top of a Repository.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, validate *validator.Validate, logger zerolog.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{
		repo:     repo,
		validate: validate,
		logger:   logger.With().Str("component", "directory").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, kind Kind, in Input) (*Identity, error) {
	if err := s.check(kind, in); err != nil {
		return nil, err
	}
	in = in.normalized()
	if kind == KindStudent && in.Password == "" {
		return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "Password", Message: "is required"})
	}

	ident := &Identity{Kind: kind, Name: in.Name, Email: in.Email, BeaconID: in.BeaconID}
	if kind == KindTeacher {
		ident.Subject = in.Subject
	}
	if err := s.setPassword(ident, in.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ident); err != nil {
		return nil, err
	}
	s.logger.Info().Str("kind", string(kind)).Str("id", ident.ID).Str("beacon_id", ident.BeaconID).Msg("identity created")
	return ident, nil
}

func (s *Service) Get(ctx context.Context, kind Kind, id string) (*Identity, error) {
	if !kind.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown identity kind %q", kind))
	}
	return s.repo.Get(ctx, kind, id)
}

func (s *Service) List(ctx context.Context, kind Kind) ([]Identity, error) {
	if !kind.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown identity kind %q", kind))
	}
	return s.repo.List(ctx, kind)
}

// Update replaces the mutable fields of an identity. An empty password keeps
// the stored credential. Past attendance entries keep their captured names.
func (s *Service) Update(ctx context.Context, kind Kind, id string, in Input) (*Identity, error) {
	if err := s.check(kind, in); err != nil {
		return nil, err
	}
	in = in.normalized()

	ident, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	ident.Name = in.Name
	ident.Email = in.Email
	ident.BeaconID = in.BeaconID
	if kind == KindTeacher {
		ident.Subject = in.Subject
	}
	if in.Password != "" {
		if err := s.setPassword(ident, in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, ident); err != nil {
		return nil, err
	}
	s.logger.Info().Str("kind", string(kind)).Str("id", id).Msg("identity updated")
	return ident, nil
}

func (s *Service) Delete(ctx context.Context, kind Kind, id string) error {
	if !kind.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown identity kind %q", kind))
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.logger.Info().Str("kind", string(kind)).Str("id", id).Msg("identity deleted")
	return nil
}

// Count returns the size of one sub-directory.
func (s *Service) Count(ctx context.Context, kind Kind) (int, error) {
	return s.repo.Count(ctx, kind)
}

func (s *Service) check(kind Kind, in Input) error {
	if !kind.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown identity kind %q", kind))
	}
	return apperr.FromValidator(s.validate.Struct(in.normalized()))
}

func (s *Service) setPassword(ident *Identity, password string) error {
	if ident.Kind != KindStudent || password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ident.PasswordHash = string(hash)
	return nil
}
