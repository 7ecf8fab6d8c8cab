package suppliers

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/outbox"
	"github.com/construplaza/construplaza-backend/pkg/pagination"
	"github.com/construplaza/construplaza-backend/pkg/rnc"
	"github.com/construplaza/construplaza-backend/pkg/security"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(tx *gorm.DB, input outbox.EmitInput) error
}

// RNCValidator checks a tax id against the fiscal registry. Satisfied by
// pkg/rnc.Client.
type RNCValidator interface {
	Validate(ctx context.Context, rnc string) (*rnc.Result, error)
}

// PlanReader resolves the supplier's current plan for limit checks.
type PlanReader interface {
	FindCurrentSubscription(ctx context.Context, supplierID uuid.UUID) (*models.Subscription, error)
}

// ServiceParams groups dependencies for the supplier service.
type ServiceParams struct {
	Repo     Repository
	DB       TxRunner
	RNC      RNCValidator
	Plans    PlanReader
	Outbox   EventEmitter
	Logger   *logger.Logger
	Password config.PasswordConfig
}

// Service manages supplier registration and profiles.
type Service struct {
	repo     Repository
	db       TxRunner
	rnc      RNCValidator
	plans    PlanReader
	outbox   EventEmitter
	logger   *logger.Logger
	password config.PasswordConfig
}

// NewService builds a supplier service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.DB == nil {
		return nil, stdErrors.New("db client is required")
	}
	if params.RNC == nil {
		return nil, stdErrors.New("rnc validator is required")
	}
	if params.Plans == nil {
		return nil, stdErrors.New("plan reader is required")
	}
	if params.Outbox == nil {
		return nil, stdErrors.New("outbox is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	return &Service{
		repo:     params.Repo,
		db:       params.DB,
		rnc:      params.RNC,
		plans:    params.Plans,
		outbox:   params.Outbox,
		logger:   params.Logger,
		password: params.Password,
	}, nil
}

// RegisterInput creates a supplier account: a user row plus the supplier
// profile.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	CompanyName string
	RNC         string
	Phone       string
	Location    string
	Description string
}

// RegisterResult reports the created account and whether the RNC could be
// verified against the registry.
type RegisterResult struct {
	User        *models.User     `json:"user"`
	Supplier    *models.Supplier `json:"supplier"`
	RNCVerified bool             `json:"rncVerified"`
}

// Register creates the supplier account. The RNC is checked against the
// fiscal registry first: a registry that answers "invalid" rejects the
// registration, while an unreachable registry lets it proceed unverified.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	rncValue := strings.TrimSpace(input.RNC)

	if email == "" || input.Password == "" || strings.TrimSpace(input.CompanyName) == "" {
		return nil, errors.New(errors.CodeValidation, "email, password and company name are required")
	}
	if !rnc.IsWellFormed(rncValue) {
		return nil, errors.New(errors.CodeValidation, "rnc must be 9 or 11 digits")
	}

	existingUser, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "checking email")
	}
	if existingUser != nil {
		return nil, errors.New(errors.CodeConflict, "email already registered")
	}
	existingSupplier, err := s.repo.FindByRNC(ctx, rncValue)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "checking rnc")
	}
	if existingSupplier != nil {
		return nil, errors.New(errors.CodeConflict, "rnc already registered")
	}

	verified := false
	result, err := s.rnc.Validate(ctx, rncValue)
	switch {
	case err != nil:
		// Registry unreachable is "could not validate", never "invalid".
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{"rnc": rncValue}),
			"rnc registry unavailable, registering unverified")
	case !result.Valid:
		return nil, errors.New(errors.CodeValidation, "rnc not found in fiscal registry")
	default:
		verified = true
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         enums.UserRoleSupplier,
	}
	supplier := &models.Supplier{
		ID:          uuid.New(),
		UserID:      user.ID,
		Name:        strings.TrimSpace(input.CompanyName),
		RNC:         rncValue,
		RNCVerified: verified,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Phone:       strings.TrimSpace(input.Phone),
		Specialties: []string{},
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateUser(ctx, user); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating user")
		}
		if err := repo.CreateSupplier(ctx, supplier); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating supplier")
		}
		return s.outbox.Emit(tx, outbox.EmitInput{
			EventType:     enums.OutboxEventSupplierRegistered,
			AggregateType: enums.OutboxAggregateSupplier,
			AggregateID:   supplier.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, SupplierID: &supplier.ID, Role: user.Role.String()},
			Data: map[string]any{
				"name":        supplier.Name,
				"rnc":         supplier.RNC,
				"rncVerified": verified,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{User: user, Supplier: supplier, RNCVerified: verified}, nil
}

// Get returns a supplier by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading supplier")
	}
	if supplier == nil {
		return nil, errors.New(errors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

// GetByUserID returns the supplier profile behind a user account.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading supplier")
	}
	if supplier == nil {
		return nil, errors.New(errors.CodeNotFound, "no supplier profile for user")
	}
	return supplier, nil
}

// UpdateProfileInput mutates the supplier's public profile. Nil fields are
// left untouched.
type UpdateProfileInput struct {
	Name        *string
	Description *string
	Location    *string
	Phone       *string
	Specialties *[]string
}

// UpdateProfile applies profile changes. Specialty counts are capped by the
// supplier's plan tier; without a subscription the basic tier limits apply.
func (s *Service) UpdateProfile(ctx context.Context, supplierID uuid.UUID, input UpdateProfileInput) (*models.Supplier, error) {
	supplier, err := s.Get(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	if input.Specialties != nil {
		limit, err := s.specialtyLimit(ctx, supplierID)
		if err != nil {
			return nil, err
		}
		specialties := normalizeSpecialties(*input.Specialties)
		if limit != plans.Unlimited && len(specialties) > limit {
			return nil, errors.New(errors.CodePlanLimit, "too many specialties for plan").
				WithDetails(map[string]any{"limit": limit, "requested": len(specialties)})
		}
		supplier.Specialties = specialties
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		supplier.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		supplier.Description = strings.TrimSpace(*input.Description)
	}
	if input.Location != nil {
		supplier.Location = strings.TrimSpace(*input.Location)
	}
	if input.Phone != nil {
		supplier.Phone = strings.TrimSpace(*input.Phone)
	}

	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving supplier")
	}
	return supplier, nil
}

// SetVerified toggles the RNC verification flag (admin back-office).
func (s *Service) SetVerified(ctx context.Context, supplierID uuid.UUID, verified bool) (*models.Supplier, error) {
	supplier, err := s.Get(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	supplier.RNCVerified = verified
	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving supplier")
	}
	return supplier, nil
}

// List returns the public directory page.
func (s *Service) List(ctx context.Context, params ListQuery) ([]models.Supplier, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) specialtyLimit(ctx context.Context, supplierID uuid.UUID) (int, error) {
	tier := enums.PlanTierBasic
	sub, err := s.plans.FindCurrentSubscription(ctx, supplierID)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "looking up subscription")
	}
	if sub != nil {
		tier = sub.PlanTier
	}
	limits, err := plans.PlanLimits(tier)
	if err != nil {
		return 0, err
	}
	return limits.MaxSpecialties, nil
}

func normalizeSpecialties(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
