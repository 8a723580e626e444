package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sevatrust/seva-donations/internal/api/validate"
	"github.com/sevatrust/seva-donations/internal/apperr"
	"github.com/sevatrust/seva-donations/internal/auth"
	"github.com/sevatrust/seva-donations/internal/logger"
	"github.com/sevatrust/seva-donations/internal/models"
	repo "github.com/sevatrust/seva-donations/internal/repository"
)

type UserService struct {
	r     repo.Users
	tm    *auth.TokenManager
	audit *Auditor
}

func NewUserService(r repo.Users, tm *auth.TokenManager, a *Auditor) *UserService {
	return &UserService{r: r, tm: tm, audit: a}
}

type UserInput struct {
	Username string `json:"username" validate:"required,min=3,max=60"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
	IsActive *bool  `json:"is_active"`
}

var errBadCredentials = apperr.Unauthorized("invalid credentials")

// Login checks the password and issues a token pair. Unknown users, wrong passwords
// and inactive accounts get the same answer.
func (s *UserService) Login(ctx context.Context, email, password string) (auth.Pair, models.User, error) {
	u, err := s.r.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return auth.Pair{}, models.User{}, errBadCredentials
		}
		return auth.Pair{}, models.User{}, err
	}
	if auth.VerifyPassword(password, u.PasswordHash) != nil || !u.IsActive {
		logger.FromContext(ctx).Info("login refused", "user_id", u.ID, "active", u.IsActive)
		return auth.Pair{}, models.User{}, errBadCredentials
	}
	pair, err := s.tm.GeneratePair(strconv.FormatInt(u.ID, 10), u.Role)
	if err != nil {
		return auth.Pair{}, models.User{}, apperr.Internal("issue token", err)
	}
	return pair, u, nil
}

// Refresh trades a refresh token for a new pair, re-reading role and active flag.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	claims, err := s.tm.ParseRefresh(refreshToken)
	if err != nil {
		return auth.Pair{}, apperr.Unauthorized("invalid refresh token")
	}
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return auth.Pair{}, apperr.Unauthorized("invalid refresh token")
	}
	u, err := s.r.GetByID(ctx, id)
	if err != nil || !u.IsActive {
		return auth.Pair{}, apperr.Unauthorized("invalid refresh token")
	}
	pair, err := s.tm.GeneratePair(claims.UserID, u.Role)
	if err != nil {
		return auth.Pair{}, apperr.Internal("issue token", err)
	}
	return pair, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) { return s.r.List(ctx) }

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) { return s.r.GetByID(ctx, id) }

func (s *UserService) Create(ctx context.Context, in UserInput) (models.User, error) {
	if err := validate.Struct(in); err != nil {
		return models.User{}, err
	}
	if in.Password == "" {
		return models.User{}, fieldErr("password", "required")
	}
	u := models.User{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Role:     in.Role,
		IsActive: boolOr(in.IsActive, true),
	}
	if err := u.Validate(); err != nil {
		return models.User{}, apperr.Validation(err.Error())
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Internal("hash password", err)
	}
	u.PasswordHash = hash
	out, err := s.r.Create(ctx, u)
	if err != nil {
		return out, err
	}
	s.audit.Record(ctx, "user", out.ID, "created", map[string]any{"role": out.Role})
	return out, nil
}

// Update replaces profile fields; the password changes only when one is given.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (models.User, error) {
	if err := validate.Struct(in); err != nil {
		return models.User{}, err
	}
	cur, err := s.r.GetByID(ctx, id)
	if err != nil {
		return cur, err
	}
	cur.Username = strings.TrimSpace(in.Username)
	cur.Email = strings.TrimSpace(in.Email)
	if in.Role != "" {
		cur.Role = in.Role
	}
	cur.IsActive = boolOr(in.IsActive, cur.IsActive)
	if err := cur.Validate(); err != nil {
		return models.User{}, apperr.Validation(err.Error())
	}
	cur.PasswordHash = ""
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return models.User{}, apperr.Internal("hash password", err)
		}
		cur.PasswordHash = hash
	}

	out, err := s.r.Update(ctx, cur)
	if err != nil {
		return out, err
	}
	s.audit.Record(ctx, "user", id, "updated", map[string]any{"password_changed": in.Password != ""})
	return out, nil
}

// Delete removes the account. Donations it made keep their rows with user_id cleared.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.r.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "user", id, "deleted", nil)
	return nil
}

// EnsureAdmin creates the bootstrap admin if no account uses email yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.r.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	if len(username) < 3 {
		username = "admin"
	}
	_, err := s.Create(ctx, UserInput{Username: username, Email: email, Password: password, Role: models.RoleAdmin})
	if err == nil {
		logger.FromContext(ctx).Info("bootstrap admin created", "email", email)
	}
	return err
}
