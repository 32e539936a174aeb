package usecase

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/sanitize"
	"github.com/fekuna/buffet-service/internal/user"
	"github.com/fekuna/buffet-service/internal/user/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNameLen     = 2
	maxNameLen     = 50
	maxEmailLen    = 100
	minPasswordLen = 6
	maxPasswordLen = 72
	maxPhoneLen    = 20
	maxAddressLen  = 200
)

var (
	ErrInvalidCredentials = apperror.Unauthenticated("invalid_credentials", "invalid email or password")
	ErrTooManyAttempts    = apperror.New(apperror.KindRateLimited, "too_many_attempts", "too many login attempts, try again later")
	ErrWrongPassword      = apperror.Validation("wrong_password", "current password is incorrect").WithField("current_password")
	ErrDeleteSelf         = apperror.Policy("cannot_delete_self", "you cannot delete your own account")
	ErrUserHasOrders      = apperror.Policy("user_has_orders", "user has orders and cannot be deleted")
	ErrEmailTaken         = apperror.Conflict("email", "email is already registered")
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(u *model.User) (string, time.Time, error)
}

// LoginLimiter counts login attempts in a fixed window.
type LoginLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

type Options struct {
	BcryptCost    int
	MaxAttempts   int
	AttemptWindow time.Duration
}

type userUseCase struct {
	repo    user.Repository
	tokens  TokenIssuer
	limiter LoginLimiter
	opts    Options
	logger  logger.ZapLogger
	now     func() time.Time
}

// NewUserUseCase builds the identity usecase. limiter may be nil to disable rate limiting.
func NewUserUseCase(repo user.Repository, tokens TokenIssuer, limiter LoginLimiter, opts Options, log logger.ZapLogger) user.UseCase {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 12
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 5
	}
	if opts.AttemptWindow == 0 {
		opts.AttemptWindow = 15 * time.Minute
	}
	return &userUseCase{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		opts:    opts,
		logger:  log,
		now:     time.Now,
	}
}

func (uc *userUseCase) Register(ctx context.Context, input *dto.RegisterInput) (*dto.AuthResult, error) {
	u, err := uc.createUser(ctx, input, model.RoleUser)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("user registered", zap.Int64("user_id", u.ID))
	return uc.authResult(u)
}

func (uc *userUseCase) Login(ctx context.Context, input *dto.LoginInput) (*dto.AuthResult, error) {
	email := normalizeEmail(input.Email)
	var fields apperror.Fields
	fields.Check(email != "", "email", "email_required", "email is required")
	fields.Check(input.Password != "", "password", "password_required", "password is required")
	if err := fields.Err(); err != nil {
		return nil, err
	}

	key := "login:" + email + ":" + input.ClientIP
	if uc.limiter != nil {
		n, err := uc.limiter.Hit(ctx, key, uc.opts.AttemptWindow)
		if err != nil {
			uc.logger.Warn("login limiter unavailable", zap.Error(err))
		} else if n > int64(uc.opts.MaxAttempts) {
			return nil, ErrTooManyAttempts
		}
	}

	u, err := uc.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)) != nil {
		uc.logger.Info("login rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if uc.limiter != nil {
		if err := uc.limiter.Reset(ctx, key); err != nil {
			uc.logger.Warn("failed to reset login limiter", zap.Error(err))
		}
	}
	return uc.authResult(u)
}

func (uc *userUseCase) ChangePassword(ctx context.Context, userID int64, input *dto.ChangePasswordInput) error {
	var fields apperror.Fields
	fields.Check(input.CurrentPassword != "", "current_password", "password_required", "current password is required")
	checkPassword(&fields, "new_password", input.NewPassword)
	if err := fields.Err(); err != nil {
		return err
	}

	u, err := uc.mustFind(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.CurrentPassword)) != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), uc.opts.BcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	return uc.repo.UpdatePassword(ctx, userID, string(hash))
}

func (uc *userUseCase) GetProfile(ctx context.Context, id int64) (*model.User, error) {
	return uc.mustFind(ctx, id)
}

func (uc *userUseCase) UpdateProfile(ctx context.Context, id int64, input *dto.UpdateProfileInput) (*model.User, error) {
	u, err := uc.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.applyPatch(ctx, u, input); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, u); err != nil {
		if apperror.IsKind(err, apperror.KindConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (uc *userUseCase) SetAvatar(ctx context.Context, id int64, url *string) (*model.User, error) {
	u, err := uc.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	u.AvatarURL = url
	u.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *userUseCase) ListUsers(ctx context.Context, filters *dto.UserFilters) ([]model.User, int, error) {
	if filters.Role != "" && !filters.Role.Valid() {
		return nil, 0, apperror.Validation("invalid_role", "role must be user or admin").WithField("role")
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *userUseCase) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := uc.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := uc.repo.CountOrders(ctx, id)
	if err != nil {
		return nil, err
	}
	u.OrderCount = &count
	return u, nil
}

func (uc *userUseCase) CreateUser(ctx context.Context, input *dto.CreateUserInput) (*model.User, error) {
	role := input.Role
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, apperror.Validation("invalid_role", "role must be user or admin").WithField("role")
	}
	return uc.createUser(ctx, &input.RegisterInput, role)
}

func (uc *userUseCase) UpdateUser(ctx context.Context, id int64, input *dto.UpdateProfileInput) (*model.User, error) {
	return uc.UpdateProfile(ctx, id, input)
}

func (uc *userUseCase) UpdateRole(ctx context.Context, actorID, id int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.Validation("invalid_role", "role must be user or admin").WithField("role")
	}
	if actorID == id && role != model.RoleAdmin {
		return nil, apperror.Policy("cannot_demote_self", "you cannot remove your own admin role")
	}
	u, err := uc.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	uc.logger.Info("user role changed",
		zap.Int64("user_id", id),
		zap.String("from", string(u.Role)),
		zap.String("to", string(role)),
		zap.Int64("actor_id", actorID),
	)
	u.Role = role
	return u, nil
}

func (uc *userUseCase) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrDeleteSelf
	}
	if _, err := uc.mustFind(ctx, id); err != nil {
		return err
	}
	count, err := uc.repo.CountOrders(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrUserHasOrders.WithParam("Count", count)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		// an order placed between the count and the delete trips the foreign key
		if apperror.IsKind(err, apperror.KindPolicy) {
			return ErrUserHasOrders
		}
		return err
	}
	uc.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actorID))
	return nil
}

func (uc *userUseCase) Stats(ctx context.Context) (*dto.UserStats, error) {
	return uc.repo.Stats(ctx)
}

func (uc *userUseCase) PromoteByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := uc.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NotFound("user")
	}
	if u.Role == model.RoleAdmin {
		return u, nil
	}
	if err := uc.repo.UpdateRole(ctx, u.ID, model.RoleAdmin); err != nil {
		return nil, err
	}
	uc.logger.Info("user promoted to admin", zap.Int64("user_id", u.ID))
	u.Role = model.RoleAdmin
	return u, nil
}

func (uc *userUseCase) createUser(ctx context.Context, input *dto.RegisterInput, role model.Role) (*model.User, error) {
	name := sanitize.Text(input.Name)
	email := normalizeEmail(input.Email)

	var fields apperror.Fields
	checkName(&fields, name)
	checkEmail(&fields, email)
	checkPassword(&fields, "password", input.Password)
	phone, address := sanitize.Optional(input.Phone), sanitize.Optional(input.Address)
	checkContact(&fields, phone, address)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	existing, err := uc.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), uc.opts.BcryptCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := uc.now()
	u := &model.User{
		BaseModel:    model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Phone:        phone,
		Address:      address,
		Role:         role,
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		if apperror.IsKind(err, apperror.KindConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (uc *userUseCase) applyPatch(ctx context.Context, u *model.User, input *dto.UpdateProfileInput) error {
	var fields apperror.Fields
	if input.Name != nil {
		name := sanitize.Text(*input.Name)
		checkName(&fields, name)
		u.Name = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		checkEmail(&fields, email)
		if fields.Empty() && email != u.Email {
			other, err := uc.repo.FindByEmail(ctx, email)
			if err != nil {
				return err
			}
			if other != nil && other.ID != u.ID {
				return ErrEmailTaken
			}
		}
		u.Email = email
	}
	if input.Phone != nil {
		u.Phone = sanitize.Optional(input.Phone)
	}
	if input.Address != nil {
		u.Address = sanitize.Optional(input.Address)
	}
	checkContact(&fields, u.Phone, u.Address)
	if err := fields.Err(); err != nil {
		return err
	}
	u.UpdatedAt = uc.now()
	return nil
}

func (uc *userUseCase) mustFind(ctx context.Context, id int64) (*model.User, error) {
	u, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NotFound("user")
	}
	return u, nil
}

func (uc *userUseCase) authResult(u *model.User) (*dto.AuthResult, error) {
	token, exp, err := uc.tokens.Issue(u)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &dto.AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkName(f *apperror.Fields, name string) {
	n := utf8.RuneCountInString(name)
	f.Check(n >= minNameLen && n <= maxNameLen, "name", "invalid_name", "name must be between 2 and 50 characters")
}

func checkEmail(f *apperror.Fields, email string) {
	addr, err := mail.ParseAddress(email)
	f.Check(err == nil && addr.Address == email && len(email) <= maxEmailLen, "email", "invalid_email", "a valid email is required")
}

func checkPassword(f *apperror.Fields, field, password string) {
	f.Check(len(password) >= minPasswordLen && len(password) <= maxPasswordLen, field, "invalid_password", "password must be between 6 and 72 characters")
}

func checkContact(f *apperror.Fields, phone, address *string) {
	f.Check(phone == nil || utf8.RuneCountInString(*phone) <= maxPhoneLen, "phone", "invalid_phone", "phone must be at most 20 characters")
	f.Check(address == nil || utf8.RuneCountInString(*address) <= maxAddressLen, "address", "invalid_address", "address must be at most 200 characters")
}
