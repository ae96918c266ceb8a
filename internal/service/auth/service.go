package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"chatforge-backend/internal/database"
	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/logger"
	"chatforge-backend/internal/model"
	"chatforge-backend/internal/notification"
	"chatforge-backend/internal/service/gate"
	"chatforge-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	otpTTL            = 10 * time.Minute

	defaultBotName         = "My First Bot"
	defaultBotInstructions = "You are a helpful assistant."

	msgInvalidCredentials = "Invalid email or password."
)

type Service struct {
	repo   Repository
	now    func() time.Time
	mailer notification.Mailer
}

var createTokenWithRefresh = internaljwt.CreateTokenWithRefresh

func SetTokenIssuer(issuer func(context.Context, internaljwt.User, internaljwt.Role) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		createTokenWithRefresh = internaljwt.CreateTokenWithRefresh
		return
	}
	createTokenWithRefresh = issuer
}

func New(db *database.Database, mailer notification.Mailer) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now, mailer)
}

func NewWithRepository(repo Repository, now func() time.Time, mailer notification.Mailer) *Service {
	if now == nil {
		now = time.Now
	}
	if mailer == nil {
		mailer = notification.LogMailer{}
	}

	return &Service{
		repo:   repo,
		now:    now,
		mailer: mailer,
	}
}

// Signup creates an unverified Free tenant with its default chatbot and sends
// a verification code. A failed email does not undo the signup.
func (s *Service) Signup(ctx context.Context, params SignupParams) (model.TenantItem, error) {
	email := utils.NormalizeEmail(params.Email)
	password := params.Password

	if !utils.ValidEmail(email) {
		return model.TenantItem{}, newError(ErrorCodeValidation, "Please enter a valid email.", nil)
	}
	if len(password) < minPasswordLength {
		return model.TenantItem{}, newError(ErrorCodeValidation, "Password must be at least 8 characters long.", nil)
	}

	if _, err := s.repo.FindTenantByEmail(ctx, email); err == nil {
		return model.TenantItem{}, newError(ErrorCodeConflict, "A user with this email already exists.", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return model.TenantItem{}, newError(ErrorCodeInternal, "failed to check email", err)
	}

	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		return model.TenantItem{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return model.TenantItem{}, newError(ErrorCodeInternal, "failed to generate otp", err)
	}

	now := s.now().UTC()
	stamp := now.Format(time.RFC3339)

	tenant := model.TenantItem{
		TenantID:     uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: hash,
		AuthMethod:   model.AuthMethodEmail,
		OTP:          otp,
		OTPExpiresAt: now.Add(otpTTL).Format(time.RFC3339),
		CycleStart:   stamp,
		CreatedAt:    stamp,
	}
	tenant.ApplyPlan(model.FreePlan())

	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return model.TenantItem{}, newError(ErrorCodeInternal, "Could not create your account.", err)
	}

	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		return model.TenantItem{}, newError(ErrorCodeInternal, "failed to generate api key", err)
	}
	bot := model.NewChatbot(uuid.NewString(), tenant.TenantID, defaultBotName, defaultBotInstructions, apiKey, stamp)
	if err := s.repo.CreateChatbot(ctx, bot); err != nil {
		return model.TenantItem{}, newError(ErrorCodeInternal, "Could not create your account.", err)
	}

	s.sendOTP(ctx, email, otp)
	return tenant, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	email := utils.NormalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return LoginResult{}, newError(ErrorCodeValidation, "Email and password are required.", nil)
	}

	tenant, err := s.repo.FindTenantByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, newError(ErrorCodeUnauthorized, msgInvalidCredentials, err)
		}
		return LoginResult{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if tenant.AuthMethod == model.AuthMethodGoogle {
		return LoginResult{}, newError(ErrorCodeValidation, "This account was created with Google. Please use Google Sign-In.", nil)
	}
	if tenant.PasswordHash == "" {
		return LoginResult{}, newError(ErrorCodeInternal, "Invalid account configuration. Please contact support.", nil)
	}
	if !internaljwt.ValidatePassword(tenant.PasswordHash, params.Password) {
		return LoginResult{}, newError(ErrorCodeUnauthorized, msgInvalidCredentials, nil)
	}

	if !tenant.Verified {
		if err := s.issueOTP(ctx, tenant); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{RequiresOTP: true, TenantID: tenant.TenantID}, nil
	}

	tokens, err := s.issueTokens(ctx, tenant)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{TenantID: tenant.TenantID, Tokens: tokens}, nil
}

func (s *Service) VerifyOTP(ctx context.Context, tenantID, otp string) (AuthResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	otp = strings.ToUpper(strings.TrimSpace(otp))
	if tenantID == "" || len(otp) != 6 {
		return AuthResult{}, newError(ErrorCodeValidation, "OTP must be 6 characters.", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeValidation, "Invalid OTP.", err)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if tenant.OTP == "" || subtle.ConstantTimeCompare([]byte(tenant.OTP), []byte(otp)) != 1 {
		return AuthResult{}, newError(ErrorCodeValidation, "Invalid OTP.", nil)
	}
	expires, err := time.Parse(time.RFC3339, tenant.OTPExpiresAt)
	if err != nil || s.now().After(expires) {
		return AuthResult{}, newError(ErrorCodeValidation, "OTP has expired.", err)
	}

	tenant, err = s.repo.MarkVerified(ctx, tenantID)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to verify user", err)
	}

	tokens, err := s.issueTokens(ctx, tenant)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Tenant: tenant, Tokens: tokens}, nil
}

func (s *Service) ResendOTP(ctx context.Context, tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return newError(ErrorCodeValidation, "User ID is required.", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrorCodeNotFound, "User not found.", err)
		}
		return newError(ErrorCodeInternal, "failed to fetch user", err)
	}
	if tenant.Verified {
		return newError(ErrorCodeValidation, "This account is already verified.", nil)
	}
	return s.issueOTP(ctx, tenant)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return "", newError(ErrorCodeValidation, "Refresh token is required.", nil)
	}
	access, err := internaljwt.RefreshToken(ctx, token, internaljwt.RoleTenant)
	if err != nil {
		if errors.Is(err, internaljwt.ErrInvalidRefreshToken) || errors.Is(err, internaljwt.ErrNoRefreshStore) {
			return "", newError(ErrorCodeUnauthorized, "Invalid refresh token.", err)
		}
		return "", newError(ErrorCodeInternal, "failed to refresh token", err)
	}
	return access, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return nil
	}
	if err := internaljwt.RevokeRefreshToken(ctx, token, internaljwt.RoleTenant); err != nil &&
		!errors.Is(err, internaljwt.ErrInvalidRefreshToken) && !errors.Is(err, internaljwt.ErrNoRefreshStore) {
		return newError(ErrorCodeInternal, "failed to revoke token", err)
	}
	return nil
}

// Me returns the tenant with its plan and the end of the current usage cycle.
func (s *Service) Me(ctx context.Context, identity Identity) (ProfileResult, error) {
	tenantID := strings.TrimSpace(identity.TenantID)
	if tenantID == "" {
		return ProfileResult{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileResult{}, newError(ErrorCodeNotFound, "User not found.", err)
		}
		return ProfileResult{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	return ProfileResult{
		Tenant:   tenant,
		Plan:     tenant.CurrentPlan(),
		CycleEnd: gate.CycleEnd(tenant),
	}, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return s.IdentityFromToken(token)
}

func (s *Service) IdentityFromToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	user, err := internaljwt.ParseUser(token, internaljwt.RoleTenant)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}

	return Identity{
		TenantID: user.ID,
		Email:    user.Email,
	}, nil
}

func (s *Service) issueTokens(ctx context.Context, tenant model.TenantItem) (internaljwt.TokenResponse, error) {
	if tenant.Banned {
		return internaljwt.TokenResponse{}, newError(ErrorCodeUnauthorized, "This account has been disabled.", nil)
	}
	tokens, err := createTokenWithRefresh(ctx, internaljwt.User{ID: tenant.TenantID, Email: tenant.Email}, internaljwt.RoleTenant)
	if err != nil {
		return internaljwt.TokenResponse{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}
	return tokens, nil
}

func (s *Service) issueOTP(ctx context.Context, tenant model.TenantItem) error {
	otp, err := utils.GenerateOTP()
	if err != nil {
		return newError(ErrorCodeInternal, "failed to generate otp", err)
	}
	expires := s.now().UTC().Add(otpTTL).Format(time.RFC3339)
	if err := s.repo.SetOTP(ctx, tenant.TenantID, otp, expires); err != nil {
		return newError(ErrorCodeInternal, "failed to store otp", err)
	}
	s.sendOTP(ctx, tenant.Email, otp)
	return nil
}

func (s *Service) sendOTP(ctx context.Context, email, otp string) {
	msg, err := notification.VerificationEmail(email, otp, s.now())
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to send verification email", zap.String("email", email), zap.Error(err))
	}
}
