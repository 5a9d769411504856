package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
	"github.com/ArashRezazadeh/DataAnnotations/internal/telemetry"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

// iamService implements Service.
type iamService struct {
	verifier    CredentialVerifier
	directory   UserDirectory
	signer      *token.Signer
	sessions    *session.Manager
	revocations RevocationList
	cfg         ServiceConfig
	logger      *zap.Logger
}

// ServiceDependencies are the collaborators of the IAM service.
type ServiceDependencies struct {
	Verifier    CredentialVerifier
	Directory   UserDirectory
	Signer      *token.Signer
	Sessions    *session.Manager
	Revocations RevocationList // optional
	Logger      *zap.Logger
}

// ServiceConfig is the read-only issuance configuration.
type ServiceConfig struct {
	Issuer             string
	Audience           string
	TokenTTL           time.Duration
	SessionMaxLifetime time.Duration
	CookieName         string
}

// NewService validates cfg and wires deps. Missing issuer, audience or
// collaborators fail with auth.ErrConfiguration.
func NewService(deps ServiceDependencies, cfg ServiceConfig) (Service, error) {
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", auth.ErrConfiguration)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be positive", auth.ErrConfiguration)
	}
	if deps.Verifier == nil || deps.Directory == nil || deps.Signer == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("%w: verifier, directory, signer and session manager are required", auth.ErrConfiguration)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = auth.DefaultSessionCookieName
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &iamService{
		verifier:    deps.Verifier,
		directory:   deps.Directory,
		signer:      deps.Signer,
		sessions:    deps.Sessions,
		revocations: deps.Revocations,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

func (s *iamService) SessionCookieName() string     { return s.cfg.CookieName }
func (s *iamService) SessionWindow() time.Duration { return s.sessions.SlidingWindow() }

// verify runs the credential check and builds the canonical claim set. Both
// login mechanisms go through here.
func (s *iamService) verify(ctx context.Context, username, password string) (claims.ClaimSet, error) {
	if username == "" || password == "" {
		return claims.ClaimSet{}, auth.ErrInvalidCredentials
	}
	id, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserNotFound) {
			return claims.ClaimSet{}, auth.ErrInvalidCredentials
		}
		return claims.ClaimSet{}, fmt.Errorf("verify credentials: %w", err)
	}
	displayName := id.DisplayName
	if displayName == "" {
		displayName = id.Username
	}
	return claims.Build(id.UserID, displayName, id.Roles)
}

func (s *iamService) LoginWithToken(ctx context.Context, username, password string) (token.Issued, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.LoginWithToken",
		attribute.String(telemetry.AttrAuthMechanism, string(MechanismBearer)),
	)
	defer span.End()

	cs, err := s.verify(ctx, username, password)
	if err != nil {
		s.loginFailed(span, MechanismBearer, err)
		return token.Issued{}, err
	}
	issued, err := s.signer.Issue(cs, s.cfg.Issuer, s.cfg.Audience, s.cfg.TokenTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return token.Issued{}, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrPrincipalSubject, cs.Subject()))
	s.logger.Info("login succeeded",
		zap.String("mechanism", string(MechanismBearer)),
		zap.String("subject", cs.Subject()),
		zap.String("token_id", cs.TokenID()),
		zap.Time("expires_at", issued.ExpiresAt),
	)
	return issued, nil
}

func (s *iamService) LoginWithSession(ctx context.Context, username, password string) (session.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.LoginWithSession",
		attribute.String(telemetry.AttrAuthMechanism, string(MechanismCookie)),
	)
	defer span.End()

	cs, err := s.verify(ctx, username, password)
	if err != nil {
		s.loginFailed(span, MechanismCookie, err)
		return session.Ticket{}, err
	}
	ticket, err := s.sessions.Open(ctx, cs, s.cfg.SessionMaxLifetime)
	if err != nil {
		telemetry.RecordError(span, err)
		return session.Ticket{}, err
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrPrincipalSubject, cs.Subject()),
		attribute.String(telemetry.AttrSessionID, ticket.ID),
	)
	s.logger.Info("login succeeded",
		zap.String("mechanism", string(MechanismCookie)),
		zap.String("subject", cs.Subject()),
		zap.String("session_id", ticket.ID),
	)
	return ticket, nil
}

func (s *iamService) loginFailed(span trace.Span, mech Mechanism, err error) {
	reason := auth.ReasonOf(err)
	if reason == auth.ReasonInvalidCredentials {
		telemetry.AddEvent(span, "login.rejected", attribute.String(telemetry.AttrAuthReason, string(reason)))
		s.logger.Info("login rejected", zap.String("mechanism", string(mech)), zap.String("reason", string(reason)))
		return
	}
	telemetry.RecordError(span, err)
	s.logger.Error("login failed", zap.String("mechanism", string(mech)), zap.Error(err))
}

func (s *iamService) Logout(ctx context.Context, p *Principal, sessionRef string) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Logout")
	defer span.End()

	if err := s.sessions.Close(ctx, sessionRef); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if p == nil || p.Mechanism != MechanismBearer || s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, p.TokenID, p.Subject, p.ExpiresAt); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("token revoked",
		zap.String("subject", p.Subject),
		zap.String("token_id", p.TokenID),
		zap.Time("until", p.ExpiresAt),
	)
	return nil
}

func (s *iamService) Register(ctx context.Context, u auth.NewUser) (auth.Identity, []string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.Register")
	defer span.End()

	if problems, err := auth.ValidateNewUser(u); err != nil {
		return auth.Identity{}, problems, err
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	id, err := s.directory.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return auth.Identity{}, []string{fmt.Sprintf("Username '%s' is already taken.", u.Username)}, err
		}
		telemetry.RecordError(span, err)
		return auth.Identity{}, nil, err
	}
	s.logger.Info("user registered", zap.String("subject", id.UserID))
	return id, nil, nil
}

func (s *iamService) DeleteUser(ctx context.Context, username string) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerIAM, "iam.DeleteUser")
	defer span.End()

	if err := s.directory.DeleteUser(ctx, username); err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			telemetry.RecordError(span, err)
		}
		return err
	}
	s.logger.Info("user deleted")
	return nil
}
