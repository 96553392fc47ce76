package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/opennebula"
	"evalgo.org/fireedge/internal/zones"
)

// LoginRequest is the body of POST /api/auth.
type LoginRequest struct {
	User  string `json:"user" validate:"required"`
	Token string `json:"token" validate:"required"`
	// Expire is the session lifetime in seconds.
	Expire int    `json:"expire,omitempty" validate:"omitempty,min=1"`
	Zone   string `json:"zone,omitempty" validate:"omitempty,numeric"`
}

// LoginUser identifies the authenticated oned user.
type LoginUser struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// LoginResult is returned to the browser after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      LoginUser `json:"user"`
}

// ZoneResolver resolves a zone id to its endpoints.
type ZoneResolver interface {
	Resolve(ctx context.Context, session, id string) (zones.Zone, error)
}

// Authenticator exchanges oned credentials for a session token.
type Authenticator struct {
	jwt       *JWTService
	zones     ZoneResolver
	connector zones.Connector
	logger    *zap.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(jwtService *JWTService, resolver ZoneResolver, connector zones.Connector, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		jwt:       jwtService,
		zones:     resolver,
		connector: connector,
		logger:    logger.With(zap.String(logging.FieldComponent, "auth")),
	}
}

// Login asks oned for a login token with the given credentials and wraps it
// in a session token.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	credentials := opennebula.Session(req.User, req.Token)

	zone, err := a.zones.Resolve(ctx, credentials, req.Zone)
	if err != nil {
		return nil, err
	}
	caller, err := a.connector.Caller(zone.RPC)
	if err != nil {
		return nil, err
	}

	lifetime := a.jwt.Lifetime(time.Duration(req.Expire) * time.Second)

	result, err := caller.Call(ctx, "user.login", credentials, req.User, "", int(lifetime.Seconds()), -1)
	if err != nil {
		var oneErr *opennebula.Error
		if errors.As(err, &oneErr) && oneErr.Code == opennebula.CodeAuthentication {
			a.logger.Info("login rejected", zap.String(logging.FieldUser, req.User))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	oneToken, ok := result.(string)
	if !ok || oneToken == "" {
		return nil, fmt.Errorf("unexpected user.login result %T", result)
	}

	uid, err := a.userID(ctx, caller, opennebula.Session(req.User, oneToken))
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := a.jwt.IssueToken(req.User, uid, oneToken, zone.ID, lifetime)
	if err != nil {
		return nil, err
	}

	a.logger.Info("user logged in", zap.String(logging.FieldUser, req.User), zap.Int("uid", uid), zap.String(logging.FieldZone, zone.ID))
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      LoginUser{ID: uid, Name: req.User},
	}, nil
}

func (a *Authenticator) userID(ctx context.Context, caller opennebula.Caller, session string) (int, error) {
	result, err := caller.Call(ctx, "user.info", session, -1)
	if err != nil {
		return 0, err
	}
	doc, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected user.info result %T", result)
	}
	m, err := opennebula.XMLToMap([]byte(doc))
	if err != nil {
		return 0, err
	}
	user, _ := m["USER"].(map[string]any)
	id, _ := user["ID"].(string)
	uid, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("user.info returned no numeric ID: %w", err)
	}
	return uid, nil
}
