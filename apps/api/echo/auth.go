package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
)

const (
	contextPrincipalKey = "principal"
	contextUserKey      = "user"
	contextClaimsKey    = "claims"

	// schoolHeader selects the target tenant of a super admin.
	schoolHeader = "X-School-ID"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64     `json:"orig_iat,omitempty"`
	Role         auth.Role `json:"role"`
	SchoolID     string    `json:"school_id,omitempty"`
}

// TokenIssuer signs and parses session tokens.
type TokenIssuer struct {
	issuer        string
	key           []byte
	expiration    time.Duration
	refreshWindow time.Duration
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		issuer:        conf.App.Name,
		key:           []byte(conf.App.SecretKey),
		expiration:    conf.Server.JWTExpirationDelta,
		refreshWindow: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (ti *TokenIssuer) Claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()

	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Role:         usr.Role,
		SchoolID:     usr.SchoolID.String,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (ti *TokenIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.key)
	return ss, errors.Wrap(err, "signing token")
}

func (ti *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, new(Claims), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// refreshable reports whether a new token may still be derived from claims.
func (ti *TokenIssuer) refreshable(claims Claims) bool {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshWindow)
	return time.Now().Before(expTime)
}

// authMiddleware resolves the bearer token into a principal.
// The account is reloaded on every request so deactivations apply immediately.
func authMiddleware(tokens *TokenIssuer, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if header == "" || tokenStr == header {
				return errMissingToken
			}
			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				return errInvalidToken
			}

			usr, err := svc.GetActive(ctx.Request().Context(), claims.Subject)
			if err != nil {
				return errors.Wrap(err, "getting active user")
			}
			// role or school changed since the token was issued
			if usr.Role != claims.Role || usr.SchoolID.String != claims.SchoolID {
				return errInvalidToken
			}

			ctx.Set(contextClaimsKey, *claims)
			ctx.Set(contextUserKey, usr)
			ctx.Set(contextPrincipalKey, usr.Principal())
			return next(ctx)
		}
	}
}

// principal returns the authenticated principal of the request, or the zero principal.
func principal(ctx echo.Context) auth.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(auth.Principal)
	return p
}

func contextUser(ctx echo.Context) (user.User, bool) {
	usr, ok := ctx.Get(contextUserKey).(user.User)
	return usr, ok
}

func contextClaims(ctx echo.Context) (Claims, bool) {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	return claims, ok
}

// targetSchool is the tenant a request operates on.
// Tenant members may omit it: the authorizer falls back to their own school.
func targetSchool(ctx echo.Context) string {
	return ctx.Request().Header.Get(schoolHeader)
}
