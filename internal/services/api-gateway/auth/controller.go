package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/graphetch/graphetch/internal/domain/user"
	"github.com/graphetch/graphetch/internal/obs"
)

// Controller exposes the /users auth surface. The refresh token travels in an
// HTTP-only cookie; a body field is accepted as fallback for non-browser
// clients, with the cookie taking precedence on refresh.
type Controller struct {
	log          *zap.Logger
	uc           *Usecase
	users        user.Repo
	cookieName   string
	cookieDomain string
	cookiePath   string
	cookieSecure bool
	refreshTTL   time.Duration
}

type Opts struct {
	Logger       *zap.Logger
	CookieName   string
	CookieDomain string
	CookiePath   string
	CookieSecure bool
	RefreshTTL   time.Duration
}

func NewController(uc *Usecase, users user.Repo, o Opts) *Controller {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	name := o.CookieName
	if name == "" {
		name = "refreshToken"
	}
	return &Controller{
		log:          log,
		uc:           uc,
		users:        users,
		cookieName:   name,
		cookieDomain: o.CookieDomain,
		cookiePath:   o.CookiePath,
		cookieSecure: o.CookieSecure,
		refreshTTL:   o.RefreshTTL,
	}
}

func (c *Controller) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/authenticate", c.Authenticate)
	r.Post("/refresh-token", c.RefreshToken)
	r.Post("/revoke-token", c.RevokeToken)
	r.With(RequireAuth(c.uc.ParseAccess)).Get("/me", c.Me)
	return r
}

type authenticateRequest struct {
	IDToken  string `json:"idToken"`
	AuthCode string `json:"authCode"`
}

type authenticateResponse struct {
	ID           int64  `json:"id"`
	Mail         string `json:"mail"`
	JwtToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	JwtToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *Controller) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" || req.AuthCode == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "idToken and authCode are required"})
		return
	}

	usr, access, refresh, err := c.uc.Authenticate(r.Context(), req.IDToken, req.AuthCode)
	switch {
	case errors.Is(err, ErrInvalidAssertion):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid google token"})
		return
	case errors.Is(err, ErrInvalidGrant):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid authorization code"})
		return
	case err != nil:
		obs.WithTrace(r.Context(), c.log).Error("auth.authenticate", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
		return
	}

	obs.WithTrace(r.Context(), c.log).Info("auth.authenticate", zap.Int64("user_id", usr.ID))
	c.setRefreshCookie(w, refresh)
	writeJSON(w, http.StatusOK, authenticateResponse{
		ID:           usr.ID,
		Mail:         usr.Mail,
		JwtToken:     access,
		RefreshToken: refresh,
	})
}

func (c *Controller) RefreshToken(w http.ResponseWriter, r *http.Request) {
	raw := c.refreshFromRequest(r, true)

	access, refresh, userID, err := c.uc.Refresh(r.Context(), raw)
	switch {
	case errors.Is(err, ErrInvalidToken):
		c.clearRefreshCookie(w)
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Invalid token"})
		return
	case err != nil:
		obs.WithTrace(r.Context(), c.log).Error("auth.refresh", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
		return
	}

	obs.WithTrace(r.Context(), c.log).Info("auth.refresh", zap.Int64("user_id", userID))
	c.setRefreshCookie(w, refresh)
	writeJSON(w, http.StatusOK, refreshResponse{JwtToken: access, RefreshToken: refresh})
}

func (c *Controller) RevokeToken(w http.ResponseWriter, r *http.Request) {
	// body wins over cookie here: a client revoking some other session's
	// token must not silently revoke its own
	raw := c.refreshFromRequest(r, false)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Token is required"})
		return
	}

	ok, err := c.uc.Revoke(r.Context(), raw)
	if err != nil {
		obs.WithTrace(r.Context(), c.log).Error("auth.revoke", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Token not found"})
		return
	}

	obs.WithTrace(r.Context(), c.log).Info("auth.revoke")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Token revoked"})
}

func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
		return
	}
	usr, err := c.users.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, usr)
}

// refreshFromRequest pulls the refresh token from cookie and body;
// cookieFirst selects which one wins when both are present.
func (c *Controller) refreshFromRequest(r *http.Request, cookieFirst bool) string {
	var fromCookie string
	if ck, err := r.Cookie(c.cookieName); err == nil {
		fromCookie = ck.Value
	}
	var fromBody string
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		fromBody = req.Token
	}

	if cookieFirst {
		if fromCookie != "" {
			return fromCookie
		}
		return fromBody
	}
	if fromBody != "" {
		return fromBody
	}
	return fromCookie
}

func (c *Controller) setRefreshCookie(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    raw,
		Path:     c.cookiePath,
		Domain:   c.cookieDomain,
		HttpOnly: true,
		Secure:   c.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.refreshTTL.Seconds()),
		Expires:  time.Now().Add(c.refreshTTL).UTC(),
	})
}

func (c *Controller) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     c.cookiePath,
		Domain:   c.cookieDomain,
		HttpOnly: true,
		Secure:   c.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
