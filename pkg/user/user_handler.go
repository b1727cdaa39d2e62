package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/eventmate/eventmate/internal/auth"
	"github.com/eventmate/eventmate/internal/rest"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Id           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	EventsOwned  []string  `json:"eventsOwned"`
	EventsJoined []string  `json:"eventsJoined"`
	CreatedAt    time.Time `json:"createdAt"`
}

type SignupRequestDTO struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	RetypePassword string `json:"retypePassword"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponseDTO struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	User    *UserDTO `json:"user,omitempty"`
}

type CookieSettings struct {
	Name   string
	Secure bool
}

type Handler struct {
	userService Service
	tokens      auth.TokenService
	revocations auth.Revocations
	cookie      CookieSettings
}

func NewHandler(userService Service, tokens auth.TokenService, revocations auth.Revocations, cookie CookieSettings) *Handler {
	return &Handler{
		userService: userService,
		tokens:      tokens,
		revocations: revocations,
		cookie:      cookie,
	}
}

// Signup godoc
// @Summary Register a new user
// @Description Create an account and start a session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body SignupRequestDTO true "Signup data"
// @Success 201 {object} AuthResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid signup data"
// @Router /api/auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	log.Debug("Signing up user")

	var req SignupRequestDTO
	if err := rest.DecodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}

	created, err := h.userService.Signup(r.Context(), SignupRequest{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		RetypePassword: req.RetypePassword,
	})
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if err := h.startSession(w, created); err != nil {
		rest.WriteInternalError(w, r, err)
		return
	}

	dto := userToDTO(created)
	rest.WriteJSON(w, http.StatusCreated, AuthResponseDTO{Success: true, Message: "User created successfully", User: &dto})
}

// Login godoc
// @Summary Log in
// @Description Verify credentials and start a session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequestDTO true "Credentials"
// @Success 200 {object} AuthResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log.Debug("Logging in user")

	var req LoginRequestDTO
	if err := rest.DecodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}

	found, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if err := h.startSession(w, found); err != nil {
		rest.WriteInternalError(w, r, err)
		return
	}

	dto := userToDTO(found)
	rest.WriteJSON(w, http.StatusOK, AuthResponseDTO{Success: true, Message: "User logged in successfully", User: &dto})
}

// Logout godoc
// @Summary Log out
// @Description Clear the session cookie and revoke the presented token
// @Tags Auth
// @Produce json
// @Success 200 {object} rest.MessageResponse
// @Router /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log.Debug("Logging out user")

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.cookie.Secure,
	})

	if session, err := h.tokens.Validate(auth.FromRequest(r, h.cookie.Name)); err == nil {
		if err := h.revocations.Revoke(r.Context(), session.TokenId, session.ExpiresAt); err != nil {
			rest.WriteInternalError(w, r, err)
			return
		}
		log.Debugf("Revoked token %s of user %s", session.TokenId, session.UserId)
	}

	rest.WriteMessage(w, http.StatusOK, "User logged out successfully")
}

// Me godoc
// @Summary Get current user
// @Description Retrieve the authenticated user with owned and joined events
// @Tags Auth
// @Produce json
// @Success 200 {object} AuthResponseDTO
// @Failure 401 {object} rest.ErrorResponse "Unauthorized"
// @Router /api/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting current user")

	current, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) || errors.Is(err, ErrUserNotFound) {
			rest.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		rest.WriteInternalError(w, r, err)
		return
	}

	dto := userToDTO(current)
	rest.WriteJSON(w, http.StatusOK, AuthResponseDTO{Success: true, User: &dto})
}

func (h *Handler) startSession(w http.ResponseWriter, u User) error {
	token, err := h.tokens.Issue(u.Id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   int(token.ExpiresIn.Seconds()),
		Expires:  token.Session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.cookie.Secure,
	})
	return nil
}

func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingFields):
		rest.WriteError(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, ErrPasswordTooShort):
		rest.WriteError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
	case errors.Is(err, ErrPasswordTooLong):
		rest.WriteError(w, http.StatusBadRequest, "Password must be at most 72 bytes long")
	case errors.Is(err, ErrPasswordsMismatch):
		rest.WriteError(w, http.StatusBadRequest, "Passwords do not match")
	case errors.Is(err, ErrInvalidEmail):
		rest.WriteError(w, http.StatusBadRequest, "Invalid email format")
	case errors.Is(err, ErrEmailTaken):
		rest.WriteError(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, ErrUserNotFound):
		rest.WriteError(w, http.StatusBadRequest, "User not found")
	case errors.Is(err, ErrInvalidCredentials):
		rest.WriteError(w, http.StatusBadRequest, "Invalid credentials")
	default:
		rest.WriteInternalError(w, r, err)
	}
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Id:           u.Id.String(),
		Name:         u.Name,
		Email:        u.Email,
		EventsOwned:  idsToStrings(u.EventsOwned),
		EventsJoined: idsToStrings(u.EventsJoined),
		CreatedAt:    u.CreatedAt,
	}
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
