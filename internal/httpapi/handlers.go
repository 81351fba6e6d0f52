package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/dshills/gatekeep/internal/auth"
	"github.com/dshills/gatekeep/internal/contacts"
	"github.com/dshills/gatekeep/internal/profile"
	"github.com/dshills/gatekeep/internal/store"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	HasAvatar   bool      `json:"has_avatar"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type changePasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

type resetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type avatarResponse struct {
	SourceFormat string `json:"source_format"`
	Size         int    `json:"size"`
	Bytes        int    `json:"bytes"`
}

type contactRequest struct {
	ContactID string `json:"contact_id"`
}

type contactResponse struct {
	ContactID string    `json:"contact_id"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
}

type contactsResponse struct {
	Contacts []contactResponse `json:"contacts"`
}

type statsResponse struct {
	TotalPublished  uint64            `json:"total_published"`
	TotalProcessed  uint64            `json:"total_processed"`
	TotalErrors     uint64            `json:"total_errors"`
	SubscriberCount int               `json:"subscriber_count"`
	WildcardCount   int               `json:"wildcard_count"`
	PublishedByName map[string]uint64 `json:"published_by_name"`
}

func newUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		HasAvatar:   len(u.AvatarPNG) > 0,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	u, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	res, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		SessionID: res.Session.ID,
		UserID:    res.User.ID,
		ExpiresAt: res.Session.ExpiresAt,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.Logout(r.Context(), tokenFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	if err := s.deps.Auth.ChangePassword(r.Context(), sess.UserID, sess.ID, req.Current, req.New); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestPasswordReset always answers 202 so callers cannot probe which
// emails are registered. The token is delivered by event subscribers.
func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if _, err := s.deps.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if err := s.deps.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var req deleteAccountRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if err := s.deps.Auth.DeleteAccount(r.Context(), sessionFrom(r).UserID, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Profile.Get(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	u, err := s.deps.Profile.Update(r.Context(), sessionFrom(r).UserID, req.DisplayName, req.Bio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) getAvatar(w http.ResponseWriter, r *http.Request) {
	png, err := s.deps.Profile.Avatar(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) setAvatar(w http.ResponseWriter, r *http.Request) {
	evt, err := s.deps.Profile.SetAvatar(r.Context(), sessionFrom(r).UserID, r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avatarResponse{
		SourceFormat: evt.SourceFormat,
		Size:         evt.Size,
		Bytes:        evt.Bytes,
	})
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	cs, err := s.deps.Contacts.List(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := contactsResponse{Contacts: make([]contactResponse, 0, len(cs))}
	for _, c := range cs {
		resp.Contacts = append(resp.Contacts, contactResponse{
			ContactID: c.ContactID,
			Blocked:   c.Blocked,
			CreatedAt: c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) addContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Contacts.Add(r.Context(), sessionFrom(r).UserID, req.ContactID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contactResponse{ContactID: c.ContactID, Blocked: c.Blocked, CreatedAt: c.CreatedAt})
}

func (s *Server) removeContact(w http.ResponseWriter, r *http.Request) {
	s.contactAction(w, r, s.deps.Contacts.Remove)
}

func (s *Server) blockContact(w http.ResponseWriter, r *http.Request) {
	s.contactAction(w, r, s.deps.Contacts.Block)
}

func (s *Server) unblockContact(w http.ResponseWriter, r *http.Request) {
	s.contactAction(w, r, s.deps.Contacts.Unblock)
}

func (s *Server) contactAction(
	w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, owner, contactID string) error,
) {
	if err := action(r.Context(), sessionFrom(r).UserID, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.Bus.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		TotalPublished:  st.TotalPublished,
		TotalProcessed:  st.TotalProcessed,
		TotalErrors:     st.TotalErrors,
		SubscriberCount: st.SubscriberCount,
		WildcardCount:   st.WildcardCount,
		PublishedByName: st.PublishedByName,
	})
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		log.WithFields(log.Fields{
			"response": response,
			"error":    err,
		}).Error("Failed to marshal HTTP response.")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

var errorStatus = []struct {
	err    error
	status int
}{
	{auth.ErrInvalidEmail, http.StatusBadRequest},
	{auth.ErrWeakPassword, http.StatusBadRequest},
	{auth.ErrInvalidResetToken, http.StatusBadRequest},
	{profile.ErrDisplayNameTooLong, http.StatusBadRequest},
	{profile.ErrBioTooLong, http.StatusBadRequest},
	{profile.ErrUnsupportedImage, http.StatusBadRequest},
	{contacts.ErrSelfContact, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrEmailTaken, http.StatusConflict},
	{contacts.ErrAlreadyContact, http.StatusConflict},
	{contacts.ErrUnknownUser, http.StatusNotFound},
	{contacts.ErrNotContact, http.StatusNotFound},
	{profile.ErrNoAvatar, http.StatusNotFound},
	{store.ErrNotFound, http.StatusNotFound},
	{profile.ErrAvatarTooLarge, http.StatusRequestEntityTooLarge},
	{auth.ErrRateLimited, http.StatusTooManyRequests},
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorResponse{Error: e.err.Error()})
			return
		}
	}

	s.logger.WithError(err).WithField("uri", r.RequestURI).Error("Request failed.")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
