package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/basket/internal/shop"
)

type userKey struct{}

func userFrom(ctx context.Context) shop.User {
	u, _ := ctx.Value(userKey{}).(shop.User)
	return u
}

func (s *Server) issueToken(userID shop.ID) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parseToken(raw string) (shop.ID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return shop.ID(claims.Subject), nil
}

func (s *Server) setSession(w http.ResponseWriter, userID shop.ID) error {
	token, err := s.issueToken(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		userID, err := s.parseToken(cookie.Value)
		if err != nil {
			s.logger.Debug("rejecting session token", "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		s.mu.Lock()
		acct := s.accountByID(userID)
		s.mu.Unlock()
		if acct == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, acct.user)))
	})
}

func decodeCredentials(r *http.Request) (shop.Credentials, bool) {
	var creds shop.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return creds, false
	}
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	return creds, creds.Email != "" && creds.Password != ""
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.mu.Lock()
	acct := s.accounts[creds.Email]
	s.mu.Unlock()
	if acct == nil || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(creds.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := s.setSession(w, acct.user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[creds.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Account already exists")
		return
	}
	acct, err := s.addAccount(creds.Email, creds.Password)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create account")
		return
	}
	if err := s.setSession(w, acct.user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, acct.user)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
