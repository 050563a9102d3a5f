package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cpacia/pointsplus/pointsplus"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) POSTLoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Check if rate limit has been exceeded
	key := loginRateLimitKey(r, creds.Username)
	ctx, err := s.loginRateLimiter.Peek(r.Context(), key)
	if err != nil {
		http.Error(w, "Rate limiter error", http.StatusInternalServerError)
		return
	}
	if ctx.Reached {
		http.Error(w, "Too many failed login attempts", http.StatusTooManyRequests)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", creds.Username)
	if result.Error != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err = bcrypt.CompareHashAndPassword([]byte(dbCreds.PasswordHash), []byte(creds.Password))
	if err != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	expiration := time.Now().Add(60 * time.Minute)
	claims := &Claims{
		Username: creds.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(s.jwtKey)
	if err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	// Set HTTP-only JWT cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    tokenStr,
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusOK)
}

func loginRateLimitKey(r *http.Request, username string) string {
	ip := r.RemoteAddr
	return fmt.Sprintf("%s:%s", ip, username)
}

func (s *Server) POSTLogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Unix(0, 0), // Expire immediately
		MaxAge:   -1,              // Force deletion
	})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) POSTAuthMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", claims.Username)
	if result.Error != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      claims.Username,
	})
}

func (s *Server) POSTChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	var pwChangeReq PWChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&pwChangeReq); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if len(pwChangeReq.NewPassword) < 8 {
		http.Error(w, "New password too short", http.StatusBadRequest)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", claims.Username)
	if result.Error != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err := bcrypt.CompareHashAndPassword([]byte(dbCreds.PasswordHash), []byte(pwChangeReq.CurrentPassword))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pwChangeReq.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Could not check password", http.StatusInternalServerError)
		return
	}
	dbCreds.PasswordHash = string(hash)
	if err := s.db.Save(dbCreds).Error; err != nil {
		http.Error(w, "Could not save password", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// season resolves the ?season= query parameter against the stored snapshots.
// It writes the error response itself and returns ok=false on failure.
func (s *Server) season(w http.ResponseWriter, r *http.Request) (season string, all []string, ok bool) {
	all, err := storedSeasons(s.db)
	if err != nil {
		http.Error(w, "Failed to fetch seasons", http.StatusInternalServerError)
		return "", nil, false
	}
	season, err = selectSeason(all, r.URL.Query().Get("season"))
	if err != nil {
		http.Error(w, "Season not found", http.StatusNotFound)
		return "", nil, false
	}
	return season, all, true
}

func (s *Server) GETLeaderboard(w http.ResponseWriter, r *http.Request) {
	season, _, ok := s.season(w, r)
	if !ok {
		return
	}

	players, err := loadLeaderboard(s.db, season)
	if err != nil {
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, players)
}

func (s *Server) GETDistribution(w http.ResponseWriter, r *http.Request) {
	season, _, ok := s.season(w, r)
	if !ok {
		return
	}

	snap, err := loadSnapshot(s.db, season)
	if err != nil {
		http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
		return
	}
	bins, err := snap.distribution()
	if err != nil {
		http.Error(w, "Failed to decode distribution", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, bins)
}

func (s *Server) GETMetadata(w http.ResponseWriter, r *http.Request) {
	season, all, ok := s.season(w, r)
	if !ok {
		return
	}

	snap, err := loadSnapshot(s.db, season)
	if err != nil {
		http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
		return
	}

	// Build additional seasons list
	additional := make([]string, 0, len(all))
	for _, sn := range all {
		if sn != season {
			additional = append(additional, sn)
		}
	}

	resp := struct {
		Metadata
		AdditionalSeasons []string `json:"additionalSeasons"`
	}{
		Metadata:          snap.metadata(),
		AdditionalSeasons: additional,
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (s *Server) GETPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := parsePlayerID(chi.URLParam(r, "playerID"))
	if err != nil {
		http.Error(w, "Malformed player ID", http.StatusBadRequest)
		return
	}
	season, _, ok := s.season(w, r)
	if !ok {
		return
	}

	detail, err := loadPlayerDetail(s.db, season, playerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Player not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, detail)
}

// POSTRefresh rebuilds the configured season from raw data. On failure the
// previously stored snapshot keeps serving.
func (s *Server) POSTRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.refresh(r.Context())
	if err != nil {
		var (
			die *pointsplus.DataIntegrityError
			ov  *pointsplus.OrderingViolation
		)
		switch {
		case errors.Is(err, pointsplus.ErrEmptyPopulation):
			http.Error(w, "No qualifying players", http.StatusUnprocessableEntity)
		case errors.As(err, &die), errors.As(err, &ov):
			http.Error(w, fmt.Sprintf("Pipeline failed: %s", err.Error()), http.StatusUnprocessableEntity)
		default:
			http.Error(w, fmt.Sprintf("Error regenerating leaderboard: %s", err.Error()), http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, snap.metadata())
}

// refresh runs the pipeline and stores the result. Concurrent refreshes are
// serialized.
func (s *Server) refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMtx.Lock()
	defer s.refreshMtx.Unlock()

	cfg, err := s.opts.pipelineConfig()
	if err != nil {
		return nil, err
	}
	res, err := generate(ctx, s.src, cfg)
	if err != nil {
		logrus.WithError(err).WithField("season", cfg.Season).Error("Leaderboard refresh failed")
		return nil, err
	}
	snap, err := saveSnapshot(s.db, res)
	if err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"season":  snap.Season,
		"run":     snap.RunID,
		"players": snap.TotalQualifyingPlayers,
	}).Info("Leaderboard refreshed")
	return snap, nil
}
