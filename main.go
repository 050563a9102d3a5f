package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dataDir        = ".pointsplus"
	dbName         = "pointsplus.db"
	userContextKey = contextKey("user")
)

type contextKey string

type Server struct {
	db               *gorm.DB
	r                chi.Router
	opts             *options
	src              InputSource
	loginRateLimiter *limiter.Limiter
	jwtKey           []byte
	devMode          bool
	refreshMtx       sync.Mutex
}

type serverConfig struct {
	DevMode      bool
	Origins      []string
	JWTKey       []byte
	ReadRate     limiter.Rate
	LoginAttempt limiter.Rate
}

type serveCommand struct {
	Listen         string   `long:"listen" description:"HTTP listen address" default:":8080"`
	DevMode        bool     `long:"dev" description:"Development mode (insecure cookies)"`
	Origins        []string `long:"origin" description:"Allowed CORS origin, repeatable" default:"http://localhost:3000"`
	JWTKey         string   `long:"jwtkey" env:"POINTSPLUS_JWT_KEY" description:"Hex encoded HMAC key for admin sessions, random when empty"`
	ReadLimit      int64    `long:"readlimit" description:"Public API requests per minute per client" default:"300"`
	RefreshOnStart bool     `long:"refresh" description:"Build and store a snapshot before serving"`

	opts *options
}

type generateCommand struct {
	Output string `short:"o" long:"output" description:"Directory for the JSON export" default:"output"`
	Store  bool   `long:"store" description:"Also store the snapshot in the database"`

	opts *options
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("serve", "Serve the Points+ API",
		"Serves the stored leaderboard snapshots over HTTP.", &serveCommand{opts: &opts})
	parser.AddCommand("generate", "Build the leaderboard and export JSON",
		"Runs the Points+ pipeline over the raw data and writes the static JSON contract.", &generateCommand{opts: &opts})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func (c *serveCommand) Execute(_ []string) error {
	c.opts.setupLogging()

	db, err := initDatabase(c.opts.dataDir())
	if err != nil {
		logrus.Fatalf("Database initialization errored: %v", err)
	}

	key, err := c.jwtKey()
	if err != nil {
		return err
	}

	s, err := newServer(db, c.opts, c.opts.source(), serverConfig{
		DevMode:      c.DevMode,
		Origins:      c.Origins,
		JWTKey:       key,
		ReadRate:     limiter.Rate{Period: time.Minute, Limit: c.ReadLimit},
		LoginAttempt: limiter.Rate{Period: 15 * time.Minute, Limit: 10},
	})
	if err != nil {
		return err
	}

	if c.RefreshOnStart {
		if _, err := s.refresh(context.Background()); err != nil {
			logrus.WithError(err).Error("Initial refresh failed, serving last stored snapshot")
		}
	}

	logrus.WithField("addr", c.Listen).Info("Serving Points+ API")
	return http.ListenAndServe(c.Listen, s.r)
}

func (c *serveCommand) jwtKey() ([]byte, error) {
	if c.JWTKey != "" {
		return hex.DecodeString(c.JWTKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	logrus.Warn("No JWT key configured, admin sessions will not survive a restart")
	return key, nil
}

func (c *generateCommand) Execute(_ []string) error {
	c.opts.setupLogging()

	cfg, err := c.opts.pipelineConfig()
	if err != nil {
		return err
	}
	res, err := generate(context.Background(), c.opts.source(), cfg)
	if err != nil {
		return err
	}
	if err := exportJSON(c.Output, res); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"output":  c.Output,
		"players": len(res.Players),
		"bins":    len(res.Distribution),
	}).Info("JSON export written")

	if c.Store {
		db, err := initDatabase(c.opts.dataDir())
		if err != nil {
			return err
		}
		snap, err := saveSnapshot(db, res)
		if err != nil {
			return err
		}
		logrus.WithField("run", snap.RunID).Info("Snapshot stored")
	}
	return nil
}

func newServer(db *gorm.DB, opts *options, src InputSource, cfg serverConfig) (*Server, error) {
	if len(cfg.JWTKey) == 0 {
		return nil, errors.New("jwt key must be set")
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		db:               db,
		r:                r,
		opts:             opts,
		src:              src,
		loginRateLimiter: limiter.New(memory.NewStore(), cfg.LoginAttempt),
		jwtKey:           cfg.JWTKey,
		devMode:          cfg.DevMode,
	}

	readLimiter := stdlib.NewMiddleware(limiter.New(memory.NewStore(), cfg.ReadRate))
	r.Group(func(r chi.Router) {
		r.Use(readLimiter.Handler)
		r.Get("/leaderboard", s.GETLeaderboard)
		r.Get("/distribution", s.GETDistribution)
		r.Get("/metadata", s.GETMetadata)
		r.Get("/players/{playerID}", s.GETPlayer)
	})

	r.Post("/login", s.POSTLoginHandler)
	r.Post("/logout", s.POSTLogoutHandler)
	r.Post("/auth/me", s.authMiddleware(s.POSTAuthMe))
	r.Post("/changepw", s.authMiddleware(s.POSTChangePasswordHandler))
	r.Post("/refresh", s.authMiddleware(s.POSTRefresh))

	return s, nil
}

// Check to see if the database exists. If not create it and initialize
// it with a default admin password to be changed later.
func initDatabase(dataDirPath string) (*gorm.DB, error) {
	err := ensureDir(dataDirPath)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path.Join(dataDirPath, dbName)), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Migrate the schema
	if err := applyMigrations(db); err != nil {
		return nil, err
	}
	if err := seedAdmin(db); err != nil {
		return nil, err
	}
	return db, nil
}

func seedAdmin(db *gorm.DB) error {
	var creds DBCredentials
	result := db.First(&creds)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	logrus.Warn("Created default admin account, change its password")
	return db.Create(&DBCredentials{Username: "admin", PasswordHash: string(hash)}).Error
}

// Validate the JWT token. It can either been in a cookie or a header.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tokenStr string

		// First try Authorization header
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) >= 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		} else {
			// Fallback to auth_token cookie
			cookie, err := r.Cookie("auth_token")
			if err != nil {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}
			tokenStr = cookie.Value
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return s.jwtKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Token is valid, proceed
		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
