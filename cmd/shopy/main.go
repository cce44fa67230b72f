// ABOUTME: Entry point for the shopy storefront server
// ABOUTME: Serves the merchant onboarding web app and JSON API

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/shopyhq/shopy/internal/auth"
	"github.com/shopyhq/shopy/internal/catalog"
	"github.com/shopyhq/shopy/internal/config"
	"github.com/shopyhq/shopy/internal/gate"
	"github.com/shopyhq/shopy/internal/identity"
	"github.com/shopyhq/shopy/internal/store"
	"github.com/shopyhq/shopy/internal/throttle"
	"github.com/shopyhq/shopy/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _
 ___| |__   ___  _ __  _   _
/ __| '_ \ / _ \| '_ \| | | |
\__ \ | | | (_) | |_) | |_| |
|___/_| |_|\___/| .__/ \__, |
                |_|    |___/
`

// getConfigPath returns the path to the shopy config file.
// Priority: SHOPY_CONFIG env var > XDG_CONFIG_HOME/shopy/shopy.yaml > ~/.config/shopy/shopy.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SHOPY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "shopy.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "shopy", "shopy.yaml")
}

// getDataPath returns the path to the shopy data directory.
// Priority: XDG_DATA_HOME/shopy > ~/.local/share/shopy
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "shopy")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: shopy <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                            Start the storefront server")
		fmt.Println("  init                             Create a new config file interactively")
		fmt.Println("  bootstrap --email ADDR --name N  Create the first merchant account")
		fmt.Println("  health                           Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting shopy",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	// Open the store
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	// Shared services
	limiter := throttle.New(time.Minute, 100_000)
	defer limiter.Close()

	events := identity.NewBroadcaster(logger)
	defer events.Close()

	idsvc := identity.NewService(st, events, limiter, identity.Config{
		SessionTTL:    cfg.Auth.SessionTTL,
		OTPTTL:        cfg.Auth.OTPTTL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
	}, logger)

	media, err := catalog.NewMediaStore(cfg.Media.Dir, cfg.Media.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("opening media store: %w", err)
	}
	cat := catalog.NewService(st, media, logger)

	// Onboarding gate: one gate per browser session, fed by auth events
	factory := web.NewAggregatorFactory(idsvc, st, cfg.Gate.LookupTimeout, logger)
	gates := gate.NewManager(factory, events, cfg.Auth.SessionTTL, logger)
	defer gates.Close()

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))

	srv := web.New(st, idsvc, cat, gates, media, verifier, web.Config{
		BaseURL: cfg.Server.BaseURL,
	})
	defer srv.Close()

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runBootstrap performs first-time setup:
// 1. Creates a config file with a random JWT secret (if not exists)
// 2. Creates the database and the first merchant account
// 3. Prints a generated password and an API bearer token
//
// One-command setup: shopy bootstrap --email you@example.com --name "Your Name"
func runBootstrap(ctx context.Context) error {
	var email, displayName string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return fmt.Errorf("--name requires a value")
			}
			displayName = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			displayName = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if email == "" {
		return fmt.Errorf("--email flag is required")
	}
	displayName = strings.TrimSpace(displayName)

	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "shopy.db")
	mediaDir := filepath.Join(dataPath, "media")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	var cfg *config.Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

		for _, dir := range []string{filepath.Dir(configPath), dataPath, mediaDir} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dir, err)
			}
		}

		configContent := fmt.Sprintf(`# shopy configuration
# Generated by shopy bootstrap

server:
  http_addr: "localhost:8080"
  base_url: "http://localhost:8080"

database:
  path: "%s"

auth:
  jwt_secret: "%s"

media:
  dir: "%s"

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret, mediaDir)

		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	count, err := st.CountMerchants(ctx)
	if err != nil {
		return fmt.Errorf("checking merchants: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("bootstrap already complete: %d merchant(s) exist", count)
	}

	// Generate a password the operator can log in with and change later
	passwordBytes := make([]byte, 12)
	if _, err := rand.Read(passwordBytes); err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(passwordBytes)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	limiter := throttle.New(time.Minute, 100)
	defer limiter.Close()
	events := identity.NewBroadcaster(logger)
	defer events.Close()
	idsvc := identity.NewService(st, events, limiter, identity.Config{
		SessionTTL:    cfg.Auth.SessionTTL,
		OTPTTL:        cfg.Auth.OTPTTL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
	}, logger)

	merchant, err := idsvc.Signup(ctx, email, "", password, displayName)
	if err != nil {
		return fmt.Errorf("creating merchant: %w", err)
	}
	green.Printf("  ✓ Created merchant: %s\n", merchant.Email)

	// API bearer token for programmatic access
	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	tokenTTL := 30 * 24 * time.Hour
	token, err := verifier.Generate(merchant.ID, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Merchant Account")
	cyan.Println("  ----------------")
	fmt.Printf("  ID:        %s\n", merchant.ID)
	fmt.Printf("  Email:     %s\n", merchant.Email)
	fmt.Printf("  Password:  %s\n", password)
	fmt.Printf("  API token: %s (expires %s)\n", token, time.Now().Add(tokenTTL).Format("Jan 02, 2006"))
	fmt.Println()
	fmt.Println("  Ready to go:")
	fmt.Println("    shopy serve    # start the server")
	fmt.Println()

	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("shopy configuration setup")
	fmt.Println("=========================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "shopy.db")
	defaultMediaDir := filepath.Join(defaultDataPath, "media")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")
	baseURL := prompt(reader, "Base URL", "http://localhost:8080")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// Media
	fmt.Println("\n--- Media Configuration ---")
	mediaDir := prompt(reader, "Product image directory", defaultMediaDir)

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate random JWT secret
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# shopy configuration\n")
	cfg.WriteString("# Generated by shopy init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString(fmt.Sprintf("  base_url: \"%s\"\n", baseURL))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	cfg.WriteString("  session_ttl: \"168h\"\n")
	cfg.WriteString("  otp_ttl: \"5m\"\n")
	cfg.WriteString("  reset_token_ttl: \"30m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("media:\n")
	cfg.WriteString(fmt.Sprintf("  dir: \"%s\"\n", mediaDir))
	cfg.WriteString("\n")

	cfg.WriteString("gate:\n")
	cfg.WriteString("  lookup_timeout: \"5s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data and media directories exist
	for _, dir := range []string{filepath.Dir(dbPath), mediaDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  shopy serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
