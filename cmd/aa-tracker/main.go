// ABOUTME: Entry point for aa-tracker, the Telegram Mini App task server
// ABOUTME: Provides serve, health and sign commands

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/aa-tracker/aa-tracker/internal/config"
	"github.com/aa-tracker/aa-tracker/internal/initdata"
	"github.com/aa-tracker/aa-tracker/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
                 _                  _
  __ _  __ _    | |_ _ __ __ _  ___| | _____ _ __
 / _' |/ _' |___| __| '__/ _' |/ __| |/ / _ \ '__|
| (_| | (_| |___| |_| | | (_| | (__|   <  __/ |
 \__,_|\__,_|    \__|_|  \__,_|\___|_|\_\___|_|
`

func usage() {
	fmt.Println("Usage: aa-tracker <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the HTTP server (default)")
	fmt.Println("  health   Check server health")
	fmt.Println("  sign     Print signed init data for local testing")
	fmt.Println()
	fmt.Println("Run 'aa-tracker <command> --help' for command flags.")
}

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "health":
		err = runHealth(ctx, args)
	case "sign":
		err = runSign(args)
	case "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configFlags are shared by commands that read configuration.
type configFlags struct {
	configPath string
	envFile    string
}

func (f *configFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", os.Getenv("AA_TRACKER_CONFIG"), "path to a YAML or TOML config file (default: environment only)")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before configuration")
}

// load reads the env file, then the config file if one was given, else the environment.
func (f *configFlags) load(fs *pflag.FlagSet) (*config.Config, error) {
	if err := config.LoadEnvFile(f.envFile, fs.Changed("env-file")); err != nil {
		return nil, err
	}
	if f.configPath == "" {
		return config.FromEnv()
	}
	return config.Load(f.configPath)
}

func runServe(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := cf.load(fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	source := cf.configPath
	if source == "" {
		source = "environment"
	}
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", source)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", redactTarget(cfg.Database.Target))
	if cfg.Auth.RequireInitData {
		green.Print("    ▶ ")
		fmt.Println("Auth:      tma header required on task routes")
	} else {
		color.New(color.FgYellow, color.Bold).Print("    ▶ ")
		fmt.Println("Auth:      claim-only, telegram_id is NOT verified")
	}
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting aa-tracker",
		"version", version,
		"http_addr", cfg.Server.HTTPAddr,
		"max_age", cfg.Telegram.MaxAge,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("health", pflag.ContinueOnError)
	var cf configFlags
	cf.register(fs)
	ready := fs.Bool("ready", false, "check /health/ready (storage) instead of /health")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cf.load(fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := "/health"
	if *ready {
		path = "/health/ready"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(cfg.Server.HTTPAddr, path), nil)
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

// healthURL turns a listen address into a URL a local client can dial.
func healthURL(listenAddr, path string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr + path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}

func runSign(args []string) error {
	fs := pflag.NewFlagSet("sign", pflag.ContinueOnError)
	botToken := fs.String("bot-token", os.Getenv("BOT_TOKEN"), "bot token to sign with")
	userID := fs.Int64("user-id", 0, "Telegram user id (required)")
	username := fs.String("username", "", "username to embed")
	firstName := fs.String("first-name", "", "first name to embed")
	authDate := fs.Int64("auth-date", 0, "unix seconds for auth_date (default: now)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw, err := signedInitData(*botToken, *userID, *username, *firstName, *authDate, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(raw)
	return nil
}

// signedInitData builds raw init data for one user, signed like a real Mini App launch.
func signedInitData(botToken string, userID int64, username, firstName string, authDate int64, now time.Time) (string, error) {
	if botToken == "" {
		return "", errors.New("--bot-token or BOT_TOKEN is required")
	}
	if userID <= 0 {
		return "", errors.New("--user-id must be a positive integer")
	}
	if authDate == 0 {
		authDate = now.Unix()
	}

	identity := initdata.Identity{ID: userID}
	if username != "" {
		identity.Username = &username
	}
	if firstName != "" {
		identity.FirstName = &firstName
	}
	user, err := jsonString(identity)
	if err != nil {
		return "", err
	}

	fields := initdata.Fields{
		initdata.FieldAuthDate: strconv.FormatInt(authDate, 10),
		initdata.FieldUser:     user,
	}
	fields[initdata.FieldHash] = initdata.Sign(fields, botToken)
	return initdata.Encode(fields), nil
}

func jsonString(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding user: %w", err)
	}
	return string(data), nil
}

// redactTarget hides the password of a database URL for display.
func redactTarget(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.User == nil {
		return target
	}
	return u.Redacted()
}
