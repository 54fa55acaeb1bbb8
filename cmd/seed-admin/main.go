package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/forgo/goodjobs/internal/config"
	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/migrations"
	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/repository"
	"github.com/forgo/goodjobs/internal/service"
	"github.com/forgo/goodjobs/pkg/jwt"
)

const defaultPassword = "admin123"

func main() {
	// Flags for customization
	name := pflag.String("name", envOr("ADMIN_NAME", "admin"), "Administrator name")
	password := pflag.String("password", envOr("ADMIN_PASSWORD", defaultPassword), "Administrator password")
	printOnly := pflag.Bool("print", false, "Print the INSERT statement instead of writing to the database")
	withToken := pflag.Bool("token", false, "Also issue a bearer token for the administrator")
	outputJSON := pflag.Bool("json", false, "Output as JSON")
	envFile := pflag.String("env-file", "", "dotenv file to load")
	configFile := pflag.String("config", "", "YAML config file")
	pflag.Parse()

	if *password == defaultPassword {
		fmt.Fprintln(os.Stderr, "Warning: using the default password. Set ADMIN_PASSWORD or --password.")
	}

	cfg, err := config.Load(config.LoadOptions{EnvFile: *envFile, ConfigFile: *configFile})
	if err != nil {
		fatalf("Error loading config: %v", err)
	}

	passwords, err := service.NewPasswords(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		fatalf("Error creating password hasher: %v", err)
	}
	hash, err := passwords.Hash(*password)
	if err != nil {
		fatalf("Error hashing password: %v", err)
	}

	if *printOnly {
		fmt.Println("Insert this user with:")
		fmt.Println()
		fmt.Printf("INSERT INTO users (name, hash, is_admin) VALUES ('%s', '%s', TRUE);\n",
			strings.ReplaceAll(*name, "'", "''"), hash)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.NewSQL(database.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err := db.Connect(ctx); err != nil {
		fatalf("Error connecting to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.DB(), db.Dialect()); err != nil {
			fatalf("Error applying schema: %v", err)
		}
	}

	users := repository.NewUserRepository(db)
	admin := &model.User{Name: *name, Hash: hash, IsAdmin: true}
	if err := users.Create(ctx, admin); err != nil {
		if !errors.Is(err, model.ErrUserExists) {
			fatalf("Error creating administrator: %v", err)
		}
		existing, getErr := users.GetByName(ctx, *name)
		if getErr != nil {
			fatalf("Error loading existing user: %v", getErr)
		}
		if !existing.IsAdmin {
			fatalf("User %q already exists and is not an administrator", *name)
		}
		fmt.Fprintf(os.Stderr, "Administrator %q already exists; leaving it unchanged.\n", *name)
		admin = existing
	}

	var token string
	if *withToken {
		if cfg.JWT.Secret == "" {
			fatalf("JWT_SECRET must be set to issue a token")
		}
		jwtService, err := jwt.NewService(jwt.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
		if err != nil {
			fatalf("Error creating JWT service: %v", err)
		}
		token, err = service.NewTokenService(service.TokenServiceConfig{JWTService: jwtService}).Issue(admin)
		if err != nil {
			fatalf("Error signing token: %v", err)
		}
	}

	if *outputJSON {
		output := map[string]any{
			"id":      admin.ID,
			"name":    admin.Name,
			"isAdmin": true,
		}
		if token != "" {
			output["token"] = token
			output["tokenType"] = "Bearer"
			output["expiresIn"] = int(jwt.DefaultExpiration.Seconds())
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}

	fmt.Println("Administrator Ready")
	fmt.Println("===================")
	fmt.Printf("ID:    %d\n", admin.ID)
	fmt.Printf("Name:  %s\n", admin.Name)
	if token != "" {
		fmt.Printf("Expires:  %s\n", time.Now().Add(jwt.DefaultExpiration).Format(time.RFC3339))
		fmt.Println()
		fmt.Println("Token:")
		fmt.Println(token)
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:%s/api/auth/me\n", token, cfg.Server.Port)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
