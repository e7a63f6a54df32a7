// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/poin-lunak/internal/auth"
	"github.com/carterperez-dev/poin-lunak/internal/config"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/loyalty"
	"github.com/carterperez-dev/poin-lunak/internal/ratelimit"
	"github.com/carterperez-dev/poin-lunak/internal/user"
)

type demoMember struct {
	name      string
	email     string
	phone     string
	purchases []purchase
}

type purchase struct {
	items  int
	amount string
	note   string
}

var demoMembers = []demoMember{
	{
		name:  "Budi Santoso",
		email: "budi@example.com",
		phone: "081234567890",
		purchases: []purchase{
			{items: 3, amount: "125000", note: "Nasi goreng, es teh, kerupuk"},
			{items: 5, amount: "480000", note: "Paket keluarga"},
		},
	},
	{
		name:  "Siti Rahayu",
		email: "siti@example.com",
		phone: "081298765432",
		purchases: []purchase{
			{items: 12, amount: "5250000", note: "Katering kantor"},
			{items: 4, amount: "310000", note: "Sate ayam, lontong"},
		},
	},
	{
		name:  "Andi Wijaya",
		email: "andi@example.com",
		purchases: []purchase{
			{items: 40, amount: "10500000", note: "Acara pernikahan"},
		},
	},
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	adminPassword := flag.String("admin-password", "admin123", "password for the seeded admin")
	memberPassword := flag.String("member-password", "member123", "password for demo members")
	flag.Parse()

	if err := run(*configPath, *adminPassword, *memberPassword); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, adminPassword, memberPassword string) error {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exits right after

	if err := core.Migrate(ctx, db.DB); err != nil {
		return err
	}

	userRepo := user.NewStore(db.DB)
	userSvc := user.NewService(userRepo)

	loyaltySvc := loyalty.NewService(
		loyalty.NewStore(db.DB),
		ratelimit.New(ratelimit.NewMemoryStore()),
		nil,
		cfg.Loyalty,
	)

	admin, err := seedAdmin(ctx, userRepo, adminPassword)
	if err != nil {
		return err
	}
	actor := core.Identity{ID: admin.ID, Role: admin.Role}

	hash, err := core.HashPassword(memberPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	for _, m := range demoMembers {
		if _, err := userSvc.GetByEmail(ctx, m.email); err == nil {
			slog.Info("member exists, skipping", "email", m.email)
			continue
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}

		member, err := userSvc.Create(ctx, auth.NewUser{
			Email:        m.email,
			PasswordHash: hash,
			Name:         m.name,
			Phone:        m.phone,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", m.email, err)
		}

		if err := loyaltySvc.RecordActivity(ctx, member.ID, "Registered new account"); err != nil {
			return err
		}

		for _, p := range m.purchases {
			res, err := loyaltySvc.Award(ctx, actor, loyalty.AwardInput{
				UserID:           member.ID,
				TotalItem:        p.items,
				TotalTransaction: decimal.RequireFromString(p.amount),
				Items:            p.note,
			})
			if err != nil {
				return fmt.Errorf("award %s: %w", m.email, err)
			}
			slog.Info("seeded purchase",
				"email", m.email,
				"points_gained", res.PointsGained,
				"total_points", res.NewTotalPoints,
				"level", res.MembershipLevel,
			)
		}
	}

	slog.Info("seed complete")
	return nil
}

const adminEmail = "admin@poinlunak.com"

func seedAdmin(ctx context.Context, repo user.Repository, password string) (*user.User, error) {
	existing, err := repo.GetByEmail(ctx, adminEmail)
	if err == nil {
		slog.Info("admin exists, skipping", "email", adminEmail)
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &user.User{
		ID:              uuid.New().String(),
		Email:           adminEmail,
		PasswordHash:    hash,
		Name:            "Administrator",
		Role:            core.RoleAdmin,
		MembershipLevel: loyalty.LevelBronze,
		Status:          auth.StatusActive,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	slog.Info("seeded admin", "email", adminEmail)
	return admin, nil
}
