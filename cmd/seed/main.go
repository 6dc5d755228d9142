package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"erpcore/internal/config"
	"erpcore/internal/db"
	"erpcore/internal/logger"
	"erpcore/internal/model"
	"erpcore/internal/policy"
	"erpcore/internal/repository"
)

// roleSeeds are the tiers with defined policy. Seeding is idempotent:
// rerunning the command leaves existing roles untouched.
var roleSeeds = []struct {
	name        policy.Role
	description string
}{
	{policy.RoleAdmin, "System administrator with full access"},
	{policy.RoleManager, "Department manager with team access"},
	{policy.RoleEmployee, "Regular employee with limited access"},
}

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := gormDB.AutoMigrate(&model.Role{}, &model.User{}, &model.Session{}); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	roleRepo := repository.NewRoleRepository(gormDB)
	for _, seed := range roleSeeds {
		role, err := roleRepo.GetOrCreate(ctx, string(seed.name), seed.description)
		if err != nil {
			log.Fatal().Err(err).Str("role", string(seed.name)).Msg("seed role")
		}
		log.Info().Str("role", role.Name).Msg("role ready")
	}

	if cfg.Bootstrap.Email != "" {
		if err := bootstrapAdmin(ctx, gormDB, roleRepo, cfg); err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
	}

	log.Info().Msg("seed completed")
}

// bootstrapAdmin creates the one-time super-account when none exists
// with the configured email. Rerunning is a no-op.
func bootstrapAdmin(ctx context.Context, gormDB *gorm.DB, roleRepo repository.RoleRepository, cfg *config.Config) error {
	log := logger.Get()
	userRepo := repository.NewUserRepository(gormDB)

	if _, err := userRepo.FindByEmail(ctx, cfg.Bootstrap.Email); err == nil {
		log.Info().Str("email", cfg.Bootstrap.Email).Msg("bootstrap admin already exists")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if cfg.Bootstrap.Password == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD is required to create the bootstrap admin")
	}

	adminRole, err := roleRepo.FindByName(ctx, string(policy.RoleAdmin))
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Bootstrap.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:     cfg.Bootstrap.Username,
		Email:        cfg.Bootstrap.Email,
		PasswordHash: string(hashed),
		RoleID:       &adminRole.ID,
		Active:       true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return err
	}
	log.Info().Str("email", admin.Email).Msg("bootstrap admin created")
	return nil
}
