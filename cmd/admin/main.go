package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rongwang/yana-server/internal/cache"
	"github.com/rongwang/yana-server/internal/config"
	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/rongwang/yana-server/internal/matching"
	"github.com/rongwang/yana-server/internal/repository"
	"github.com/rongwang/yana-server/internal/seed"
	"github.com/rongwang/yana-server/internal/service"
	"github.com/rongwang/yana-server/internal/utils"
)

const usage = `Usage: admin <command> [flags]

Commands:
  add-emotions                               add the default emotions to the catalog
  delete-last-emotions [--count N]           delete the N most recent catalog emotions (default 5)
  load-templates --file PATH                 load support message templates from a JSON file
  make-admin --email EMAIL                   grant admin rights to a user
  create-test-users [--count N] [--pattern P]
                                             create test accounts P_n@example.com (default 50)
  generate-random-emotions --email EMAIL [--count N] [--radius DEG]
                                             scatter test emotions around a user's last emotion
  clear-user-emotions --confirm [--email EMAIL]
                                             delete shared emotions of one user, or of everyone`

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		fail("%s", usage)
	}

	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg.Log.Level, "console")

	db, err := config.SetupDatabase(cfg, logger)
	if err != nil {
		fail("failed to connect database: %v", err)
	}
	defer db.Close()

	codec, err := encryption.NewCoordinateCodec(cfg.Encryption.FieldKey)
	if err != nil {
		fail("failed to set up coordinate encryption: %v", err)
	}

	repo := repository.NewPostgresRepository(db, codec, logger)

	// Catalog edits must clear the server's cached catalog
	var store cache.Store
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := cache.Connect(connectCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	connectCancel()
	if err != nil {
		logger.Warn("Redis unavailable at %s, the server may serve a stale emotion catalog for up to %s: %v",
			cfg.Redis.Addr, cfg.Redis.CatalogCacheTTL, err)
		store = cache.NewMemoryStore()
	} else {
		defer rdb.Close()
		store = cache.NewRedisStore(rdb, cfg.Redis.CatalogCacheTTL)
	}

	svc := service.NewDefaultService(
		repo,
		matching.NewEngine(repo, logger),
		store,
		store,
		service.Config{JWTSecret: cfg.Auth.JWTSecret, AccessTTL: cfg.Auth.AccessTTL, RefreshTTL: cfg.Auth.RefreshTTL},
		logger,
	)
	seeder := seed.NewSeeder(repo, svc, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	command, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(command, flag.ExitOnError)

	switch command {
	case "add-emotions":
		created, err := seeder.AddEmotions(ctx, seed.DefaultEmotions)
		if err != nil {
			fail("Error adding emotions: %v", err)
		}
		fmt.Printf("Finished adding emotions (%d new)\n", created)

	case "delete-last-emotions":
		count := fs.Int("count", 5, "number of emotions to delete")
		_ = fs.Parse(args)
		deleted, err := seeder.DeleteLastEmotions(ctx, *count)
		if err != nil {
			fail("Error deleting emotions: %v", err)
		}
		if len(deleted) == 0 {
			fmt.Println("No emotions found to delete")
			return
		}
		fmt.Printf("Deleted %d emotions: %v\n", len(deleted), deleted)

	case "load-templates":
		path := fs.String("file", "", "JSON file of [{\"text\": ...}] entries")
		_ = fs.Parse(args)
		if *path == "" {
			fail("Usage: admin load-templates --file PATH")
		}
		f, err := os.Open(*path)
		if err != nil {
			fail("Error opening %s: %v", *path, err)
		}
		defer f.Close()
		result, err := seeder.LoadTemplates(ctx, f)
		if err != nil {
			fail("Error loading templates: %v", err)
		}
		fmt.Printf("%d new templates loaded, %d already existed, %d invalid\n",
			result.New, result.Existing, result.Invalid)

	case "make-admin":
		email := fs.String("email", "", "email of the user")
		_ = fs.Parse(args)
		if *email == "" {
			fail("Usage: admin make-admin --email EMAIL")
		}
		if err := seeder.MakeAdmin(ctx, *email); err != nil {
			fail("Error making admin: %v", err)
		}
		fmt.Printf("Successfully made %s an admin\n", *email)

	case "create-test-users":
		count := fs.Int("count", 50, "number of users to create")
		pattern := fs.String("pattern", seed.TestUserPattern, "email prefix")
		_ = fs.Parse(args)
		emails, err := seeder.CreateTestUsers(ctx, *pattern, *count)
		if err != nil {
			fail("Error creating test users: %v", err)
		}
		fmt.Printf("Successfully created %d test users with password %q\n", len(emails), seed.TestUserPassword)

	case "generate-random-emotions":
		email := fs.String("email", "", "user whose last emotion is the reference point")
		count := fs.Int("count", 10, "number of emotions to generate")
		radius := fs.Float64("radius", 0.1, "radius in degrees around the reference point")
		_ = fs.Parse(args)
		if *email == "" {
			fail("Usage: admin generate-random-emotions --email EMAIL [--count N] [--radius DEG]")
		}
		created, err := seeder.GenerateRandomEmotions(ctx, *email, *count, *radius)
		if err != nil {
			fail("Error generating emotions: %v", err)
		}
		fmt.Printf("Successfully created %d random emotions within %g degrees of %s's last emotion\n",
			created, *radius, *email)

	case "clear-user-emotions":
		confirm := fs.Bool("confirm", false, "confirm deletion")
		email := fs.String("email", "", "limit deletion to one user")
		_ = fs.Parse(args)
		if !*confirm {
			fmt.Println("This will delete shared emotions from the database. Run with --confirm to proceed.")
			return
		}
		n, err := seeder.ClearUserEmotions(ctx, *email)
		if err != nil {
			fail("Error clearing emotions: %v", err)
		}
		fmt.Printf("Successfully deleted %d user emotions\n", n)

	default:
		fail("Unknown command %q\n\n%s", command, usage)
	}
}
