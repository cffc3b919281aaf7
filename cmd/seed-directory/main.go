// Command seed-directory populates a directory with demo users and
// groups through the full provisioning pipeline, exercising schema
// validation, version stamping, and tenant quotas the same way a live
// deployment would.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/identra/engine/internal/config"
	"github.com/identra/engine/internal/logger"
	"github.com/identra/engine/internal/metrics"
	"github.com/identra/engine/internal/provider"
	"github.com/identra/engine/internal/resource"
	"github.com/identra/engine/internal/schema"
	"github.com/identra/engine/internal/storage"
	"github.com/identra/engine/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed-directory: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("seed-directory", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	tenant := fs.String("tenant", "acme", "tenant to seed")
	baseURL := fs.String("base-url", "https://localhost:8443/scim/v2", "base URL for meta.location values")
	extraUsers := fs.Int("users", 0, "additional generated users to seed beyond the named demo set")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version.String())
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	log := logger.WithComponent("seed-directory")

	store, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	var registry *schema.Registry
	if cfg.Schemas.Dir != "" {
		registry, err = schema.NewRegistryFromDir(cfg.Schemas.Dir)
	} else {
		registry, err = schema.NewRegistry()
	}
	if err != nil {
		return fmt.Errorf("build schema registry: %w", err)
	}

	var (
		providerMetrics *metrics.ProviderMetrics
		storageMetrics  *metrics.StorageMetrics
	)
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		providerMetrics = metrics.NewProviderMetrics(collector)
		storageMetrics = metrics.NewStorageMetrics(collector)
	}
	registry.SetMetrics(providerMetrics)

	p := provider.New(registry, store, provider.Options{
		URLs:             &resource.BaseURLGenerator{Base: *baseURL},
		Metrics:          providerMetrics,
		DefaultMaxUsers:  cfg.Tenants.DefaultMaxUsers,
		DefaultMaxGroups: cfg.Tenants.DefaultMaxGroups,
	})

	ctx := context.Background()
	rc := provider.NewTenantRequestContext(provider.TenantContext{
		TenantID:    *tenant,
		Permissions: provider.FullPermissions(),
	})

	users := []map[string]any{
		userDocument("ada.lovelace", "Ada Lovelace", "ada.lovelace@example.com"),
		userDocument("grace.hopper", "Grace Hopper", "grace.hopper@example.com"),
		userDocument("alan.turing", "Alan Turing", "alan.turing@example.com"),
	}
	for i := 1; i <= *extraUsers; i++ {
		userName := fmt.Sprintf("demo.user.%03d", i)
		users = append(users, userDocument(userName, fmt.Sprintf("Demo User %d", i), userName+"@example.com"))
	}

	memberIDs := make([]string, 0, len(users))
	for _, doc := range users {
		created, err := p.Create(ctx, rc, resource.TypeUser, doc)
		if err != nil {
			var conflict provider.ConflictError
			if errors.As(err, &conflict) {
				log.Info().Str("userName", doc["userName"].(string)).Msg("user already exists, skipping")
				continue
			}
			return fmt.Errorf("create user %s: %w", doc["userName"], err)
		}
		memberIDs = append(memberIDs, created.Resource.ID)
		log.Info().
			Str("id", created.Resource.ID).
			Str("userName", created.Resource.User.UserName.String()).
			Str("version", created.Version.String()).
			Msg("created user")
	}

	groupDoc := map[string]any{
		"schemas":     []any{schema.GroupSchemaURN},
		"displayName": "Engineering",
	}
	members := make([]any, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, map[string]any{
			"value": id,
			"type":  resource.TypeUser,
		})
	}
	if len(members) > 0 {
		groupDoc["members"] = members
	}

	group, err := p.Create(ctx, rc, resource.TypeGroup, groupDoc)
	if err != nil {
		var conflict provider.ConflictError
		if errors.As(err, &conflict) {
			log.Info().Msg("group already exists, skipping")
		} else {
			return fmt.Errorf("create group: %w", err)
		}
	} else {
		log.Info().
			Str("id", group.Resource.ID).
			Str("displayName", group.Resource.Group.DisplayName).
			Int("members", len(group.Resource.Group.Members)).
			Msg("created group")
	}

	stats, err := p.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	if storageMetrics != nil {
		storageMetrics.UpdateStats(stats.TenantCount, stats.TotalResources)
	}
	log.Info().
		Int("tenants", stats.TenantCount).
		Int("resources", stats.TotalResources).
		Msg("seed complete")
	return nil
}

func userDocument(userName, displayName, email string) map[string]any {
	return map[string]any{
		"schemas":     []any{schema.UserSchemaURN},
		"userName":    userName,
		"displayName": displayName,
		"active":      true,
		"emails": []any{
			map[string]any{
				"value":   email,
				"type":    "work",
				"primary": true,
			},
		},
	}
}
