package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/logging"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/safe"
)

func cmdMigrate() *cli.Command {
	var repositoryCfg config.Repository
	var dryRun bool

	var flags []cli.Flag
	flags = append(flags, repositoryCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview changes without applying",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Provision backend indexes and schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			switch repositoryCfg.Backend() {
			case "firestore":
				return migrateFirestore(ctx, &repositoryCfg, dryRun)
			case "postgres":
				return migratePostgres(ctx, &repositoryCfg, dryRun)
			case "memory":
				logging.Default().Info("Nothing to migrate for the memory backend")
				return nil
			default:
				return goerr.New("invalid repository backend",
					goerr.V("backend", repositoryCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, cfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	if cfg.ProjectID() == "" {
		return goerr.New("firestore-project-id is required when using firestore backend")
	}

	logger.Info("Migrate configuration",
		"projectID", cfg.ProjectID(),
		"databaseID", cfg.DatabaseID(),
		"dryRun", dryRun)

	indexConfig := getIndexConfig()

	client, err := fireconf.NewClient(ctx, cfg.ProjectID(), cfg.DatabaseID())
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
	} else {
		logger.Info("Applying migrations")
		if err := client.Migrate(ctx, indexConfig); err != nil {
			return goerr.Wrap(err, "failed to apply migrations")
		}
		logger.Info("Migrations applied successfully")
	}

	return nil
}

func migratePostgres(ctx context.Context, cfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	if dryRun {
		logger.Info("Dry run mode - connecting would apply the idempotent DDL bootstrap")
		return nil
	}

	// Connecting runs the schema bootstrap
	repo, err := cfg.Configure(ctx)
	if err != nil {
		return err
	}
	safe.Close(ctx, repo)

	logger.Info("PostgreSQL schema bootstrap applied")
	return nil
}

// getIndexConfig returns the Firestore index configuration.
// The entries name collection groups, so they cover the per-user
// subcollections regardless of the top-level collection prefix.
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "entities",
				Indexes: []fireconf.Index{
					// FindNearest: vector search over entity descriptions
					{
						Fields: []fireconf.IndexField{
							{
								Path: "DescriptionEmbedding",
								Vector: &fireconf.VectorConfig{
									Dimension: model.EmbeddingDimension,
								},
							},
						},
					},
				},
			},
			{
				Name: "relationships",
				Indexes: []fireconf.Index{
					// ListWithoutDescription filters HasDescription and
					// orders by CreatedAt; key lookups are document gets and
					// need no index
					{
						Fields: []fireconf.IndexField{
							{Path: "HasDescription", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
