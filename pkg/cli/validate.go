package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/logging"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/safe"
)

func cmdValidate() *cli.Command {
	var repositoryCfg config.Repository
	var userID string

	var flags []cli.Flag
	flags = append(flags, repositoryCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "User ID owning the memory graph",
		Required:    true,
		Sources:     cli.EnvVars("MNEMOSYNE_USER"),
		Destination: &userID,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Check the memory graph for inconsistencies",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			repo, err := repositoryCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			// The check is read-only and never calls the LLM
			uc := usecase.New(repo, nil)
			result, err := uc.ValidateGraph(ctx, types.UserID(userID))
			if err != nil {
				return err
			}

			logger.Info("Graph scanned",
				"entities", result.Entities,
				"edges", result.Edges,
			)

			if result.HasIssues() {
				for _, issue := range result.Issues {
					logger.Warn("Graph consistency issue found",
						"kind", issue.Kind,
						"entity_id", issue.EntityID,
						"edge_id", issue.EdgeID,
						"message", issue.Message,
					)
				}

				return fmt.Errorf("graph consistency check found %d issue(s)", len(result.Issues))
			}

			logger.Info("Graph consistency check passed")
			return nil
		},
	}
}
