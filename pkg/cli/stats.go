package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/safe"
)

func cmdStats() *cli.Command {
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
		Name:  "stats",
		Usage: "Show head counts of the memory graph",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repositoryCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			// Counting never calls the LLM, so no gateway is wired
			uc := usecase.New(repo, nil)
			stats, err := uc.Stats(ctx, types.UserID(userID))
			if err != nil {
				return err
			}

			dim := color.New(color.FgHiBlack)
			dim.Printf("entities:      ")
			fmt.Printf("%d\n", stats.Entities)
			dim.Printf("alias groups:  ")
			fmt.Printf("%d\n", stats.AliasGroups)
			dim.Printf("relationships: ")
			fmt.Printf("%d\n", stats.Relationships)
			return nil
		},
	}
}
