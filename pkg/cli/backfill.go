package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/service/gateway"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/safe"
)

func cmdBackfill() *cli.Command {
	var repositoryCfg config.Repository
	var gatewayCfg config.Gateway
	var tuningCfg config.Tuning
	var userID string
	var limit int

	var flags []cli.Flag
	flags = append(flags, repositoryCfg.Flags()...)
	flags = append(flags, gatewayCfg.Flags()...)
	flags = append(flags, tuningCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "user",
		Aliases:     []string{"u"},
		Usage:       "User ID owning the memory graph",
		Required:    true,
		Sources:     cli.EnvVars("MNEMOSYNE_USER"),
		Destination: &userID,
	})
	flags = append(flags, &cli.IntFlag{
		Name:        "limit",
		Usage:       "Cap on how many edges one sweep repairs (0 for no cap)",
		Destination: &limit,
	})

	return &cli.Command{
		Name:  "backfill",
		Usage: "Fill in missing edge descriptions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repositoryCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			llmClient, err := gatewayCfg.Configure(ctx)
			if err != nil {
				return err
			}
			retrievalCfg, guardCfg, err := tuningCfg.Configure()
			if err != nil {
				return err
			}
			gw, err := gateway.New(llmClient, gateway.WithGuard(guardCfg))
			if err != nil {
				return err
			}

			uc := usecase.New(repo, gw, usecase.WithConfig(retrievalCfg))
			done, err := uc.BackfillDescriptions(ctx, types.UserID(userID), limit)
			if err != nil {
				return err
			}

			fmt.Printf("backfilled %d edge description(s)\n", done)
			return nil
		},
	}
}
