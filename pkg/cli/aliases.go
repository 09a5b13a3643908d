package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/safe"
)

func cmdAliases() *cli.Command {
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
		Name:      "aliases",
		Usage:     "Show the alias group of an entity",
		ArgsUsage: "<entity name>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			name := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(name) == "" {
				return goerr.New("entity name is required")
			}

			repo, err := repositoryCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			// Alias reads never call the LLM, so no gateway is wired
			uc := usecase.New(repo, nil)
			info, err := uc.Aliases(ctx, types.UserID(userID), name)
			if err != nil {
				return err
			}

			color.New(color.FgCyan, color.Bold).Printf("%s", info.CanonicalName)
			color.New(color.FgHiBlack).Println(" (canonical)")
			for _, member := range info.Members {
				fmt.Printf("  - %s\n", member)
			}
			return nil
		},
	}
}
