package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aletheia-lab/mnemosyne/pkg/cli/config"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/service/gateway"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/safe"
)

func cmdRemember() *cli.Command {
	var repositoryCfg config.Repository
	var gatewayCfg config.Gateway
	var tuningCfg config.Tuning
	var userID string

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

	return &cli.Command{
		Name:      "remember",
		Aliases:   []string{"r"},
		Usage:     "Ingest a statement into the memory graph",
		ArgsUsage: "<statement>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			statement := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(statement) == "" {
				return goerr.New("statement is required")
			}

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
			receipt, err := uc.Remember(ctx, types.UserID(userID), statement)
			if err != nil {
				return err
			}

			renderReceipt(receipt)
			return nil
		},
	}
}

func renderReceipt(receipt *model.IngestReceipt) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	header.Printf("Remembered: %d fragment(s)\n", receipt.Fragments)
	dim.Printf("  edges created:   ")
	fmt.Printf("%d\n", receipt.EdgesCreated)
	dim.Printf("  edges existing:  ")
	fmt.Printf("%d\n", receipt.EdgesExisting)
	dim.Printf("  aliases linked:  ")
	fmt.Printf("%d\n", receipt.AliasesLinked)
	dim.Printf("  context appends: ")
	fmt.Printf("%d\n", receipt.ContextAppends)
	if receipt.Errors > 0 {
		dim.Printf("  errors:          ")
		color.New(color.FgRed).Printf("%d\n", receipt.Errors)
	}
}
