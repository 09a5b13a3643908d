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

func cmdAsk() *cli.Command {
	var repositoryCfg config.Repository
	var gatewayCfg config.Gateway
	var tuningCfg config.Tuning
	var userID string
	var showTrace bool

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
	flags = append(flags, &cli.BoolFlag{
		Name:        "trace",
		Usage:       "Show what retrieval resolved, walked, and kept",
		Destination: &showTrace,
	})

	return &cli.Command{
		Name:      "ask",
		Aliases:   []string{"a"},
		Usage:     "Answer a question from the memory graph",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return goerr.New("question is required")
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
			answer, err := uc.Ask(ctx, types.UserID(userID), question)
			if err != nil {
				return err
			}

			renderAnswer(answer, showTrace)
			return nil
		},
	}
}

func renderAnswer(answer *model.Answer, showTrace bool) {
	if answer.NoInformation {
		color.New(color.FgYellow).Println(answer.Text)
	} else {
		fmt.Println(answer.Text)
	}

	if !showTrace || answer.Trace == nil {
		return
	}

	trace := answer.Trace
	dim := color.New(color.FgHiBlack)
	fmt.Println()
	dim.Println(trace.Searched)
	dim.Printf("  anchor: %s  phrase: %q  walked: %d  kept: %d\n",
		trace.AnchorEntity, trace.RelationshipPhrase, trace.EdgesWalked, trace.EdgesKept)
	for _, statement := range trace.Statements {
		dim.Printf("  - %s\n", statement)
	}
}
