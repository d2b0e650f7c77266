package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/emberfell/character-builder/internal/config"
	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/random"
	"github.com/emberfell/character-builder/internal/repositories/characters"
	"github.com/emberfell/character-builder/internal/services/builder"
	"github.com/emberfell/character-builder/internal/steps"
	"github.com/emberfell/character-builder/internal/validation"
)

var (
	demoOwner    string
	demoName     string
	demoSeed     int64
	demoUseRedis bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted character build",
	Long:  `Walk the builder wizard end to end against a sample compendium, printing progress at each step, then finalize the character.`,
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoOwner, "owner", "demo-owner", "owner ID for the session")
	demoCmd.Flags().StringVar(&demoName, "name", "Vessa of the Ember March", "name for the finalized character")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 0, "random seed; 0 means time-seeded")
	demoCmd.Flags().BoolVar(&demoUseRedis, "redis", false, "persist the character to Redis instead of memory")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client := sampleClient()
	var source content.Client = client
	repo := characters.NewInMemoryRepository()

	if demoUseRedis {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach Redis at %s: %w", cfg.Redis.Addr, err)
		}
		source = content.NewRedisIndex(&content.RedisIndexConfig{
			Client: rdb,
			Source: client,
			TTL:    cfg.Content.CacheTTL,
		})
		repo = characters.NewRedisRepository(&characters.RedisRepoConfig{Client: rdb})
		log.Printf("Using Redis at %s", cfg.Redis.Addr)
	}

	src := random.NewSource()
	if demoSeed != 0 {
		src = random.NewSeededSource(demoSeed)
	}

	svc := builder.NewService(&builder.ServiceConfig{
		Content:    source,
		Engine:     validation.NewEngine(&validation.EngineConfig{Content: source}),
		Repository: repo,
		Random:     src,
	})

	started, err := svc.StartSession(ctx, &builder.StartSessionInput{OwnerID: demoOwner})
	if err != nil {
		return err
	}
	sessionID := started.SessionID
	fmt.Printf("Session %s started for %s\n\n", sessionID, demoOwner)

	script := []struct {
		label   string
		actions []steps.Action
	}{
		{"ancestry", []steps.Action{
			{Kind: steps.ActionSelect, Ref: "ancestry-emberkin"},
		}},
		{"class", []steps.Action{
			{Kind: steps.ActionSelect, Ref: "class-warden"},
			{Kind: steps.ActionAdd, Ref: "survival"},
		}},
		{"stats", []steps.Action{
			{Kind: steps.ActionSelectArray, Ref: "standard"},
			{Kind: steps.ActionRandomize},
		}},
		{"spells", []steps.Action{
			{Kind: steps.ActionAdd, Ref: "spell-frost-bind"},
		}},
		{"perks", []steps.Action{
			{Kind: steps.ActionFulfill, Ref: "perk-fleet-foot"},
		}},
		{"starting pack", []steps.Action{
			{Kind: steps.ActionSelect, Ref: "pack-wanderer"},
		}},
		{"gear", []steps.Action{
			{Kind: steps.ActionAdd, Ref: "gear-longknife"},
		}},
	}

	for i, stage := range script {
		if i > 0 {
			if _, err := svc.AdvanceStep(ctx, &builder.AdvanceStepInput{SessionID: sessionID}); err != nil {
				return fmt.Errorf("advancing to %s: %w", stage.label, err)
			}
		}
		for _, action := range stage.actions {
			if _, err := svc.HandleAction(ctx, &builder.HandleActionInput{
				SessionID: sessionID,
				Action:    action,
			}); err != nil {
				return fmt.Errorf("%s step, action %s: %w", stage.label, action.Kind, err)
			}
		}
		if err := printStage(ctx, svc, sessionID, stage.label); err != nil {
			return err
		}
	}

	out, err := svc.FinalizeSession(ctx, &builder.FinalizeSessionInput{
		SessionID: sessionID,
		Name:      demoName,
	})
	if err != nil {
		return fmt.Errorf("finalizing: %w", err)
	}

	fmt.Println("Finalized character:")
	pretty, err := json.MarshalIndent(out.Character, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func printStage(ctx context.Context, svc builder.Service, sessionID, label string) error {
	progress, err := svc.GetProgress(ctx, &builder.GetProgressInput{SessionID: sessionID})
	if err != nil {
		return err
	}
	sc, err := svc.PrepareStepContext(ctx, &builder.PrepareStepContextInput{SessionID: sessionID})
	if err != nil {
		return err
	}

	fmt.Printf("[%3d%%] %s", progress.Percent, label)
	if !sc.Context.Complete {
		fmt.Print(" (incomplete)")
	}
	fmt.Println()
	printBudget("spells", sc.Context.Budgets.Spells)
	printBudget("gear", sc.Context.Budgets.Gear)
	fmt.Println()
	return nil
}

func printBudget(label string, b character.Budget) {
	if b.Total == 0 {
		return
	}
	fmt.Printf("  %s: %.0f of %.0f spent\n", label, b.Spent, b.Total)
}
