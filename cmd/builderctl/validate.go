package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/compendium"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the sample compendium for dangling references",
	Long:  `Walk every compendium document and verify that each ref it points at (granted perks, required spells, pack contents, prerequisites) resolves.`,
	RunE:  runValidate,
}

var compendiumCategories = []compendium.Category{
	compendium.CategoryAncestry,
	compendium.CategoryClass,
	compendium.CategoryPerk,
	compendium.CategorySpell,
	compendium.CategoryGear,
	compendium.CategoryStartingPack,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := sampleClient()

	broken := 0
	for _, category := range compendiumCategories {
		summaries, err := client.ListCategory(ctx, category, nil)
		if err != nil {
			return fmt.Errorf("listing %s: %w", category, err)
		}
		fmt.Printf("%s: %d documents\n", category, len(summaries))

		for _, summary := range summaries {
			item, err := client.GetItem(ctx, summary.Ref)
			if err != nil {
				return fmt.Errorf("fetching '%s': %w", summary.Ref, err)
			}
			refs := referencedRefs(item)
			resolved, err := content.ResolveAll(ctx, client, refs)
			if err != nil {
				return fmt.Errorf("resolving refs of '%s': %w", item.Ref, err)
			}
			if len(resolved) < len(refs) {
				broken += len(refs) - len(resolved)
				fmt.Printf("  %s: %d dangling reference(s)\n", item.Ref, len(refs)-len(resolved))
			}
		}
	}

	if broken > 0 {
		return fmt.Errorf("%d dangling reference(s) found", broken)
	}
	fmt.Println("All references resolve.")
	return nil
}

// referencedRefs collects every cross-document ref an item carries.
func referencedRefs(item *compendium.Item) []string {
	var refs []string
	for _, feature := range item.Features {
		refs = append(refs, feature.GrantedPerks...)
		refs = append(refs, feature.RequiredSpells...)
		if feature.PerkGrant != nil {
			refs = append(refs, feature.PerkGrant.AllowedPerks...)
		}
	}
	for _, prereq := range item.Prerequisites {
		if prereq.Ref != "" {
			refs = append(refs, prereq.Ref)
		}
	}
	if item.Choice != nil && item.Choice.Kind == compendium.PerkChoiceSpell {
		refs = append(refs, item.Choice.Options...)
	}
	refs = append(refs, item.Contents...)
	return refs
}
