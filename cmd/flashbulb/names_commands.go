package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"flashbulb/internal/namecache"
)

func newNamesCommand(ctx *commandContext) *cobra.Command {
	namesCmd := &cobra.Command{
		Use:   "names",
		Short: "Inspect and edit the author name cache",
	}

	namesCmd.AddCommand(newNamesListCommand(ctx))
	namesCmd.AddCommand(newNamesSetCommand(ctx))
	namesCmd.AddCommand(newNamesRemoveCommand(ctx))
	namesCmd.AddCommand(newNamesClearCommand(ctx))
	namesCmd.AddCommand(newNamesImportCommand(ctx))

	return namesCmd
}

func (c *commandContext) loadNameCache() (*namecache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cache, err := namecache.Load(cfg.Paths.NameCache, nil)
	if err != nil {
		return nil, fmt.Errorf("load name cache: %w", err)
	}
	return cache, nil
}

func newNamesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show cached author names",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.loadNameCache()
			if err != nil {
				return err
			}
			entries := cache.List()
			if pendingOnly {
				filtered := entries[:0]
				for _, entry := range entries {
					if !entry.Resolved() {
						filtered = append(filtered, entry)
					}
				}
				entries = filtered
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Name cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				updated := ""
				if !entry.UpdatedAt.IsZero() {
					updated = entry.UpdatedAt.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{entry.NSID, entry.Name, string(entry.Status), updated})
			}
			total, pending := cache.Count()
			writeRows(out, fmt.Sprintf("Authors (%d, %d pending)", total, pending),
				[]string{"NSID", "Name", "Status", "Updated"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show authors without a resolved name")
	return cmd
}

func newNamesSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <nsid> <name>",
		Short: "Record a display name for an author",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.loadNameCache()
			if err != nil {
				return err
			}
			nsid := strings.TrimSpace(args[0])
			name := strings.Join(args[1:], " ")
			if err := cache.SetName(nsid, name); err != nil {
				return err
			}
			if err := cache.Save(); err != nil {
				return fmt.Errorf("save name cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", nsid, strings.TrimSpace(name))
			return nil
		},
	}
}

func newNamesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <nsid>...",
		Short: "Forget cached authors so the next build looks them up again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.loadNameCache()
			if err != nil {
				return err
			}
			for _, nsid := range args {
				if err := cache.Remove(nsid); err != nil {
					return err
				}
			}
			if err := cache.Save(); err != nil {
				return fmt.Errorf("save name cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d author(s)\n", len(args))
			return nil
		},
	}
}

func newNamesClearCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached author",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.loadNameCache()
			if err != nil {
				return err
			}
			removed := 0
			if pendingOnly {
				for _, entry := range cache.List() {
					if entry.Resolved() {
						continue
					}
					if err := cache.Remove(entry.NSID); err != nil {
						return err
					}
					removed++
				}
			} else {
				removed, _ = cache.Count()
				cache.Clear()
			}
			if err := cache.Save(); err != nil {
				return fmt.Errorf("save name cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d author(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only clear authors that were never resolved")
	return cmd
}

func newNamesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a flat {\"nsid\": \"name\"} JSON file into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.loadNameCache()
			if err != nil {
				return err
			}
			added, err := cache.Import(args[0])
			if err != nil {
				return err
			}
			if err := cache.Save(); err != nil {
				return fmt.Errorf("save name cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d name(s) from %s\n", added, args[0])
			return nil
		},
	}
}
