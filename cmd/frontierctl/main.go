// frontierctl reads and mutates frontier state for operational
// recovery: inspecting progress, clearing poisoned entries, and
// deduplicating the property store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"madlan-crawler/internal/cleanup"
	"madlan-crawler/internal/config"
	"madlan-crawler/internal/frontier"
	"madlan-crawler/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "frontierctl",
		Short:         "Inspect and manage the crawl frontier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to YAML config file")

	open := func() (*config.Config, storage.DB, error) {
		godotenv.Load()
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return cfg, db, nil
	}

	cityArg := func(cfg *config.Config, args []string) string {
		if len(args) > 0 {
			return args[0]
		}
		return cfg.City
	}

	root.AddCommand(&cobra.Command{
		Use:   "status [city]",
		Short: "Show frontier statistics for a city",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			city := cityArg(cfg, args)
			stats, err := frontier.New(db).Stats(context.Background(), city)
			if err != nil {
				return err
			}
			fmt.Printf("city:        %s\n", city)
			fmt.Printf("total:       %d\n", stats.Total)
			fmt.Printf("last page:   %d\n", stats.LastPage)
			fmt.Printf("processed:   %d\n", stats.Processed)
			fmt.Printf("unprocessed: %d\n", stats.Unprocessed)
			fmt.Printf("successful:  %d\n", stats.Successful)
			fmt.Printf("failed:      %d\n", stats.Failed)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "clear [city]",
		Short: "Remove all frontier entries for a city",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			city := cityArg(cfg, args)
			removed, err := frontier.New(db).Clear(context.Background(), city)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries for %s\n", removed, city)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "clear-all",
		Short: "Remove every frontier entry across all cities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := frontier.New(db).ClearAll(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries\n", removed)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list [city] [page]",
		Short: "List frontier entries for a city, 50 per page",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			city := cityArg(cfg, args)
			page := 1
			if len(args) > 1 {
				if _, err := fmt.Sscanf(args[1], "%d", &page); err != nil || page < 1 {
					return fmt.Errorf("invalid page %q", args[1])
				}
			}

			entries, err := frontier.New(db).List(context.Background(), city, page, 50)
			if err != nil {
				return err
			}
			for _, e := range entries {
				state := "pending"
				if e.Processed {
					state = e.Outcome
				}
				fmt.Printf("%-8d %-9s p%-4d %s\n", e.ID, state, e.DiscoveredAtPage, e.URL)
			}
			fmt.Printf("(%d entries, page %d)\n", len(entries), page)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate property rows sharing a URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := cleanup.NewService(db).Dedupe(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d duplicate rows across %d urls\n",
				len(result.DeletedProperties), result.DuplicateURLs)
			return nil
		},
	})

	return root
}
