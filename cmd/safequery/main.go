package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appconfig "github.com/mohammad-safakhou/safequery/config"
	srv "github.com/mohammad-safakhou/safequery/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "safequery"}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server with background crawling",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			s, err := srv.New(cfg)
			if err != nil {
				return err
			}
			return s.Run(cmd.Context())
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	var crawl = &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.Crawler.CrawlOnStartup = false
			cfg.Crawler.SeedOnEmptyStore = false
			s, err := srv.New(cfg)
			if err != nil {
				return err
			}
			stored, err := s.Crawl(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("stored %d new documents\n", stored)
			return nil
		},
	}

	var seed = &cobra.Command{
		Use:   "seed",
		Short: "Seed sample documents into an empty knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig(configPath)
			if err != nil {
				return err
			}
			s, err := srv.New(cfg)
			if err != nil {
				return err
			}
			return s.Seed(cmd.Context())
		},
	}

	root.AddCommand(serve, crawl, seed)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
