package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rl1809/lost-found/internal/core/parser"
	"github.com/rl1809/lost-found/internal/core/service"
)

var (
	importFile        string
	importContentType string
)

var importCmd = &cobra.Command{
	Use:   "items:import",
	Short: "Parse a lost items document and store its items",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(importFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", importFile, err)
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		contentType := importContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(importFile))
		}

		svc := service.NewItemService(store, store, parser.NewDefaultFactory(log.Named("parser")), cfg.Upload.MaxFileSize, log)
		items, err := svc.Upload(cmd.Context(), service.Upload{
			Data:        data,
			ContentType: contentType,
			Filename:    filepath.Base(importFile),
		})
		if err != nil {
			return err
		}

		fmt.Printf("\n=== Import Report ===\nFile:      %s\nImported:  %d\n", importFile, len(items))
		for _, i := range items {
			fmt.Printf("  #%d %s x%d @ %s\n", i.ID, i.Name, i.Quantity, i.Place)
		}
		fmt.Println("=====================")
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "PDF or CSV file path (required)")
	importCmd.MarkFlagRequired("file")
	importCmd.Flags().StringVar(&importContentType, "content-type", "", "Override the detected content type")
}
