package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

var batchOutput string

// documentExtensions limits batch discovery to types the model accepts.
var documentExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract coupons from every document in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := newPipeline()
		if err != nil {
			return err
		}

		dir := args[0]
		paths, err := discoverDocuments(dir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.Errorf("no documents found in %s", dir)
		}
		zap.L().Info("batch extraction starting",
			zap.Int("documents", len(paths)),
			zap.Int("concurrency", cfg.Extract.BatchConcurrency),
		)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(cfg.Extract.BatchConcurrency)

		type entry struct {
			name   string
			result model.ExtractionResult
		}
		entries := make(chan entry, len(paths))

		for _, path := range paths {
			g.Go(func() error {
				document, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}
				name := filepath.Base(path)
				entries <- entry{name: name, result: pipeline.Extract(ctx, document, documentMIMEType(path), name)}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		close(entries)

		results := make(map[string]model.ExtractionResult, len(paths))
		for e := range entries {
			results[e.name] = e.result
		}

		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal results")
		}
		if batchOutput != "" {
			return eris.Wrapf(os.WriteFile(batchOutput, out, 0o644), "write %s", batchOutput)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write results to a JSON file instead of stdout")
	rootCmd.AddCommand(batchCmd)
}

func discoverDocuments(dir string) ([]string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read dir %s", dir)
	}

	var paths []string
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if documentExtensions[strings.ToLower(filepath.Ext(item.Name()))] {
			paths = append(paths, filepath.Join(dir, item.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
