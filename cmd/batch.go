package main

import (
	"encoding/json"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/internal/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Publish several lesson documents concurrently",
	Long:  "Publishes each given document; directory arguments are expanded to the markdown files under them. Distinct documents run concurrently; duplicate paths collapse to one run. Individual failures do not abort the batch.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		paths, err := expandPaths(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return eris.New("no lesson documents found")
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")
		preset, _ := cmd.Flags().GetString("preset")
		db, _ := cmd.Flags().GetString("db")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentDocuments
		}

		// Progress from interleaved runs is noise; rely on logs instead.
		env, err := initPipeline(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		flags := model.PublishFlags{
			Preset:     preset,
			DatabaseID: db,
			DryRun:     dryRun,
			Force:      force,
		}

		items := env.Pipeline.RunBatch(ctx, paths, flags, concurrency)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return eris.Wrap(err, "encode batch results")
		}

		failed := 0
		for _, item := range items {
			if item.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return eris.Errorf("%d of %d documents failed", failed, len(items))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "max concurrent documents (default from config)")
	batchCmd.Flags().String("preset", "", "formatting preset override for all documents")
	batchCmd.Flags().String("db", "", "target database ID override for all documents")
	batchCmd.Flags().Bool("dry-run", false, "report stage decisions without external calls or manifest writes")
	batchCmd.Flags().Bool("force", false, "re-execute all stages regardless of manifest state")

	rootCmd.AddCommand(batchCmd)
}

// expandPaths resolves file and directory arguments to the markdown
// documents they name, in argument order.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".md") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "walk %s", arg)
		}
	}

	zap.L().Debug("batch paths expanded", zap.Int("count", len(paths)))
	return paths, nil
}
