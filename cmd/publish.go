package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutorlane/lesson-cli/internal/document"
	"github.com/tutorlane/lesson-cli/internal/model"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish one lesson document",
	Long:  "Runs the full stage sequence for a single lesson document. Stages whose manifest-recorded output is current are skipped; use --force to re-execute everything.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		flags, subject, err := publishFlagsFromCmd(cmd)
		if err != nil {
			return err
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		env, err := initPipeline(ctx, progressPrinter(quiet))
		if err != nil {
			return err
		}
		defer env.Close()

		applyProfile(&flags, subject, env.Profiles)

		outcome, runErr := env.Pipeline.Run(ctx, flags)
		if outcome != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(outcome); encErr != nil {
				return eris.Wrap(encErr, "encode outcome")
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "publish")
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().String("doc", "", "path to the lesson markdown document (required)")
	publishCmd.Flags().String("subject", "", "student profile subject; defaults to the document's top-level directory")
	publishCmd.Flags().String("preset", "", "formatting preset override")
	publishCmd.Flags().String("db", "", "target database ID override")
	publishCmd.Flags().String("voice", "", "synthesis voice override for all speakers")
	publishCmd.Flags().String("accent", "", "synthesis accent override (with --voice)")
	publishCmd.Flags().String("dest", "", "upload destination key override")
	publishCmd.Flags().Bool("dry-run", false, "report stage decisions without external calls or manifest writes")
	publishCmd.Flags().Bool("force", false, "re-execute all stages regardless of manifest state")
	publishCmd.Flags().Bool("skip-import", false, "skip import when the manifest already records a page")
	publishCmd.Flags().Bool("skip-tts", false, "skip synthesis when the manifest already records audio")
	publishCmd.Flags().Bool("skip-upload", false, "skip upload when the manifest already records one")
	publishCmd.Flags().Bool("redo-tts", false, "re-synthesize audio even when the dialogue is unchanged")
	publishCmd.Flags().Bool("quiet", false, "suppress stage progress output on stderr")
	_ = publishCmd.MarkFlagRequired("doc")

	rootCmd.AddCommand(publishCmd)
}

// publishFlagsFromCmd builds PublishFlags from the command line. The
// subject is returned separately; it routes profile defaults rather than
// reaching the pipeline itself.
func publishFlagsFromCmd(cmd *cobra.Command) (model.PublishFlags, string, error) {
	doc, _ := cmd.Flags().GetString("doc")
	subject, _ := cmd.Flags().GetString("subject")
	preset, _ := cmd.Flags().GetString("preset")
	db, _ := cmd.Flags().GetString("db")
	voice, _ := cmd.Flags().GetString("voice")
	accent, _ := cmd.Flags().GetString("accent")
	dest, _ := cmd.Flags().GetString("dest")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	skipImport, _ := cmd.Flags().GetBool("skip-import")
	skipTTS, _ := cmd.Flags().GetBool("skip-tts")
	skipUpload, _ := cmd.Flags().GetBool("skip-upload")
	redoTTS, _ := cmd.Flags().GetBool("redo-tts")

	if doc == "" {
		return model.PublishFlags{}, "", eris.New("--doc is required")
	}

	flags := model.PublishFlags{
		DocumentPath: doc,
		Preset:       preset,
		DatabaseID:   db,
		Voice:        voice,
		Accent:       accent,
		UploadDest:   dest,
		DryRun:       dryRun,
		Force:        force,
		SkipImport:   skipImport,
		SkipTTS:      skipTTS,
		SkipUpload:   skipUpload,
		RedoTTS:      redoTTS,
	}
	if subject == "" {
		subject = subjectFromPath(doc)
	}
	return flags, subject, nil
}

// subjectFromPath derives the profile subject from the document's
// top-level directory, e.g. "spanish/unit-3/food.md" -> "spanish".
func subjectFromPath(path string) string {
	id := document.IDFromPath(path)
	if i := strings.Index(id, "/"); i > 0 {
		return id[:i]
	}
	return ""
}

// applyProfile fills unset routing flags from the subject's student
// profile. Explicit command-line flags always win.
func applyProfile(flags *model.PublishFlags, subject string, profiles map[string]model.StudentProfile) {
	if subject == "" {
		return
	}
	prof, ok := profiles[strings.ToLower(subject)]
	if !ok {
		return
	}

	if flags.DatabaseID == "" {
		flags.DatabaseID = prof.DatabaseID
	}
	if flags.Preset == "" {
		flags.Preset = prof.Preset
	}
	if flags.Voice == "" {
		flags.Voice = prof.Voice
		if flags.Accent == "" {
			flags.Accent = prof.Accent
		}
	}

	zap.L().Debug("student profile applied",
		zap.String("subject", prof.Subject),
		zap.String("preset", flags.Preset),
	)
}

// progressPrinter returns a progress observer writing stage transitions
// to stderr, or nil when quiet.
func progressPrinter(quiet bool) model.ProgressFunc {
	if quiet {
		return nil
	}
	return func(ev model.ProgressEvent) {
		if ev.Detail != "" {
			fmt.Fprintf(os.Stderr, "%-10s %s (%s)\n", ev.Stage, ev.Status, ev.Detail)
			return
		}
		fmt.Fprintf(os.Stderr, "%-10s %s\n", ev.Stage, ev.Status)
	}
}
