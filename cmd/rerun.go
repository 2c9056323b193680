package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tutorlane/lesson-cli/internal/model"
)

var rerunCmd = &cobra.Command{
	Use:   "rerun",
	Short: "Re-execute selected stages for one document",
	Long:  "Re-runs exactly the stages named by --steps, reusing the manifest's recorded outputs for everything else. Prerequisites missing from both the manifest and the selection are rejected up front.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		flags, subject, err := publishFlagsFromCmd(cmd)
		if err != nil {
			return err
		}

		rawSteps, _ := cmd.Flags().GetStringSlice("steps")
		steps := make([]model.Stage, 0, len(rawSteps))
		for _, raw := range rawSteps {
			stage, ok := model.ParseStage(raw)
			if !ok {
				return eris.Errorf("unknown stage %q (valid: validate, import, colorize, tts, upload, add-audio, manifest)", raw)
			}
			steps = append(steps, stage)
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		env, err := initPipeline(ctx, progressPrinter(quiet))
		if err != nil {
			return err
		}
		defer env.Close()

		applyProfile(&flags, subject, env.Profiles)

		outcome, runErr := env.Pipeline.Rerun(ctx, model.RerunFlags{
			PublishFlags: flags,
			Steps:        steps,
		})
		if outcome != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(outcome); encErr != nil {
				return eris.Wrap(encErr, "encode outcome")
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "rerun")
		}
		return nil
	},
}

func init() {
	rerunCmd.Flags().String("doc", "", "path to the lesson markdown document (required)")
	rerunCmd.Flags().StringSlice("steps", nil, "comma-separated stages to re-execute (required)")
	rerunCmd.Flags().String("subject", "", "student profile subject; defaults to the document's top-level directory")
	rerunCmd.Flags().String("preset", "", "formatting preset override")
	rerunCmd.Flags().String("db", "", "target database ID override")
	rerunCmd.Flags().String("voice", "", "synthesis voice override for all speakers")
	rerunCmd.Flags().String("accent", "", "synthesis accent override (with --voice)")
	rerunCmd.Flags().String("dest", "", "upload destination key override")
	rerunCmd.Flags().Bool("dry-run", false, "report stage decisions without external calls or manifest writes")
	rerunCmd.Flags().Bool("skip-import", false, "skip import when the manifest already records a page")
	rerunCmd.Flags().Bool("skip-tts", false, "skip synthesis when the manifest already records audio")
	rerunCmd.Flags().Bool("skip-upload", false, "skip upload when the manifest already records one")
	rerunCmd.Flags().Bool("redo-tts", false, "re-synthesize audio even when the dialogue is unchanged")
	rerunCmd.Flags().Bool("quiet", false, "suppress stage progress output on stderr")
	_ = rerunCmd.MarkFlagRequired("doc")
	_ = rerunCmd.MarkFlagRequired("steps")

	rootCmd.AddCommand(rerunCmd)
}
