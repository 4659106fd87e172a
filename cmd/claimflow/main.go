// Command claimflow runs the stages of the claims processing pipeline. Each
// stage is a subcommand invoked by the task scheduler; the cancel subcommand
// asks a running stage to stop after the current document.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/castlemilk/claimflow/internal/accmap"
	"github.com/castlemilk/claimflow/internal/blob"
	"github.com/castlemilk/claimflow/internal/claim"
	"github.com/castlemilk/claimflow/internal/config"
	"github.com/castlemilk/claimflow/internal/erp"
	"github.com/castlemilk/claimflow/internal/logging"
	"github.com/castlemilk/claimflow/internal/mailbox"
	"github.com/castlemilk/claimflow/internal/pipeline"
	"github.com/castlemilk/claimflow/internal/rules"
	"github.com/castlemilk/claimflow/internal/smtp"
	"github.com/castlemilk/claimflow/internal/store"
	"github.com/castlemilk/claimflow/internal/template"
)

var (
	configPath string
	orderStr   string
)

// stage is one pipeline service bound to its shared resources.
type stage interface {
	Run(ctx context.Context) error
}

func main() {
	root := &cobra.Command{
		Use:           "claimflow",
		Short:         "Automated processing of customer debit and credit notes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "app_config.yaml", "path to the configuration file")
	root.PersistentFlags().StringVar(&orderStr, "order_str", "", "scheduler order identifier carried into the logs")

	root.AddCommand(
		stageCommand(pipeline.StageDownloader, "Download document PDFs from the customer mail folders"),
		stageCommand(pipeline.StageExtractor, "Extract typed records from downloaded documents"),
		stageCommand(pipeline.StageCreator, "Compile claims and book them in the ERP"),
		stageCommand(pipeline.StageDispatcher, "File processed messages into their result subfolders"),
		stageCommand(pipeline.StageArchiver, "Archive settled and expired documents"),
		cancelCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func stageCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStage(cmd.Context(), name)
		},
	}
}

func cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "cancel <stage>",
		Short:     "Ask a running stage to stop after the current document",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{
			pipeline.StageDownloader, pipeline.StageExtractor, pipeline.StageCreator,
			pipeline.StageDispatcher, pipeline.StageArchiver,
		},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return pipeline.NewLock(cfg.Dirs.Control, args[0]).Activate()
		},
	}
}

func runStage(ctx context.Context, name string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(name, orderStr, cfg.Debug)
	defer log.Sync()

	log.Info("stage starting")

	if err := run(ctx, name, cfg, log); err != nil {
		log.Error("stage failed", zap.Error(err))
		notifyFailure(cfg, name, err, log)
		return err
	}

	log.Info("stage finished")
	return nil
}

func run(ctx context.Context, name string, cfg *config.Config, log *zap.Logger) error {
	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(), cfg.Database.Schema, cfg.Database.Table)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer st.Close()

	mail, err := mailbox.OpenMaildir(cfg.Mailbox.Root)
	if err != nil {
		return fmt.Errorf("open mailbox: %w", err)
	}
	defer mail.Close()

	svc, err := buildStage(ctx, name, cfg, st, mail, log)
	if err != nil {
		return err
	}

	return svc.Run(ctx)
}

func buildStage(ctx context.Context, name string, cfg *config.Config, st store.Store, mail mailbox.Account, log *zap.Logger) (stage, error) {
	switch name {
	case pipeline.StageDownloader:
		var blobStore *blob.Store
		if cfg.Blob.Bucket != "" {
			var err error
			blobStore, err = blob.New(ctx, cfg.Blob.Bucket, cfg.Blob.VirtualDir, cfg.Blob.CredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("open blob store: %w", err)
			}
		}
		return pipeline.NewDownloader(cfg, st, mail, blobStore, log), nil

	case pipeline.StageExtractor:
		registry, err := template.LoadRegistry(cfg.Dirs.Templates)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		return pipeline.NewExtractor(cfg, st, mail, registry, log), nil

	case pipeline.StageCreator:
		ruleSet, err := rules.Load(cfg.Dirs.Rules)
		if err != nil {
			return nil, fmt.Errorf("load processing rules: %w", err)
		}
		maps, err := accmap.NewLoader(cfg.Dirs.Maps).Load()
		if err != nil {
			return nil, fmt.Errorf("load account maps: %w", err)
		}

		client := erp.NewRPCClient(cfg.ERP.Host, cfg.ERP.SystemID, log)
		compiler := claim.NewCompiler(maps, erp.NewDocumentFinder(client), log)
		recon := erp.NewReconciler(client, cfg.Processing.Duplicates, log)

		return pipeline.NewCreator(cfg, st, mail, ruleSet, compiler, recon, log), nil

	case pipeline.StageDispatcher:
		return pipeline.NewDispatcher(cfg, st, mail, log), nil

	case pipeline.StageArchiver:
		return pipeline.NewArchiver(cfg, st, mail, log), nil
	}

	return nil, fmt.Errorf("unrecognized stage %q", name)
}

// notifyFailure reports a failed run to the maintainers. Best effort, the
// stage error is what the scheduler acts on.
func notifyFailure(cfg *config.Config, name string, stageErr error, log *zap.Logger) {
	if cfg.SMTP.Host == "" || len(cfg.SMTP.Recipients) == 0 {
		return
	}

	mailer := smtp.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Sender)
	subject := fmt.Sprintf("Claims processing failure: %s", name)
	body := fmt.Sprintf(
		"The %s stage ended with an error and requires attention:\n\n%v\n\nOrder: %s\n",
		name, stageErr, orderStr)

	if err := mailer.Send(cfg.SMTP.Recipients, subject, body); err != nil {
		log.Error("could not send the failure report", zap.Error(err))
	}
}
