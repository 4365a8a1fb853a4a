package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openmeet-team/surveystudio/internal/analytics"
	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/backend"
	"github.com/openmeet-team/surveystudio/internal/builder"
	"github.com/openmeet-team/surveystudio/internal/config"
	"github.com/openmeet-team/surveystudio/internal/models"
)

var (
	rootCmd = &cobra.Command{
		Use:          "surveyctl",
		Short:        "Administer surveys from the command line",
		SilenceUsage: true,
	}
	validateCmd = &cobra.Command{
		Use:   "validate [definition file]",
		Short: "Check a JSON or YAML survey definition without saving it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	importCmd = &cobra.Command{
		Use:   "import [definition file]",
		Short: "Create a draft survey from a JSON or YAML definition",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	exportCmd = &cobra.Command{
		Use:   "export [survey id]",
		Short: "Write a survey's responses as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	analyticsCmd = &cobra.Command{
		Use:   "analytics [survey id]",
		Short: "Print a survey's analytics report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalytics,
	}
	tokenCmd = &cobra.Command{
		Use:   "token [user id]",
		Short: "Sign a session token for a user with AUTH_PRIVATE_JWK",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}

	ownerID    string
	outputPath string
	tokenTTL   time.Duration
)

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&ownerID, "owner", "", "user id that will own the survey")
	_ = importCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&outputPath, "out", "o", "", "output file (defaults to the slugged survey title)")

	rootCmd.AddCommand(analyticsCmd)

	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
}

func readDraft(path string) (*models.Survey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	def, err := models.ParseSurveyDefinition(data)
	if err != nil {
		return nil, err
	}
	return def.ToDraft()
}

func openBackend(ctx context.Context) (*backend.Backend, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, cfg)
}

func runValidate(cmd *cobra.Command, args []string) error {
	draft, err := readDraft(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d questions)\n", draft.Title, len(draft.Questions))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	draft, err := readDraft(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	bld := builder.New(b.Store, ownerID)
	bld.Load(draft)
	saved, err := bld.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created survey %s (%s)\n", saved.ID, saved.Title)
	return nil
}

func loadResults(ctx context.Context, b *backend.Backend, rawID string) (*models.Survey, []*models.Response, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid survey id %q: %w", rawID, err)
	}
	survey, err := b.Store.GetSurvey(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	responses, err := b.Store.ListResponses(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return survey, responses, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	survey, responses, err := loadResults(ctx, b, args[0])
	if err != nil {
		return err
	}

	path := outputPath
	if path == "" {
		path = analytics.ExportFilename(survey.Title)
	}
	var w io.Writer = cmd.OutOrStdout()
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := analytics.WriteCSV(w, survey, responses); err != nil {
		return err
	}
	if path != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d responses to %s\n", len(responses), path)
	}
	return nil
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	survey, responses, err := loadResults(ctx, b, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(analytics.Analyze(survey, responses))
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cfg.AuthPrivateJWK == "" {
		return fmt.Errorf("AUTH_PRIVATE_JWK is not set; run keygen first")
	}
	ttl := cfg.TokenTTL
	if tokenTTL > 0 {
		ttl = tokenTTL
	}
	issuer, err := auth.NewIssuer(cfg.AuthPrivateJWK, cfg.AuthIssuer, ttl)
	if err != nil {
		return err
	}
	token, err := issuer.Sign(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
