// Package cli implements the arah command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arah-ai/arah/internal/core/ports/driving"
	"github.com/arah-ai/arah/internal/logger"
)

// version is set at build time.
var version = "dev"

// skipServices marks commands that run without the pipeline.
const skipServices = "arah/skip-services"

// ConfigEntry is one resolved setting shown by `arah config`.
type ConfigEntry struct {
	Key   string
	Value string
}

// ProviderStatus is the ping outcome for one LLM provider.
type ProviderStatus struct {
	Provider string
	Err      error
}

// Services holds the driving ports the commands use.
type Services struct {
	Answer    driving.AnswerService
	Documents driving.DocumentService
	Grade     driving.GradeService
	Reports   driving.ReportService
	Config    []ConfigEntry
	Warnings  []string

	// Check pings the configured LLM providers. It errors when none is reachable.
	Check func(ctx context.Context) ([]ProviderStatus, error)

	// Close releases storage and provider connections.
	Close func() error
}

// Loader builds the services for one invocation.
type Loader func(ctx context.Context, configPath string) (*Services, error)

var (
	verbose    bool
	configPath string
	userID     string

	loader        Loader
	servicesReady bool
	closeServices func() error

	answerService   driving.AnswerService
	documentService driving.DocumentService
	gradeService    driving.GradeService
	reportService   driving.ReportService
	configEntries   []ConfigEntry
	providerCheck   func(ctx context.Context) ([]ProviderStatus, error)
)

var rootCmd = &cobra.Command{
	Use:   "arah",
	Short: "Academic assistant over your uploaded documents",
	Long: `arah answers questions about a student's own academic documents:
schedules, transcripts and course material.

Structured questions (jadwal, IPK, nilai) are answered from parsed rows.
Everything else goes through hybrid retrieval and a grounded LLM answer
that cites its sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if cmd.Annotations[skipServices] == "true" {
			return nil
		}
		return loadServices(cmd.Context())
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return releaseServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.arah/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("ARAH_USER"),
		"user whose documents are queried (env ARAH_USER)")
}

// SetVersion sets the version printed by `arah version`.
func SetVersion(v string) {
	version = v
}

// SetLoader installs the function that wires services before a command runs.
func SetLoader(l Loader) {
	loader = l
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadServices(ctx context.Context) error {
	if servicesReady {
		return nil
	}
	if loader == nil {
		return errors.New("services not configured")
	}
	svc, err := loader(ctx, configPath)
	if err != nil {
		return fmt.Errorf("initialising services: %w", err)
	}
	for _, w := range svc.Warnings {
		logger.Warn("%s", w)
	}
	answerService = svc.Answer
	documentService = svc.Documents
	gradeService = svc.Grade
	reportService = svc.Reports
	configEntries = svc.Config
	providerCheck = svc.Check
	closeServices = svc.Close
	servicesReady = true
	return nil
}

func releaseServices() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	servicesReady = false
	answerService, documentService, gradeService, reportService = nil, nil, nil, nil
	configEntries = nil
	providerCheck = nil
	return err
}

// requireUser returns the --user value or an error naming the flag.
func requireUser() (string, error) {
	u := strings.TrimSpace(userID)
	if u == "" {
		return "", errors.New("user id required: pass --user or set ARAH_USER")
	}
	return u, nil
}
