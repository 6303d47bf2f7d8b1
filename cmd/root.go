package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/avareg/quickscan/internal/config"
	"github.com/avareg/quickscan/internal/history"
	"github.com/avareg/quickscan/internal/log"
	"github.com/avareg/quickscan/internal/metrics"
	"github.com/avareg/quickscan/internal/prereq"
	"github.com/avareg/quickscan/internal/resolve"
	"github.com/avareg/quickscan/pkg/report"
	"github.com/avareg/quickscan/pkg/scan"
	"github.com/avareg/quickscan/pkg/types"
	"github.com/avareg/quickscan/pkg/version"
)

// errFlagRetrieval is the error message for when a flag cannot be retrieved.
var errFlagRetrieval = errors.New("error getting flag")

// errRequiredFlagEmpty is the error message for a required flag that is empty.
var errRequiredFlagEmpty = errors.New("is required and cannot be empty")

// Execute is the main entry point for the scanner.
func Execute(args []string) {
	rootCmd := newRootCmd()
	rootCmd.Version = fmt.Sprintf(`{"version": "%s", "commit": "%s"}`, version.Version, version.CommitSHA)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command for the scanner.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quickscan",
		Short: "Quickscan runs preflight compliance checks against a list of container images.",
		Long: "Quickscan resolves container images from a registry namespace or a plain text file,\n" +
			"runs preflight against each of them in parallel, and aggregates the per-check\n" +
			"results into CSV, XLSX and HTML reports.",
		RunE:         runScanner,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Registry flags are only needed when no image file is given.
			imageFile, _ := cmd.Flags().GetString("image-file") //nolint:errcheck
			if imageFile == "" {
				requiredFlags := []string{"fqdn", "repo-namespace", "api-token"}
				for _, flag := range requiredFlags {
					value, err := cmd.Flags().GetString(flag)
					if err != nil {
						return fmt.Errorf("%w: %s: %w", errFlagRetrieval, flag, err)
					}
					if value == "" {
						return fmt.Errorf("%s %w", flag, errRequiredFlagEmpty)
					}
				}
			}

			tagType, _ := cmd.Flags().GetString("tag-type") //nolint:errcheck
			if tagType != resolve.TagTypeName && tagType != resolve.TagTypeDigest {
				return fmt.Errorf("unsupported tag-type: %s (options: name|digest)", tagType)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file with flag defaults")
	rootCmd.PersistentFlags().StringP("image-file", "i", "", `Path to a text file with one image reference per line.
This skips the registry API and scans exactly the listed images.`)
	rootCmd.PersistentFlags().String("fqdn", "quay.io", "Registry FQDN to resolve images from")
	rootCmd.PersistentFlags().StringP("repo-namespace", "o", "", "Registry namespace (organization) to list repositories in")
	rootCmd.PersistentFlags().StringP("api-token", "t", "", "Bearer token for the registry API")
	rootCmd.PersistentFlags().StringP("cnf-prefix", "p", "", `Repository name substrings to include, separated by '|'.
Empty includes every repository in the namespace.`)
	rootCmd.PersistentFlags().StringP("filter", "x", "", "Repository name substrings to exclude, separated by '|'")
	rootCmd.PersistentFlags().String("tag-type", resolve.TagTypeName, "How to pin resolved images. options: name|digest")
	rootCmd.PersistentFlags().StringP("auth-json", "d", "", "Path to a docker auth config passed to preflight")
	rootCmd.PersistentFlags().IntP("parallel", "j", 4, "Maximum number of images scanned at the same time")
	rootCmd.PersistentFlags().Int("timeout", 30, "Per-image scan timeout in minutes")
	rootCmd.PersistentFlags().String("output-csv", "preflight_image_scan_result.csv", "Output file for the CSV report")
	rootCmd.PersistentFlags().String("output-xlsx", "", "Optional output file for the XLSX report")
	rootCmd.PersistentFlags().String("output-html", "", "Optional output file for the HTML report")
	rootCmd.PersistentFlags().String("db-driver", history.DriverSQLite, "Scan history database driver. options: sqlite|postgres")
	rootCmd.PersistentFlags().String("db-dsn", "", "Scan history DSN; empty disables history")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Listen address for Prometheus metrics; empty disables them")
	rootCmd.PersistentFlags().Bool("skip-prereq", false, "Skip the environment prerequisite checks")

	return rootCmd
}

// settings is the merged view of flags and the optional config file.
type settings struct {
	imageFile      string
	fqdn           string
	repoNamespace  string
	apiToken       string
	cnfPrefix      string
	filter         string
	tagType        string
	authJSON       string
	parallel       int
	timeoutMinutes int
	outputCSV      string
	outputXLSX     string
	outputHTML     string
	dbDriver       string
	dbDSN          string
	metricsAddr    string
	skipPrereq     bool
}

// gatherSettings reads every flag and fills unset ones from the config
// file when one is given. An explicit flag always wins over the file.
func gatherSettings(cmd *cobra.Command) (*settings, error) {
	s := &settings{}
	s.imageFile, _ = cmd.Flags().GetString("image-file")        //nolint:errcheck
	s.fqdn, _ = cmd.Flags().GetString("fqdn")                   //nolint:errcheck
	s.repoNamespace, _ = cmd.Flags().GetString("repo-namespace") //nolint:errcheck
	s.apiToken, _ = cmd.Flags().GetString("api-token")          //nolint:errcheck
	s.cnfPrefix, _ = cmd.Flags().GetString("cnf-prefix")        //nolint:errcheck
	s.filter, _ = cmd.Flags().GetString("filter")               //nolint:errcheck
	s.tagType, _ = cmd.Flags().GetString("tag-type")            //nolint:errcheck
	s.authJSON, _ = cmd.Flags().GetString("auth-json")          //nolint:errcheck
	s.parallel, _ = cmd.Flags().GetInt("parallel")              //nolint:errcheck
	s.timeoutMinutes, _ = cmd.Flags().GetInt("timeout")         //nolint:errcheck
	s.outputCSV, _ = cmd.Flags().GetString("output-csv")        //nolint:errcheck
	s.outputXLSX, _ = cmd.Flags().GetString("output-xlsx")      //nolint:errcheck
	s.outputHTML, _ = cmd.Flags().GetString("output-html")      //nolint:errcheck
	s.dbDriver, _ = cmd.Flags().GetString("db-driver")          //nolint:errcheck
	s.dbDSN, _ = cmd.Flags().GetString("db-dsn")                //nolint:errcheck
	s.metricsAddr, _ = cmd.Flags().GetString("metrics-addr")    //nolint:errcheck
	s.skipPrereq, _ = cmd.Flags().GetBool("skip-prereq")        //nolint:errcheck

	cfgPath, _ := cmd.Flags().GetString("config") //nolint:errcheck
	if cfgPath == "" {
		return s, nil
	}

	file, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	applyFileDefaults(cmd, s, file)
	return s, nil
}

func applyFileDefaults(cmd *cobra.Command, s *settings, file *config.File) {
	changed := cmd.Flags().Changed

	setString := func(flag string, dst *string, val string) {
		if !changed(flag) && val != "" {
			*dst = val
		}
	}
	setString("image-file", &s.imageFile, file.ImageFile)
	setString("fqdn", &s.fqdn, file.FQDN)
	setString("repo-namespace", &s.repoNamespace, file.RepoNamespace)
	setString("cnf-prefix", &s.cnfPrefix, file.CnfPrefix)
	setString("filter", &s.filter, file.Filter)
	setString("tag-type", &s.tagType, file.TagType)
	setString("auth-json", &s.authJSON, file.AuthJSON)
	setString("output-csv", &s.outputCSV, file.OutputCSV)
	setString("output-xlsx", &s.outputXLSX, file.OutputXLSX)
	setString("output-html", &s.outputHTML, file.OutputHTML)
	setString("db-driver", &s.dbDriver, file.DBDriver)
	setString("db-dsn", &s.dbDSN, file.DBDSN)
	setString("metrics-addr", &s.metricsAddr, file.MetricsAddr)

	if !changed("parallel") && file.Parallel > 0 {
		s.parallel = file.Parallel
	}
	if !changed("timeout") && file.TimeoutMinutes > 0 {
		s.timeoutMinutes = file.TimeoutMinutes
	}
}

// runScanner is the main entry point for the scanner.
func runScanner(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	logger := log.NewLogger(ctx)

	s, err := gatherSettings(cmd)
	if err != nil {
		return err
	}

	if !s.skipPrereq {
		checker := prereq.NewChecker(ctx)
		results, ok := checker.Run(ctx, prereq.Options{
			FQDN:      s.fqdn,
			Namespace: s.repoNamespace,
			Token:     s.apiToken,
		})
		for _, r := range results {
			state := "OK"
			if !r.OK {
				state = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-5s %s\n", r.Name, state, r.Detail)
		}
		if !ok {
			return errors.New("prerequisite checks failed")
		}
	}

	tasks, err := resolveTasks(ctx, logger, s)
	if err != nil {
		return fmt.Errorf("error resolving scan tasks: %w", err)
	}
	logger.Info("resolved scan tasks", "count", len(tasks))

	var collector *metrics.Collector
	if s.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		srv := metrics.NewServer(s.metricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	invoker := scan.NewInvoker(logger, s.authJSON, time.Duration(s.timeoutMinutes)*time.Minute)
	worker := scan.NewWorker(logger, invoker, scan.NewParser(logger))
	observer := func(outcome types.ScanOutcome) {
		fmt.Fprint(cmd.OutOrStdout(), outcome.ConsoleOutput)
		if collector != nil {
			collector.ObserveOutcome(outcome)
		}
	}

	agg := scan.NewCoordinator(logger, worker, s.parallel, observer).Run(ctx, tasks)

	if err := writeReports(s, &agg); err != nil {
		return err
	}

	if s.dbDSN != "" {
		if err := recordHistory(ctx, s, &agg); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nTotal scan time: %.2f minutes for %d images\n",
		agg.TotalElapsed.Minutes(), agg.ImagesScanned)

	if agg.AnyFailure {
		return errors.New("one or more image scans did not complete cleanly")
	}
	return nil
}

func resolveTasks(ctx context.Context, logger types.Logger, s *settings) ([]types.ScanTask, error) {
	if s.imageFile != "" {
		return resolve.FromFile(s.imageFile)
	}
	return resolve.FromRegistry(ctx, logger, nil, resolve.RegistryOptions{
		Token:     s.apiToken,
		FQDN:      s.fqdn,
		Namespace: s.repoNamespace,
		Prefix:    s.cnfPrefix,
		Exclude:   s.filter,
		TagType:   s.tagType,
	})
}

func writeReports(s *settings, agg *types.AggregateResult) error {
	if err := backupExisting(s.outputCSV); err != nil {
		return err
	}

	f, err := os.OpenFile(s.outputCSV, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("error creating csv report: %w", err)
	}
	defer f.Close()
	if err := report.WriteCSV(f, agg); err != nil {
		return err
	}

	if s.outputXLSX != "" {
		if err := report.WriteXLSX(s.outputXLSX, agg); err != nil {
			return err
		}
	}

	if s.outputHTML != "" {
		h, err := os.OpenFile(s.outputHTML, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
		if err != nil {
			return fmt.Errorf("error creating html report: %w", err)
		}
		defer h.Close()
		if err := report.WriteHTML(h, agg); err != nil {
			return err
		}
	}
	return nil
}

// backupExisting keeps the previous report around by renaming it with a
// _saved suffix before the new one is written.
func backupExisting(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ext := filepath.Ext(path)
	saved := strings.TrimSuffix(path, ext) + "_saved" + ext
	if err := os.Rename(path, saved); err != nil {
		return fmt.Errorf("error backing up previous report %s: %w", path, err)
	}
	return nil
}

func recordHistory(ctx context.Context, s *settings, agg *types.AggregateResult) error {
	db, err := history.Open(s.dbDriver, s.dbDSN)
	if err != nil {
		return err
	}
	manager, err := history.NewManager(db)
	if err != nil {
		return err
	}
	if _, err := manager.InsertRun(ctx, agg); err != nil {
		return err
	}
	return nil
}
