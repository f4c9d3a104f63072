package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/etl"
	"github.com/servicekpi/internal/export"
	"github.com/servicekpi/internal/web"
)

var configPath string

func main() {
	// A .env file is optional; deployed environments set variables directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "servicekpi",
		Short: "Field service KPI pipeline",
		Long:  `Links job, sales, and fleet GPS exports into per-technician KPI tables`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createConvertCmd())
	rootCmd.AddCommand(createVerifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.SetupLogger(cfg.Log)
	return cfg
}

func parseDateFlag(name, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		log.Fatalf("Invalid --%s date %q, want YYYY-MM-DD", name, value)
	}
	return t
}

// createRunCmd creates the run subcommand: one pipeline pass plus CSV export.
func createRunCmd() *cobra.Command {
	var dataDir string
	var outDir string
	var fromStr, toStr string
	var techs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and export the KPI tables",
		Long:  `Load the job report, sales journal, and GPS files, link and classify every row, and write one CSV per aggregate table`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if dataDir != "" {
				cfg.Data.Dir = dataDir
			}
			if outDir != "" {
				cfg.Data.ExportDir = outDir
			}

			opts := etl.RunOptions{
				From:  parseDateFlag("from", fromStr),
				To:    parseDateFlag("to", toStr),
				Techs: techs,
			}

			var bar *pb.ProgressBar
			opts.Progress = func(done, total int) {
				if bar == nil {
					bar = pb.StartNew(total)
				}
				bar.Set(done)
			}

			pipeline := etl.NewPipeline(cfg, logrus.StandardLogger())
			snap, err := pipeline.Run(cmd.Context(), opts)
			if bar != nil {
				bar.Finish()
			}
			if err != nil {
				log.Fatalf("Pipeline run failed: %v", err)
			}

			paths, err := export.NewWriter(snap).ExportAll(cfg.Data.ExportDir)
			if err != nil {
				log.Fatalf("Export failed: %v", err)
			}

			stats := snap.LinkStats
			fmt.Printf("\n=== Pipeline Results ===\n")
			fmt.Printf("Run ID: %s\n", snap.RunID)
			fmt.Printf("Jobs: %d  Sales rows: %d (%d duplicates dropped)\n", stats.Jobs, stats.Sales, stats.DuplicateSales)
			fmt.Printf("Linked rows: %d (matched %d, unreconciled %d, orphan sales %d)\n",
				len(snap.Rows), stats.Matched, stats.Unreconciled, stats.Orphans)
			fmt.Printf("Technician mismatches: %d\n", stats.TechMismatches)
			fmt.Printf("GPS stops linked: %d\n", snap.GPSLinked)
			fmt.Printf("Technicians in KPI tables: %d\n", len(snap.Revenue))
			for _, warning := range snap.Warnings {
				fmt.Printf("Warning: %s\n", warning)
			}
			fmt.Printf("Exported %d tables to %s\n", len(paths), cfg.Data.ExportDir)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding the source CSV files")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for the exported CSV tables")
	cmd.Flags().StringVar(&fromStr, "from", "", "Only include records on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "Only include records on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&techs, "techs", nil, "Only include these technicians (codes or names)")

	return cmd
}

// createServeCmd creates the serve subcommand: run once, then serve the
// snapshot over HTTP.
func createServeCmd() *cobra.Command {
	var addr string
	var dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and serve the results as a JSON API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if dataDir != "" {
				cfg.Data.Dir = dataDir
			}
			if addr != "" {
				host, portStr, err := net.SplitHostPort(addr)
				if err != nil {
					log.Fatalf("Invalid --addr %q: %v", addr, err)
				}
				port, err := strconv.Atoi(portStr)
				if err != nil {
					log.Fatalf("Invalid --addr port %q: %v", portStr, err)
				}
				cfg.Server.Host = host
				cfg.Server.Port = port
			}

			logger := logrus.StandardLogger()
			pipeline := etl.NewPipeline(cfg, logger)
			opts := etl.RunOptions{}

			snap, err := pipeline.Run(cmd.Context(), opts)
			if err != nil {
				log.Fatalf("Initial pipeline run failed: %v", err)
			}

			server := web.NewServer(cfg, logger, pipeline, opts)
			server.SetSnapshot(snap)
			if err := server.Start(); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address host:port (overrides config)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding the source CSV files")

	return cmd
}

// createConvertCmd creates the convert subcommand for legacy .dat/.str
// sales-journal exports.
func createConvertCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert [file.dat]",
		Short: "Convert a legacy .dat/.str sales journal to CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			loadConfig()
			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, ".dat")
				output = strings.TrimSuffix(output, ".str") + ".csv"
			}

			report, err := etl.ConvertDAT(input, output)
			if err != nil {
				log.Fatalf("Conversion failed: %v", err)
			}

			fmt.Printf("=== Conversion Results ===\n")
			fmt.Printf("Input: %s\n", report.Input)
			fmt.Printf("Output: %s\n", report.Output)
			fmt.Printf("Columns: %d\n", report.Columns)
			fmt.Printf("Rows: %d\n", report.Rows)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output CSV path (default: input with .csv extension)")

	return cmd
}

// createVerifyCmd creates the verify subcommand: a data-quality report for
// one source file.
func createVerifyCmd() *cobra.Command {
	var fileType string

	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Report data quality for one source file",
		Long:  `Load a file by its declared or detected type and report row counts, per-column missing values, duplicate rows, and coercion failures`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			loadConfig()

			report, err := etl.NewIngestor(logrus.StandardLogger()).Verify(args[0], fileType)
			if err != nil {
				log.Fatalf("Verification failed: %v", err)
			}

			fmt.Printf("=== Verification Report ===\n")
			fmt.Printf("File: %s\n", report.File)
			fmt.Printf("Type: %s\n", report.Type)
			fmt.Printf("Encoding: %s\n", report.Encoding)
			fmt.Printf("Rows: %d\n", report.Rows)
			fmt.Printf("Columns: %d\n", len(report.Columns))
			fmt.Printf("Duplicate rows: %d\n", report.Duplicates)
			fmt.Printf("Coercion failures: %d timestamps, %d numbers, %d booleans, %d durations\n",
				report.Coercions.Timestamps, report.Coercions.Numbers,
				report.Coercions.Booleans, report.Coercions.Durations)

			if len(report.Missing) > 0 {
				columns := make([]string, 0, len(report.Missing))
				for column := range report.Missing {
					columns = append(columns, column)
				}
				sort.Strings(columns)
				fmt.Printf("\nMissing values by column:\n")
				for _, column := range columns {
					fmt.Printf("  %-24s %d\n", column, report.Missing[column])
				}
			}
			for _, warning := range report.Warnings {
				fmt.Printf("Warning: %s\n", warning)
			}
		},
	}

	cmd.Flags().StringVar(&fileType, "type", "", "File type: jobs, sales, or a GPS kind (default: detect from filename)")

	return cmd
}
