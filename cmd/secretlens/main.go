package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/common"
	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/datastore"
	"github.com/secretlens/secretlens/internal/dismissal"
	"github.com/secretlens/secretlens/internal/logger"
	"github.com/secretlens/secretlens/internal/models"
	"github.com/secretlens/secretlens/internal/orchestrator"
	"github.com/secretlens/secretlens/internal/procwatch"
	"github.com/secretlens/secretlens/internal/reveal"
	"github.com/secretlens/secretlens/internal/scanner"
	"github.com/secretlens/secretlens/internal/updatecheck"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	configFileAlias := flag.String("c", "", "Alias for -config")

	targetDir := flag.String("target", "", "Directory to scan for verified secrets.")
	targetDirAlias := flag.String("t", "", "Alias for -target")

	historyLimit := flag.Int("history", 0, "Print the N most recent scan sessions and exit.")
	checkUpdate := flag.Bool("check-update", false, "Check for a newer release and exit.")
	showVersion := flag.Bool("version", false, "Print version and exit.")
	flag.Parse()

	// Consolidate alias flags
	if *configFile == "" && *configFileAlias != "" {
		*configFile = *configFileAlias
	}
	if *targetDir == "" && *targetDirAlias != "" {
		*targetDir = *targetDirAlias
	}

	if *showVersion {
		fmt.Printf("secretlens %s\n", version)
		return
	}

	gCfg, err := config.LoadGlobalConfig(*configFile)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load config using path '%s': %v", *configFile, err)
	}
	if err := config.ValidateConfig(gCfg); err != nil {
		log.Fatalf("[FATAL] Main: Configuration validation failed: %v", err)
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}
	zLogger.Info().Str("version", version).Msg("secretlens starting")

	// Signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		zLogger.Info().Str("signal", sig.String()).Msg("Received interrupt signal, initiating graceful shutdown")
		cancel()
	}()

	switch {
	case *checkUpdate:
		runUpdateCheck(ctx, gCfg, zLogger)
	case *historyLimit > 0:
		runHistory(ctx, gCfg, *historyLimit, zLogger)
	case *targetDir != "":
		runScan(ctx, gCfg, *targetDir, zLogger)
	default:
		fmt.Fprintln(os.Stderr, "Nothing to do: pass -target <dir>, -history <n>, -check-update or -version.")
		flag.Usage()
		os.Exit(2)
	}
}

// runScan wires the full scan pipeline and runs one scan session against
// targetDir, printing the surviving findings afterwards.
func runScan(ctx context.Context, gCfg *config.GlobalConfig, targetDir string, zLogger zerolog.Logger) {
	stream := scanner.NewStream(gCfg.ScannerConfig, zLogger)
	session := reveal.NewSession(stream, gCfg.RevealConfig, zLogger)

	dismissals, err := dismissal.NewStore(gCfg.DismissalConfig, zLogger)
	if err != nil {
		zLogger.Warn().Err(err).Msg("Dismissal file unreadable, starting with an empty dismissal set")
		backupDismissalFile(gCfg.DismissalConfig.FilePath, zLogger)
		dismissals, err = dismissal.NewStore(gCfg.DismissalConfig, zLogger)
		if err != nil {
			zLogger.Fatal().Err(err).Msg("Failed to initialize dismissal store")
		}
	}

	var history *datastore.ScanHistoryStore
	if gCfg.StorageConfig.HistoryEnabled {
		history, err = datastore.NewScanHistoryStore(&gCfg.StorageConfig, zLogger)
		if err != nil {
			zLogger.Error().Err(err).Msg("Failed to initialize scan history store, continuing without history")
			history = nil
		}
	}

	var archive *datastore.FindingsStore
	if gCfg.StorageConfig.ArchiveEnabled {
		archive, err = datastore.NewFindingsStore(&gCfg.StorageConfig, zLogger)
		if err != nil {
			zLogger.Error().Err(err).Msg("Failed to initialize findings archive, continuing without archival")
			archive = nil
		}
	}

	var watchdog *procwatch.Watchdog
	if gCfg.WatchdogConfig.Enabled {
		watchdog = procwatch.NewWatchdog(gCfg.WatchdogConfig, zLogger)
		stream.OnProcessStart = watchdog.Watch
	}

	manager, err := orchestrator.NewScanManager(stream, session, dismissals, history, archive, watchdog, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to initialize scan manager")
	}
	defer manager.Close()

	if err := manager.Scan(ctx, targetDir); err != nil {
		switch {
		case common.IsContextError(err):
			zLogger.Warn().Msg("Scan interrupted")
		default:
			zLogger.Error().Err(err).Msg("Scan failed")
		}
	}

	printFindings(manager.VisibleFindings())
	if summary := manager.LastSummary(); summary != nil {
		fmt.Printf("\nSession %s [%s]: %d findings (%d duplicates) in %s\n",
			summary.ScanSessionID,
			summary.Status,
			summary.FindingsCount,
			summary.DuplicateCount,
			summary.ScanDuration.Round(time.Millisecond))
		if summary.ErrorMessage != "" {
			fmt.Printf("Error: %s\n", summary.ErrorMessage)
		}
	}
}

// backupDismissalFile moves an unreadable dismissal file aside so a fresh
// store can start empty without destroying the original content.
func backupDismissalFile(filePath string, zLogger zerolog.Logger) {
	if filePath == "" {
		filePath = config.DefaultDismissalFilePath
	}
	expanded, err := homedir.Expand(filePath)
	if err != nil {
		expanded = filePath
	}
	backupPath := expanded + ".bak"
	if err := os.Rename(expanded, backupPath); err != nil {
		zLogger.Warn().Err(err).Str("file", expanded).Msg("Could not move corrupt dismissal file aside")
		return
	}
	zLogger.Info().Str("backup", backupPath).Msg("Corrupt dismissal file preserved")
}

func printFindings(findings []models.Finding) {
	if len(findings) == 0 {
		fmt.Println("No verified secrets found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Detector", "Decoder", "File", "Line"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, finding := range findings {
		line := ""
		if finding.Line > 0 {
			line = strconv.FormatInt(finding.Line, 10)
		}
		table.Append([]string{finding.ShortID(), finding.DetectorName, finding.DecoderName, finding.FilePath, line})
	}
	table.Render()
}

func runHistory(ctx context.Context, gCfg *config.GlobalConfig, limit int, zLogger zerolog.Logger) {
	historyStore, err := datastore.NewScanHistoryStore(&gCfg.StorageConfig, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to open scan history store")
	}
	defer historyStore.Close()

	scans, err := historyStore.RecentScans(ctx, limit)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to query scan history")
	}
	if len(scans) == 0 {
		fmt.Println("No scan history recorded yet.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Session", "Target", "Status", "Findings", "Duration", "Started"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, scan := range scans {
		table.Append([]string{
			scan.ScanSessionID,
			scan.TargetPath,
			string(scan.Status),
			strconv.Itoa(scan.FindingsCount),
			scan.ScanDuration.Round(time.Millisecond).String(),
			scan.StartedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func runUpdateCheck(ctx context.Context, gCfg *config.GlobalConfig, zLogger zerolog.Logger) {
	checker := updatecheck.NewChecker(gCfg.UpdateCheckConfig, version, zLogger)
	result := checker.Check(ctx)
	if result == nil {
		fmt.Println("No update information available.")
		return
	}
	if result.UpdateAvailable {
		fmt.Printf("Update available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)
		if result.ReleaseURL != "" {
			fmt.Printf("Release: %s\n", result.ReleaseURL)
		}
		return
	}
	fmt.Printf("secretlens %s is up to date (latest release: %s).\n", result.CurrentVersion, result.LatestVersion)
}
