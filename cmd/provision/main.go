// qrpass-provision reads a guest list, stores one unused pass per row and
// writes a QR code PNG for each stored pass.
//
// Rows are independent: a row that fails to persist or render is reported and
// the rest of the list is still processed. The exit code is non-zero when any
// row failed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"qrpass/internal/config"
	"qrpass/internal/database"
	"qrpass/internal/provision"
	"qrpass/lib/logger"
	"qrpass/lib/sl"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

const logFileName = "qrpass-provision"

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) ExitCode() int {
	return e.code
}

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logPath    string
		input      string
		outDir     string
		baseURL    string
		size       int
	)

	flagSet := pflag.NewFlagSet("qrpass-provision", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "conf", "c", "config.yml", "path to config file")
	flagSet.StringVar(&logPath, "log", "/var/log/", "path to log file directory (dev and prod env)")
	flagSet.StringVarP(&input, "input", "i", "", "guest list CSV with name, phone, note columns (default: provision.input)")
	flagSet.StringVarP(&outDir, "out", "o", "", "directory for QR code images (default: provision.out_dir)")
	flagSet.StringVar(&baseURL, "base-url", "", "redemption link prefix the token is appended to (default: provision.base_url)")
	flagSet.IntVar(&size, "size", 0, "QR image size in pixels (default: provision.qr_size)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stderr, "Usage: qrpass-provision [flags]")
		flagSet.PrintDefaults()
		return nil
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if input == "" {
		input = conf.Provision.Input
	}
	if outDir == "" {
		outDir = conf.Provision.OutDir
	}
	if baseURL == "" {
		baseURL = conf.Provision.BaseURL
	}
	if size == 0 {
		size = conf.Provision.QRSize
	}

	lg := logger.SetupLogger(conf.Env, logPath, logFileName)

	file, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open guest list: %w", err)
	}
	rows, err := provision.ReadRows(file)
	_ = file.Close()
	if err != nil {
		return fmt.Errorf("guest list %s: %w", input, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, conf, lg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			lg.Warn("closing store", sl.Err(err))
		}
	}()

	provisioner := provision.New(store, provision.NewQRRenderer(size), provision.Config{
		BaseURL: baseURL,
		OutDir:  outDir,
	}, lg)

	report, err := provisioner.Run(ctx, rows)
	if report != nil {
		printReport(report, outDir)
	}
	if err != nil {
		return err
	}
	if !report.Ok() {
		lg.Warn("some rows failed", slog.Int("failed", len(report.Failed)))
		return &exitError{code: 2, err: fmt.Errorf("%d of %d rows failed", len(report.Failed), len(rows))}
	}
	return nil
}

func printReport(report *provision.Report, outDir string) {
	for _, created := range report.Created {
		fmt.Printf("Created: %s → %s\n", created.Pass.Name, created.URL)
	}
	for _, failed := range report.Failed {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", failed)
	}
	fmt.Printf("Done. %d created, %d failed, batch %s. PNGs in %s/\n",
		len(report.Created), len(report.Failed), report.Batch, outDir)
}
