// Preflight CLI — проверка review request из командной строки.
//
// Использование:
//
//	preflight [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	run         Проверить review request в текущем процессе
//	config      Проверить конфигурацию
//	validation  Работа с сервисом через HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Preflight/internal/app"
	"github.com/shaiso/Preflight/internal/cli"
	"github.com/shaiso/Preflight/internal/config"
	"github.com/shaiso/Preflight/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

// Коды выхода.
const (
	exitError        = 1
	exitChecksFailed = 2
)

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "preflight",
		Short:         "Preflight — release validation for review requests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	// Логи пишутся в stderr, чтобы не смешиваться с данными
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = telemetry.FormatTint
	}
	logger := telemetry.Setup(os.Stderr, logFormat, telemetry.LogLevel())

	rootCmd.AddCommand(
		cli.NewRunCmd(cli.RunDeps{
			LoadConfig: config.Load,
			NewValidator: func(ctx context.Context, cfg *config.Config) (cli.Validator, error) {
				runner, err := app.BuildRunner(ctx, cfg, logger, nil)
				if err != nil {
					return nil, err
				}
				return runner, nil
			},
			Output: outputFn,
		}),
		cli.NewConfigCmd(config.Load, outputFn),
		cli.NewValidationCmd(clientFn, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, cli.ErrChecksFailed) {
			os.Exit(exitChecksFailed)
		}
		os.Exit(exitError)
	}
}
