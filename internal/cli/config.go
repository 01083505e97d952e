package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Preflight/internal/config"
)

// NewConfigCmd создаёт группу команд для конфигурации.
func NewConfigCmd(loadConfig func() (*config.Config, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load configuration and verify required credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := outputFn()
			settings := Settings(cfg)
			if out.jsonMode {
				m := make(map[string]string, len(settings))
				for _, s := range settings {
					m[s[0]] = s[1]
				}
				out.JSON(m)
			} else {
				out.Table([]string{"SETTING", "VALUE"}, settings)
			}
			out.Message("Configuration OK")
			return nil
		},
	})

	return cmd
}

// Settings возвращает параметры в виде пар ключ-значение.
// Секреты маскируются.
func Settings(cfg *config.Config) [][]string {
	tracker := "disabled"
	if cfg.Tracker.Enabled() {
		tracker = cfg.Tracker.BaseURL
	}

	return [][]string{
		{"review_host.base_url", cfg.ReviewHost.BaseURL},
		{"review_host.token", Mask(cfg.ReviewHost.Token)},
		{"tracker", tracker},
		{"browser.base_url", cfg.Browser.BaseURL},
		{"browser.api_key", Mask(cfg.Browser.APIKey)},
		{"planner.base_url", cfg.Planner.BaseURL},
		{"planner.model", cfg.Planner.Model},
		{"planner.api_key", Mask(cfg.Planner.APIKey)},
		{"preview.interval", cfg.Preview.Interval.String()},
		{"preview.max_wait", cfg.Preview.MaxWait.String()},
		{"preview.recent_comments", strconv.Itoa(cfg.Preview.RecentComments)},
		{"preview.authors", strings.Join(cfg.Preview.Authors, ",")},
		{"tasks.poll_interval", cfg.Tasks.PollInterval.String()},
		{"tasks.max_wait", cfg.Tasks.MaxWait.String()},
		{"tasks.max_concurrency", concurrencyCell(cfg.Tasks.MaxConcurrency)},
	}
}

// Mask оставляет от секрета только последние 4 символа.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}

func concurrencyCell(n int) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprint(n)
}
