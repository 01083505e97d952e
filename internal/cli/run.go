package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Preflight/internal/config"
	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/report"
	"github.com/shaiso/Preflight/internal/validation"
)

// ErrChecksFailed — проверка выполнена, но не все тест-кейсы прошли.
var ErrChecksFailed = errors.New("validation finished with failed test cases")

// Validator выполняет проверку в текущем процессе.
type Validator interface {
	Run(ctx context.Context, ref domain.ReviewRequest) (*validation.Report, error)
}

// RunDeps — зависимости команды run.
type RunDeps struct {
	// LoadConfig загружает конфигурацию (обычно config.Load).
	LoadConfig func() (*config.Config, error)

	// NewValidator собирает pipeline из конфигурации.
	NewValidator func(ctx context.Context, cfg *config.Config) (Validator, error)

	// Output — фабрика Output.
	Output func() *Output
}

// RunResult — итог команды run для JSON вывода.
type RunResult struct {
	ReviewRequest string            `json:"reviewRequest"`
	PreviewURL    string            `json:"previewUrl,omitempty"`
	Summary       domain.Summary    `json:"summary"`
	Plan          []domain.TestCase `json:"plan,omitempty"`
}

// NewRunCmd создаёт команду run.
func NewRunCmd(deps RunDeps) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run OWNER/REPO#N",
		Short: "Validate a review request in this process",
		Long: "Generates a test plan, publishes it, waits for the preview deployment,\n" +
			"executes the test cases and publishes the report.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := domain.ParseReviewRequest(args[0])
			if err != nil {
				return err
			}

			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			v, err := deps.NewValidator(ctx, cfg)
			if err != nil {
				return err
			}

			rep, err := v.Run(ctx, ref)
			if err != nil {
				return err
			}

			printReport(deps.Output(), ref, rep)

			if !rep.Summary.Success {
				return ErrChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall time limit (0 = none)")

	return cmd
}

func printReport(out *Output, ref domain.ReviewRequest, rep *validation.Report) {
	result := RunResult{
		ReviewRequest: ref.String(),
		PreviewURL:    rep.Preview.PreviewURL,
		Summary:       rep.Summary,
		Plan:          rep.Plan.TestCases,
	}

	if out.jsonMode {
		out.JSON(result)
		return
	}

	if !rep.Summary.NeedsTesting {
		out.Message("%s: no testing needed", ref)
		return
	}

	out.Message("%s: preview %s", ref, rep.Preview.PreviewURL)
	rows := make([][]string, len(rep.Summary.TestCases))
	for i, r := range rep.Summary.TestCases {
		rows[i] = []string{report.Glyph(r.Status), r.Title}
	}
	out.Table([]string{"", "TEST_CASE"}, rows)
	out.Message("%d/%d passed", rep.Summary.Passed(), len(rep.Summary.TestCases))
}
