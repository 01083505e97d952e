package cli

import (
	"github.com/spf13/cobra"
)

// NewValidationCmd создаёт группу команд для работы с сервисом через API.
func NewValidationCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validation",
		Aliases: []string{"validations"},
		Short:   "Manage validation runs through the API",
	}

	cmd.AddCommand(
		newValidationListCmd(clientFn, outputFn),
		newValidationShowCmd(clientFn, outputFn),
		newValidationRequestCmd(clientFn, outputFn),
	)

	return cmd
}

var validationHeaders = []string{"ID", "REVIEW_REQUEST", "STATUS", "NEEDS_TESTING", "SUCCESS", "CREATED"}

func validationRow(v ValidationResponse) []string {
	return []string{v.ID, v.ReviewRequest, v.Status, boolCell(v.NeedsTesting), boolCell(v.Success), v.CreatedAt}
}

func newValidationListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListValidationsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List validation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := clientFn().ListValidations(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(list))
			for i, v := range list {
				rows[i] = validationRow(v)
			}
			outputFn().Print(validationHeaders, rows, list)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ReviewRequest, "review-request", "", "Filter by review request (owner/repo#N)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newValidationShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show validation run with test case results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := clientFn().GetValidation(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if out.jsonMode {
				out.JSON(v)
				return nil
			}

			out.Table(validationHeaders, [][]string{validationRow(*v)})
			if v.Error != "" {
				out.Message("Error: %s", v.Error)
			}
			if len(v.Results) > 0 {
				rows := make([][]string, len(v.Results))
				for i, r := range v.Results {
					rows[i] = []string{r.Title, r.Status}
				}
				out.Message("")
				out.Table([]string{"TEST_CASE", "STATUS"}, rows)
			}
			return nil
		},
	}
}

func newValidationRequestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "request OWNER/REPO#N",
		Short: "Queue a validation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := clientFn().RequestValidation(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Message("Validation queued: %s", v.ID)
			out.Print(validationHeaders, [][]string{validationRow(*v)}, v)
			return nil
		},
	}
}
