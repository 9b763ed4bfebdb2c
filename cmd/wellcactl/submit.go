package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mamadbah2/wellca/internal/domain/models"
	metricssvc "github.com/mamadbah2/wellca/internal/service/metrics"
)

func newSubmitCmd(opts *globalOptions) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "submit <delivery|rx-sales|profiles|services>",
		Short: "Submit one dashboard form",
		Long: `Build the record of one form from --set name=value pairs and submit it.
Fields the form does not own are sent as zero; a missing date means today.`,
		Example: `  wellcactl submit delivery --set date=2024-01-15 --set purolator=3 --set fedex=2
  wellcactl submit services --set serviceType=FLU_SHOT --set serviceCost=25 \
    --set patientName="Jane Roe" --set patientDob=1980-02-01 --set pharmacistName="Dr. Lee"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := models.ParseCategory(args[0])
			if !ok {
				return fmt.Errorf("wellcactl: unknown form %q", args[0])
			}
			form, err := parseFields(fields)
			if err != nil {
				return err
			}

			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			record, err := metricssvc.NewService(cfg.Reporting.Location(), log.Named("svc.metrics")).BuildRecord(category, form)
			if err != nil {
				return err
			}

			client := newClient(cmd.Context(), cmd, cfg, true)
			echo, err := client.Submit(cmd.Context(), record)
			if err != nil {
				return fmt.Errorf("%s%w", models.MsgSubmissionError, err)
			}
			if echo == nil {
				echo = &record
			}

			message := models.MsgSubmissionSuccess
			if category == models.CategoryServices {
				message = models.MsgServiceAdded
			}
			_, _ = color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), message)
			return printJSON(cmd, echo)
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "set", "s", nil, "form field as name=value (repeatable)")
	return cmd
}

func newCalcCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Print the live calculations of a form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, err := parseFields(fields)
			if err != nil {
				return err
			}
			return printJSON(cmd, metricssvc.Derive(form))
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "set", "s", nil, "form field as name=value (repeatable)")
	return cmd
}

// parseFields turns name=value pairs into a form snapshot.
func parseFields(pairs []string) (models.FormSnapshot, error) {
	form := models.FormSnapshot{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("wellcactl: field %q must be name=value", pair)
		}
		form[name] = value
	}
	return form, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
