package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/locvowork/wage_calculator/internal/config"
	"github.com/locvowork/wage_calculator/internal/domain"
	"github.com/locvowork/wage_calculator/internal/handler"
	"github.com/locvowork/wage_calculator/internal/logger"
	"github.com/locvowork/wage_calculator/internal/repository"
	"github.com/locvowork/wage_calculator/internal/service"
	"github.com/locvowork/wage_calculator/internal/wage"
	"github.com/spf13/cobra"
)

type cli struct {
	out    io.Writer
	errOut io.Writer

	// persistent flags
	ratesPath string
	rounding  string
	logLevel  string
	dark      bool
	asJSON    bool

	svc *service.WageService
}

// queryFlags are the calculation inputs shared by calc, chart and export.
type queryFlags struct {
	role    string
	age     int
	shifts  []string
	hours   string
	minutes string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "wagecalc",
		Short: "Weekly and monthly wage calculator for retail staff",
		Long: `wagecalc computes the weekly and monthly wage of a shelf stacker or team
leader from their age and the shifts worked in a week.

Shifts are given as H:MM with --shift (repeatable), or as comma separated
hour and minute lists with --hours and --minutes.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&c.ratesPath, "rates", "", "YAML rate table (defaults to RATE_TABLE_PATH or the built-in table)")
	root.PersistentFlags().StringVar(&c.rounding, "rounding", "", "rounding mode: half_up or half_even")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().BoolVar(&c.dark, "dark", false, "use the dark color scheme")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of formatted text")

	root.AddCommand(
		c.calcCmd(),
		c.agesCmd(),
		c.ratesCmd(),
		c.chartCmd(),
		c.parseCmd(),
		c.exportCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	logger.InitConsoleLogging(c.errOut, c.logLevel)

	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	ratesPath, rounding := c.ratesPath, c.rounding
	if !cmd.Flags().Changed("rates") {
		ratesPath = config.DefaultEnvConfig.RATE_TABLE_PATH
	}
	if !cmd.Flags().Changed("rounding") {
		rounding = config.DefaultEnvConfig.ROUNDING_MODE
	}

	table, err := wage.LoadRateTable(ratesPath)
	if err != nil {
		return err
	}
	mode, err := wage.ParseRoundingMode(rounding)
	if err != nil {
		return err
	}

	c.svc = service.NewWageService(wage.NewEngine(table, wage.WithRounding(mode)), repository.NewMemorySessionRepository(), nil)
	return nil
}

// ==================== Commands ====================

func (c *cli) calcCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the weekly and monthly wage",
		Example: `  wagecalc calc --role shelf_stacker --age 18 --shift 2:30
  wagecalc calc --role teamleider --age 21 --hours "10, 5" --minutes 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := q.resolve(c.svc)
			if err != nil {
				return c.fail(err)
			}

			calc, err := c.svc.Calculate(cmd.Context(), query, "")
			if err != nil {
				return c.fail(err)
			}

			if c.asJSON {
				return c.writeJSON(handler.NewWageResultResponse(calc))
			}
			fmt.Fprintln(c.out, renderResult(c.palette(), calc.Result))
			return nil
		},
	}
	q.register(cmd, true)
	return cmd
}

func (c *cli) agesCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "ages",
		Short: "List the ages that have a rate for a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _ := domain.ParseRole(role)
			rates, err := c.svc.Rates(r)
			if err != nil {
				return err
			}

			ages := make([]int, len(rates))
			for i, rate := range rates {
				ages[i] = rate.Age
			}
			if c.asJSON {
				return c.writeJSON(ages)
			}
			fmt.Fprintln(c.out, renderAges(ages))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "shelf_stacker or team_leader")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func (c *cli) ratesCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the hourly rate per age for a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _ := domain.ParseRole(role)
			rates, err := c.svc.Rates(r)
			if err != nil {
				return err
			}

			if c.asJSON {
				return c.writeJSON(handler.NewRatesResponse(r, rates))
			}
			fmt.Fprintln(c.out, renderRates(c.palette(), r, rates))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "shelf_stacker or team_leader")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func (c *cli) chartCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Chart the weekly earning of the given shifts for every age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, series, err := q.earningsByAge(cmd.Context(), c.svc)
			if err != nil {
				return c.fail(err)
			}

			if c.asJSON {
				return c.writeJSON(handler.NewEarningsByAgeResponse(role, series))
			}
			fmt.Fprintln(c.out, renderChart(c.palette(), role, series))
			return nil
		},
	}
	q.register(cmd, false)
	return cmd
}

func (c *cli) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse TEXT",
		Short: "Sum a comma separated list of durations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := c.svc.ParseDurations(args[0])

			if c.asJSON {
				if err := c.writeJSON(list); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(c.out, renderDurations(c.palette(), list))
			}

			if list.Malformed {
				return c.fail(wage.ValidationErrors{{
					Field:   "text",
					Code:    wage.CodeMalformedDuration,
					Message: "no usable duration in input",
				}})
			}
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		q   queryFlags
		out string
	)
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write the wage report to an xlsx or csv file",
		Example: `  wagecalc export --role shelf_stacker --age 18 --shift 2:30 --out report.xlsx`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(strings.TrimPrefix(filepath.Ext(out), "."))

			query, err := q.resolve(c.svc)
			if err != nil {
				return c.fail(err)
			}

			if err := c.svc.SaveReport(cmd.Context(), query, format, out); err != nil {
				return c.fail(err)
			}
			fmt.Fprintf(c.out, "Report written to %s\n", out)
			return nil
		},
	}
	q.register(cmd, true)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, .xlsx or .csv")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// ==================== Helpers ====================

func (q *queryFlags) register(cmd *cobra.Command, withAge bool) {
	cmd.Flags().StringVar(&q.role, "role", "", "shelf_stacker or team_leader")
	if withAge {
		cmd.Flags().IntVar(&q.age, "age", 0, "age of the employee")
	}
	cmd.Flags().StringArrayVar(&q.shifts, "shift", nil, "shift as H or H:MM (repeatable)")
	cmd.Flags().StringVar(&q.hours, "hours", "", "comma separated hours, summed into one shift")
	cmd.Flags().StringVar(&q.minutes, "minutes", "", "comma separated minutes, summed into one shift")
}

func (q *queryFlags) isForm() bool {
	return q.hours != "" || q.minutes != ""
}

// resolve builds a validated query from either the shift list or the
// hour and minute lists.
func (q *queryFlags) resolve(svc *service.WageService) (domain.WageQuery, error) {
	if q.isForm() {
		age := ""
		if q.age != 0 {
			age = strconv.Itoa(q.age)
		}
		return svc.ResolveForm(domain.WageForm{Role: q.role, Age: age, Hours: q.hours, Minutes: q.minutes})
	}

	role, _ := domain.ParseRole(q.role)
	return svc.ResolveShifts(role, q.age, q.shifts)
}

// earningsByAge is resolve without an age, feeding the chart series.
func (q *queryFlags) earningsByAge(ctx context.Context, svc *service.WageService) (domain.Role, []domain.AgeEarning, error) {
	role, _ := domain.ParseRole(q.role)
	if q.isForm() {
		query, formErrs := wage.QueryFromForm(domain.WageForm{Role: q.role, Hours: q.hours, Minutes: q.minutes})
		var errs wage.ValidationErrors
		for _, fe := range formErrs {
			if fe.Field != "age" {
				errs = append(errs, fe)
			}
		}
		if len(errs) > 0 {
			return role, nil, errs
		}
		series, err := svc.EarningsByAge(ctx, role, query.Shifts)
		return role, series, err
	}

	shifts, positions, parseErrs := wage.ParseShifts(q.shifts)
	series, err := svc.EarningsByAge(ctx, role, shifts)
	if len(parseErrs) == 0 {
		return role, series, err
	}
	valErrs, ok := wage.AsValidationErrors(err)
	if err != nil && !ok {
		return role, nil, err
	}
	return role, nil, wage.MergeShiftErrors(parseErrs, valErrs, positions)
}

// fail prints validation errors one field per line and marks them as
// reported. Other errors are returned unchanged.
func (c *cli) fail(err error) error {
	verrs, ok := wage.AsValidationErrors(err)
	if !ok {
		return err
	}

	p := c.palette()
	for _, fe := range verrs {
		fmt.Fprintln(c.errOut, p.Error.Render(fe.Error()))
	}
	return &exitError{code: 1, err: err, reported: true}
}

func (c *cli) palette() palette {
	return newPalette(c.out, c.dark)
}

func (c *cli) writeJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
