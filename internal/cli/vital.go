package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/caremem/internal/model"
	"github.com/rcliao/caremem/internal/normalize"
	"github.com/rcliao/caremem/internal/trend"
)

func init() {
	vitalCmd := &cobra.Command{
		Use:   "vital",
		Short: "Tracked vital and lab series",
	}

	trackCmd := &cobra.Command{
		Use:   "track [name] [value]",
		Short: "Record a reading, e.g. vital track creatinine 1.5 mg/dL",
		Args:  cobra.MinimumNArgs(2),
		Run:   runVitalTrack,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked series",
		Run:   runVitalList,
	}

	trendCmd := &cobra.Command{
		Use:   "trend [name]",
		Short: "Show the trend of a series against its baseline",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTrend,
	}

	vitalCmd.AddCommand(trackCmd, listCmd)
	RootCmd.AddCommand(vitalCmd, trendCmd)
}

func runVitalTrack(cmd *cobra.Command, args []string) {
	raw := strings.Join(args[1:], " ")
	v, unit, ok := model.ParseMeasurement(raw)
	if !ok {
		exitErr("vital track", fmt.Errorf("%q is not a numeric reading", raw))
	}

	ctx := cmd.Context()
	s := openMemory(ctx)
	s.mem.TrackReading(ctx, args[0], model.VitalReading{Value: v, Unit: unit, Raw: raw})
	s.close(ctx)

	a, _ := s.mem.Trend(args[0])
	printJSON(cmd, a)
}

func runVitalList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s := openMemory(ctx)
	defer s.close(ctx)

	type row struct {
		Name     string  `json:"name"`
		Label    string  `json:"label"`
		Unit     string  `json:"unit,omitempty"`
		Readings int     `json:"readings"`
		Dropped  int     `json:"dropped,omitempty"`
		Baseline float64 `json:"baseline"`
		Latest   float64 `json:"latest"`
	}
	rows := []row{}
	for _, name := range s.mem.VitalNames() {
		series, _ := s.mem.Vital(name)
		if len(series.Readings) == 0 {
			continue
		}
		base, _ := series.BaselineValue()
		rows = append(rows, row{
			Name:     name,
			Label:    normalize.Label(name),
			Unit:     series.Unit(),
			Readings: len(series.Readings),
			Dropped:  series.Dropped,
			Baseline: base,
			Latest:   series.Readings[len(series.Readings)-1].Value,
		})
	}
	printJSON(cmd, rows)
}

func runTrend(cmd *cobra.Command, args []string) {
	name := strings.Join(args, " ")

	ctx := cmd.Context()
	s := openMemory(ctx)
	defer s.close(ctx)

	a, ok := s.mem.Trend(name)
	if !ok {
		exitErr("trend", fmt.Errorf("no readings for %q", normalize.Normalize(name)))
	}

	out := struct {
		trend.Annotation
		Summary string `json:"summary"`
	}{a, trendSummary(a)}
	printJSON(cmd, out)
}

func trendSummary(a trend.Annotation) string {
	var b strings.Builder
	b.WriteString(normalize.Label(a.Name))
	b.WriteString(": ")
	b.WriteString(trend.FormatValue(a.Baseline))
	if a.Count > 1 {
		b.WriteString(" → ")
		b.WriteString(trend.FormatValue(a.Current))
		fmt.Fprintf(&b, " (%s from baseline)", trend.FormatPercent(a.Percent))
	}
	if a.Severity != trend.None {
		fmt.Fprintf(&b, " [%s]", a.Severity)
	}
	return b.String()
}
