package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/O-B-I-s/TimeTracker/internal/viewmodel"
	"github.com/O-B-I-s/TimeTracker/internal/worktime"
)

// renderWeek 以表格输出当前周七天及合计
func renderWeek(w io.Writer, view *viewmodel.WeekView) {
	days := view.Days()
	fmt.Fprintf(w, "Week of %s\n\n", days[0].Format("Mon Jan 2, 2006"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tDATE\tSTART\tEND\tHOURS\tODOMETER\tKM")

	var totalHours float64
	var totalKm int
	for _, d := range days {
		writeDayRow(tw, view, d)
		totalHours += view.Hours(d)
		if km := view.Kilometres(d); km != nil {
			totalKm += *km
		}
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%.2f\t\t%d\n", totalHours, totalKm)
	_ = tw.Flush()

	if msg := view.Message(); msg.Text != "" {
		fmt.Fprintf(w, "\n%s\n", msg.Text)
	}
}

// renderDay 输出单日一行
func renderDay(w io.Writer, view *viewmodel.WeekView, day time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tDATE\tSTART\tEND\tHOURS\tODOMETER\tKM")
	writeDayRow(tw, view, day)
	_ = tw.Flush()
}

func writeDayRow(w io.Writer, view *viewmodel.WeekView, day time.Time) {
	slot := view.Slot(day)
	name := day.Format("Mon")
	date := day.Format(worktime.DateLayout)
	if slot.Entry == nil {
		fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\t-\n", name, date)
		return
	}
	e := slot.Entry
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
		name, date, e.StartTime, e.EndTime, view.Hours(day),
		odometer(e.OdometerStart, e.OdometerEnd), optInt(view.Kilometres(day)))
}

func odometer(start, end *int) string {
	if start == nil && end == nil {
		return "-"
	}
	return optInt(start) + "→" + optInt(end)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
