package trip

import (
	"fmt"
	"strconv"
	"strings"
)

// InvalidSummary is the text returned in place of a summary when the request
// is rejected.
const InvalidSummary = "Error: invalid parameters"

// Summary renders a human readable description of a computed trip.
func Summary(req Request, b Breakdown) string {
	h, m := b.HoursMinutes()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trip of %skm at %skm/h with a range of %skm:\n",
		num(req.DistanceKM), num(req.SpeedKMH), num(req.RangeKM))
	fmt.Fprintf(&sb, "- Driving time: %.2fh\n", b.DrivingHours)
	fmt.Fprintf(&sb, "- Recharge stops: %d\n", b.RechargeStops)
	fmt.Fprintf(&sb, "- Total recharge time: %.2fh\n", b.RechargeHours)
	fmt.Fprintf(&sb, "- Total time: %dh%dmin", h, m)
	return sb.String()
}

// Summarize computes the request and renders its summary, or InvalidSummary
// when validation fails.
func (c *Calculator) Summarize(req Request) (string, error) {
	b, err := c.Breakdown(req)
	if err != nil {
		return InvalidSummary, err
	}
	return Summary(req, b), nil
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
