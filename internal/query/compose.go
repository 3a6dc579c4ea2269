package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
)

// Statement is an InfluxQL command with its bound parameters. User supplied values never
// appear in Command.
type Statement struct {
	Command string
	Params  map[string]interface{}
}

// Compose renders spec as a single InfluxQL SELECT over [start, end).
func Compose(spec Spec) (Statement, error) {
	if err := spec.Validate(); err != nil {
		return Statement{}, err
	}

	params := map[string]interface{}{
		"start": client.TimeValue(spec.TimeRange.Start.UTC()),
		"end":   client.TimeValue(spec.TimeRange.End.UTC()),
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selection(spec))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(spec.Measurement))
	b.WriteString(" WHERE time >= $start AND time < $end")

	tags := make([]string, 0, len(spec.TagFilters))
	for tag := range spec.TagFilters {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for i, tag := range tags {
		name := fmt.Sprintf("tag_%d", i)
		fmt.Fprintf(&b, " AND %s = $%s", quoteIdent(tag), name)
		params[name] = client.StringValue(spec.TagFilters[tag])
	}

	groups := make([]string, 0, len(spec.GroupBy)+1)
	if spec.Interval > 0 {
		groups = append(groups, "time("+formatInterval(spec.Interval)+")")
	}
	for _, tag := range spec.GroupBy {
		groups = append(groups, quoteIdent(tag))
	}
	if len(groups) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groups, ", "))
	}
	if spec.Interval > 0 {
		b.WriteString(" fill(none)")
	}
	b.WriteString(" ORDER BY time ASC")

	return Statement{Command: b.String(), Params: params}, nil
}

func selection(spec Spec) string {
	switch {
	case spec.Aggregation.IsAggregate() && spec.Field != "":
		field := quoteIdent(spec.Field)
		return fmt.Sprintf("%s(%s) AS %s", spec.Aggregation, field, field)
	case spec.Aggregation.IsAggregate():
		// Columns come back as <aggregation>_<field>
		return fmt.Sprintf("%s(*)", spec.Aggregation)
	case spec.Field != "":
		return quoteIdent(spec.Field) + ", *::tag"
	default:
		return "*::field, *::tag"
	}
}

var identEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quoteIdent(ident string) string {
	return `"` + identEscaper.Replace(ident) + `"`
}

func formatInterval(d time.Duration) string {
	units := []struct {
		size   time.Duration
		suffix string
	}{
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
		{time.Millisecond, "ms"},
		{time.Microsecond, "u"},
	}
	for _, unit := range units {
		if d%unit.size == 0 {
			return fmt.Sprintf("%d%s", d/unit.size, unit.suffix)
		}
	}
	return fmt.Sprintf("%du", d/time.Microsecond)
}
