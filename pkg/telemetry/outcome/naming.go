package outcome

import (
	"fmt"
	"sort"
	"strings"
)

// StatusTag is the derived tag carrying the outcome's status code.
const StatusTag = "http_status_code"

// MetricName builds a hierarchical metric name from the deployment
// prefix, the fixed subsystem tag, a metric family, the numeric status
// code, and the sorted caller-supplied tag values.
//
// Example: resthost_rest_request_count_total_429_external
func MetricName(prefix, family string, status int, tagValues []string) string {
	parts := []string{sanitize(prefix), "rest", family, fmt.Sprintf("%d", status)}
	for _, v := range tagValues {
		parts = append(parts, sanitize(v))
	}
	return strings.Join(parts, "_")
}

// sensorKey canonicalizes a tag set into a stable identity: sorted
// key=value pairs. Two maps with the same entries always produce the
// same key regardless of insertion or iteration order.
func sensorKey(tags map[string]string) string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "|")
}

// sortedValues returns tag values ordered by their keys, excluding the
// derived status tag, for use as a metric name suffix.
func sortedValues(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		if k == StatusTag {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, tags[k])
	}
	return values
}

// sanitize maps arbitrary tag values into the metric name alphabet.
func sanitize(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
