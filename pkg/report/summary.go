package report

// Counter spellings accepted in stats blocks, in lookup order.
var (
	totalKeys   = []string{"tests", "total", "totalTests"}
	passedKeys  = []string{"passes", "passed", "passing", "totalPassed"}
	failedKeys  = []string{"failures", "failed", "failing", "totalFailed"}
	pendingKeys = []string{"pending", "skipped", "totalPending", "totalSkipped"}
)

// Sniff reports whether doc plausibly is a results report: an object with a
// "runs" list, a "stats" object holding a known counter, a "tests" list or a
// "results" list.
func Sniff(doc any) bool {
	root, ok := asMap(doc)
	if !ok {
		return false
	}
	if _, ok := asList(root["runs"]); ok {
		return true
	}
	if stats, ok := asMap(root["stats"]); ok && hasCounter(stats) {
		return true
	}
	if _, ok := asList(root["tests"]); ok {
		return true
	}
	if _, ok := asList(root["results"]); ok {
		return true
	}
	return false
}

func hasCounter(stats map[string]any) bool {
	for _, keys := range [][]string{totalKeys, passedKeys, failedKeys, pendingKeys} {
		for _, k := range keys {
			if _, ok := stats[k]; ok {
				return true
			}
		}
	}
	return false
}

// Summarize consumes Outcomes(doc, filter) into a Summary. When the walk finds
// no tests, the counters of every stats block are summed instead.
func Summarize(doc any, filter *Filter) Summary {
	var s Summary
	for o := range Outcomes(doc, filter) {
		s.add(o)
	}
	if s.Total > 0 {
		return s
	}
	if agg, ok := aggregateStats(doc, filter); ok {
		return agg
	}
	return s
}

// aggregateStats sums the top-level and per-run stats blocks. With a filter
// only the stats of matching runs count, since top-level totals cannot be
// attributed to individual specs.
func aggregateStats(doc any, filter *Filter) (Summary, bool) {
	root, ok := asMap(doc)
	if !ok {
		return Summary{}, false
	}

	var blocks []map[string]any
	if filter == nil {
		if stats, ok := asMap(root["stats"]); ok {
			blocks = append(blocks, stats)
		}
	}
	if runs, ok := asList(root["runs"]); ok {
		for _, r := range runs {
			run, ok := asMap(r)
			if !ok || !filter.Match(SpecName(run)) {
				continue
			}
			if stats, ok := asMap(run["stats"]); ok {
				blocks = append(blocks, stats)
			}
		}
	}

	sum := Summary{FromStats: true, Outcomes: []Outcome{}}
	found := false
	for _, b := range blocks {
		if !hasCounter(b) {
			continue
		}
		found = true
		passed, _ := firstInt(b, passedKeys...)
		failed, _ := firstInt(b, failedKeys...)
		pending, _ := firstInt(b, pendingKeys...)
		total, ok := firstInt(b, totalKeys...)
		if !ok {
			total = passed + failed + pending
		}
		sum.Passed += passed
		sum.Failed += failed
		sum.Pending += pending
		sum.Total += total
	}
	return sum, found
}
