package modules

import "strings"

// parseOptions scans src's leading "# pragma: key value" comment lines
// (before the first declaration) into an Options bag. Every key lands in
// Values; only "nocache" is also recognized by name (it sets NoCache).
func parseOptions(src string) Options {
	opt := Options{Values: map[string]string{}}
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
		if !strings.HasPrefix(body, "pragma:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(body, "pragma:"))
		if len(fields) == 0 {
			continue
		}
		key := fields[0]
		val := ""
		if len(fields) > 1 {
			val = strings.Join(fields[1:], " ")
		}
		opt.Values[key] = val
		if key == "nocache" {
			opt.NoCache = true
		}
	}
	return opt
}
