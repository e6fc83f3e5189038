package stage

import "strings"

// Health is the readiness of one stage: whether its dependencies are wired
// and which external tools it could not find.
type Health struct {
	Name    string
	Ready   bool
	Detail  string
	Missing []string
}

// Healthy reports a ready stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that cannot run, with the reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// WithMissing marks h not ready because tools are absent.
func (h Health) WithMissing(tools ...string) Health {
	if len(tools) == 0 {
		return h
	}
	h.Ready = false
	h.Missing = append(h.Missing, tools...)
	if h.Detail == "" {
		h.Detail = "missing " + strings.Join(h.Missing, ", ")
	}
	return h
}
