package tools

import "strings"

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Description string
	Optional    bool
	Core        bool
	Available   bool
	Path        string
	Fetchable   bool
	Detail      string
}

// Check evaluates every requirement against the resolver. Tools that are
// missing but have a download configured are marked fetchable.
func Check(b *Bootstrapper, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		name := strings.ToLower(strings.TrimSpace(req.Name))
		status := Status{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
			Core:        IsCore(name),
		}
		if path, ok := b.resolver.Find(name); ok {
			status.Available = true
			status.Path = path
			results = append(results, status)
			continue
		}
		if b.Available(name) {
			status.Fetchable = true
			status.Detail = "downloaded on first use"
		} else if status.Core {
			status.Detail = "install " + ExecutableName(name) + " and add it to the tools dir or PATH"
		} else {
			status.Detail = "not found"
		}
		results = append(results, status)
	}
	return results
}
