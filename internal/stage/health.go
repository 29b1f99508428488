package stage

// Health reports whether a pipeline stage can currently run. The status
// command renders one row per stage from these records.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a stage as ready to process runs.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage as unable to run, with the blocking reason
// in Detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
