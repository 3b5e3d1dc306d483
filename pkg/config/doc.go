// Package config loads the YAML configuration used by the monitor
// command. Durations are written as Go duration strings ("8s", "1m").
package config
