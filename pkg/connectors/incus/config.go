package incus

import (
	"fmt"
	"strings"
)

// Shells accepted for the in-instance interpreter.
var validShells = map[string]bool{
	"ash":  true,
	"bash": true,
	"dash": true,
	"posh": true,
	"sh":   true,
	"zsh":  true,
}

// Config holds the settings for an instance connector.
type Config struct {
	// Binary is the hypervisor CLI to invoke, "incus" by default. The
	// lxc front-end is the same connector with this set to "lxc"; the
	// behavior is otherwise identical.
	Binary string

	// Shell is the POSIX-compatible interpreter used to run commands
	// inside the instance. Defaults to "sh".
	Shell string

	// Target is the bound instance as "[<remote>:]<instance>". It may be
	// empty for discovery-only use; Execute, Upload and Download require
	// it.
	Target string
}

// DefaultConfig creates a connector configuration for the given target
// with default settings.
func DefaultConfig(target string) *Config {
	return &Config{
		Binary: "incus",
		Shell:  "sh",
		Target: target,
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	if strings.ContainsAny(c.Binary, " \t/") {
		return fmt.Errorf("binary must be a bare command name, got %q", c.Binary)
	}
	if !validShells[c.Shell] {
		return fmt.Errorf("unsupported shell %q", c.Shell)
	}
	return nil
}

// SplitTarget parses a "[<remote>:]<instance>" target into its remote and
// instance parts, splitting on the last colon. A missing remote part
// yields an empty remote.
func SplitTarget(target string) (remote, instance string) {
	if i := strings.LastIndex(target, ":"); i >= 0 {
		return target[:i], target[i+1:]
	}
	return "", target
}

// JoinTarget is the inverse of SplitTarget: joining a non-empty remote
// and instance with the delimiter reproduces the original target.
func JoinTarget(remote, instance string) string {
	if remote == "" {
		return instance
	}
	return remote + ":" + instance
}
