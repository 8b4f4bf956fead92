// Package validation checks the external compiler invocations pagesmith
// runs and the origins allowed to open a live-reload socket.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
)

// Allowlist is a set of executable base names.
type Allowlist map[string]bool

// Compilers is the default allowlist for stylesheet and script compilers.
var Compilers = Allowlist{
	"sass": true,
	"tsc":  true,
	"npx":  true,
}

// Names returns the allowed executables, sorted.
func (a Allowlist) Names() []string {
	names := make([]string, 0, len(a))
	for name, ok := range a {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// shellMeta lists characters that never appear in a compiler command or
// argument taken from configuration.
const shellMeta = ";&|$`()<>\\\"'"

// binDirs are the only directories an absolute compiler path may name.
var binDirs = []string{"/usr/bin/", "/bin/", "/usr/local/bin/"}

// ValidateCompiler checks a configured compiler command and its fixed
// arguments. The {src} and {dst} paths substituted at run time are not
// checked here.
func ValidateCompiler(command string, args []string, allowed Allowlist) error {
	if command == "" {
		return fmt.Errorf("no compiler command configured")
	}
	if i := strings.IndexAny(command, shellMeta); i >= 0 {
		return fmt.Errorf("compiler %q contains shell metacharacter %q", command, command[i])
	}
	if !allowed[filepath.Base(command)] {
		return fmt.Errorf("compiler %q is not allowed (allowed: %s)", command, strings.Join(allowed.Names(), ", "))
	}
	if filepath.IsAbs(command) && !inBinDir(command) {
		return fmt.Errorf("compiler %q must be installed in one of %s", command, strings.Join(binDirs, ", "))
	}

	for i, arg := range args {
		if err := validateArgument(arg); err != nil {
			return fmt.Errorf("argument %d (%q) of %s: %w", i+1, arg, command, err)
		}
	}
	return nil
}

func validateArgument(arg string) error {
	if i := strings.IndexAny(arg, shellMeta); i >= 0 {
		return fmt.Errorf("shell metacharacter %q", arg[i])
	}
	if strings.Contains(arg, "..") {
		return fmt.Errorf("parent directory reference")
	}
	if filepath.IsAbs(arg) {
		return fmt.Errorf("absolute path")
	}
	return nil
}

func inBinDir(command string) bool {
	for _, dir := range binDirs {
		if strings.HasPrefix(command, dir) {
			return true
		}
	}
	return false
}

// ValidateOrigin accepts an http or https Origin header whose full value
// or host:port appears in allowed.
func ValidateOrigin(origin string, allowed []string) error {
	if origin == "" {
		return fmt.Errorf("missing Origin header")
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return fmt.Errorf("malformed origin %q", origin)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin %q: scheme %q cannot open a live-reload socket", origin, u.Scheme)
	}

	for _, a := range allowed {
		if a == origin || a == u.Host {
			return nil
		}
	}
	return fmt.Errorf("origin %q is not allowed", origin)
}
