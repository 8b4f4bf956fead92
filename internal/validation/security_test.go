package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCompiler(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
		wantErr string
	}{
		{name: "sass", command: "sass", args: []string{"--no-source-map", "{src}", "{dst}"}},
		{name: "tsc", command: "tsc", args: []string{"--target", "es2015", "{src}", "--outFile", "{dst}"}},
		{name: "npx", command: "npx", args: []string{"sass", "./styles"}},
		{name: "absolute system binary", command: "/usr/local/bin/sass"},
		{name: "empty", command: "", wantErr: "no compiler command configured"},
		{name: "not allowed", command: "rm", wantErr: `compiler "rm" is not allowed (allowed: npx, sass, tsc)`},
		{name: "allowed name outside bin dirs", command: "/home/user/sass", wantErr: "must be installed in one of"},
		{name: "metacharacter in command", command: "sass;rm", wantErr: "shell metacharacter ';'"},
		{name: "shell operator argument", command: "sass", args: []string{"{src}", "&&"}, wantErr: `argument 2 ("&&") of sass: shell metacharacter '&'`},
		{name: "command substitution", command: "tsc", args: []string{"$(whoami)"}, wantErr: "shell metacharacter '$'"},
		{name: "backtick", command: "tsc", args: []string{"es2015`id`"}, wantErr: "shell metacharacter '`'"},
		{name: "traversal", command: "sass", args: []string{"--load-path=../../etc"}, wantErr: "parent directory reference"},
		{name: "absolute argument", command: "sass", args: []string{"/home/user/out.css"}, wantErr: "absolute path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCompiler(tt.command, tt.args, Compilers)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCompilerCustomAllowlist(t *testing.T) {
	allowed := Allowlist{"cp": true}

	assert.NoError(t, ValidateCompiler("cp", []string{"{src}", "{dst}"}, allowed))
	assert.Error(t, ValidateCompiler("sass", nil, allowed))
	assert.Error(t, ValidateCompiler("cp", nil, Compilers))
}

func TestAllowlistNames(t *testing.T) {
	assert.Equal(t, []string{"npx", "sass", "tsc"}, Compilers.Names())
	assert.Equal(t, []string{"b"}, Allowlist{"a": false, "b": true}.Names())
	assert.Empty(t, Allowlist{}.Names())
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"http://localhost:3000", "localhost:8080"}

	tests := []struct {
		name    string
		origin  string
		wantErr string
	}{
		{name: "full origin", origin: "http://localhost:3000"},
		{name: "host match", origin: "http://localhost:8080"},
		{name: "host match over https", origin: "https://localhost:8080"},
		{name: "empty", origin: "", wantErr: "missing Origin header"},
		{name: "foreign", origin: "http://malicious.com", wantErr: "is not allowed"},
		{name: "no host", origin: "not-a-url", wantErr: "malformed origin"},
		{name: "file scheme", origin: "file:///etc/passwd", wantErr: "malformed origin"},
		{name: "websocket scheme", origin: "ws://localhost:8080", wantErr: `scheme "ws"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrigin(tt.origin, allowed)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func BenchmarkValidateCompiler(b *testing.B) {
	args := []string{"--no-source-map", "{src}", "{dst}"}
	for i := 0; i < b.N; i++ {
		_ = ValidateCompiler("sass", args, Compilers)
	}
}
