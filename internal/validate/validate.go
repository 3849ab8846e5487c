// SPDX-License-Identifier: MIT

// Package validate collects field-level configuration problems so that a
// single load reports all of them at once.
package validate

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// FieldError is one rejected configuration value.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidationError is returned by Validator.Err when at least one field failed.
type ValidationError struct {
	fields []FieldError
}

// Errors returns the failed fields in the order they were checked.
func (e ValidationError) Errors() []FieldError { return slices.Clone(e.fields) }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.fields))
	for i, f := range e.fields {
		msgs[i] = f.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validator accumulates FieldErrors. The zero value is ready to use.
type Validator struct {
	fields []FieldError
}

func New() *Validator { return &Validator{} }

// AddError records a failure for field.
func (v *Validator) AddError(field, reason string, value any) {
	v.fields = append(v.fields, FieldError{Field: field, Value: value, Reason: reason})
}

func (v *Validator) IsValid() bool { return len(v.fields) == 0 }

// Errors returns the failures recorded so far.
func (v *Validator) Errors() []FieldError { return v.fields }

// Err returns nil or a ValidationError snapshot of the recorded failures.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{fields: slices.Clone(v.fields)}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "must not be empty", value)
	}
}

// NonNegative rejects n < 0.
func (v *Validator) NonNegative(field string, n int) {
	if n < 0 {
		v.AddError(field, fmt.Sprintf("must not be negative, got %d", n), n)
	}
}

// OneOf rejects values outside allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, "|"), value), value)
	}
}

// Unique rejects repeated values in ids.
func (v *Validator) Unique(field string, ids []int) {
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			v.AddError(field, fmt.Sprintf("duplicate value %d", id), ids)
			return
		}
		seen[id] = true
	}
}

// ListenAddr accepts host:port where host is empty, localhost or an IP
// literal and port is 0..65535.
func (v *Validator) ListenAddr(field, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, err.Error(), addr)
		return
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		v.AddError(field, fmt.Sprintf("host %q is neither an IP nor localhost", host), addr)
		return
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		v.AddError(field, fmt.Sprintf("bad port %q", port), addr)
	}
}

// Directory checks that path names a directory. With create set, a missing
// directory is created (0750) instead of being reported.
func (v *Validator) Directory(field, path string, create bool) {
	if path == "" {
		v.AddError(field, "must not be empty", path)
		return
	}
	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		v.AddError(field, "must not contain '..'", path)
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, err.Error(), path)
		return
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err) && create:
		if err := os.MkdirAll(abs, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create: %v", err), path)
		}
	case os.IsNotExist(err):
		v.AddError(field, "does not exist", path)
	case err != nil:
		v.AddError(field, err.Error(), path)
	case !info.IsDir():
		v.AddError(field, "not a directory", path)
	}
}

// Scheme accepts a bare RFC 3986 scheme name such as "rtsp" or "svn+ssh".
func (v *Validator) Scheme(field, scheme string) {
	if scheme == "" {
		v.AddError(field, "must not be empty", scheme)
		return
	}
	for i, r := range scheme {
		letter := ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
		if letter || (i > 0 && (('0' <= r && r <= '9') || r == '+' || r == '-' || r == '.')) {
			continue
		}
		v.AddError(field, fmt.Sprintf("invalid scheme %q", scheme), scheme)
		return
	}
}

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

// LogLevel accepts the zerolog level names ummsd can be configured with.
func (v *Validator) LogLevel(field, level string) {
	if !slices.Contains(logLevels, strings.ToLower(level)) {
		v.AddError(field, fmt.Sprintf("unknown log level %q (want %s)", level, strings.Join(logLevels, ", ")), level)
	}
}
