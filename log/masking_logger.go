/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/ssgreg/logf"
)

// SecretMask replaces every secret occurrence in masked output.
const SecretMask = "***"

// StringMasker masks secrets in strings.
type StringMasker interface {
	Mask(s string) string
}

// SecretMasker replaces known secret values with SecretMask.
// Matching is done with a single Aho-Corasick pass, so the cost does not grow with the number of secrets
// for strings that contain none of them (the common case).
type SecretMasker struct {
	secrets []string
	matcher *ahocorasick.Matcher
}

// NewSecretMasker creates a masker for the given secret values. Empty values are skipped.
func NewSecretMasker(secrets []string) *SecretMasker {
	nonEmpty := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return &SecretMasker{secrets: nonEmpty, matcher: ahocorasick.NewStringMatcher(nonEmpty)}
}

// Mask returns s with all secret occurrences replaced.
func (m *SecretMasker) Mask(s string) string {
	if len(m.secrets) == 0 || s == "" {
		return s
	}
	hits := m.matcher.Match([]byte(s))
	for _, idx := range hits {
		s = strings.ReplaceAll(s, m.secrets[idx], SecretMask)
	}
	return s
}

// MaskingLogger masks secrets in messages and string, bytes and error fields.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

// NewMaskingLogger wraps l so that every message and field passes through masker.
func NewMaskingLogger(l FieldLogger, masker StringMasker) FieldLogger {
	return MaskingLogger{l, masker}
}

// With returns a new logger with the given additional fields.
func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

// Debug logs message at "debug" level.
func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

// Info logs message at "info" level.
func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

// Warn logs message at "warn" level.
func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

// Error logs message at "error" level.
func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

// Debugf logs a formatted message at "debug" level.
func (l MaskingLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at "info" level.
func (l MaskingLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at "warn" level.
func (l MaskingLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at "error" level.
func (l MaskingLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// AtLevel calls fn with a masking LogFunc if logging at the level is enabled.
func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

// WithLevel returns a new logger with an additional level check.
func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

func (l MaskingLogger) maskFields(fields []Field) []Field {
	var masked []Field
	replace := func(i int, f Field) {
		if masked == nil {
			masked = make([]Field, len(fields))
			copy(masked, fields)
		}
		masked[i] = f
	}
	for i, field := range fields {
		switch field.Type {
		case logf.FieldTypeBytesToString, logf.FieldTypeBytes, logf.FieldTypeRawBytes:
			s := string(field.Bytes)
			if m := l.masker.Mask(s); m != s {
				if field.Type == logf.FieldTypeBytesToString {
					replace(i, String(field.Key, m))
				} else {
					replace(i, logf.ConstBytes(field.Key, []byte(m)))
				}
			}
		case logf.FieldTypeError:
			if err, ok := field.Any.(error); ok && err != nil {
				s := err.Error()
				if m := l.masker.Mask(s); m != s {
					replace(i, NamedError(field.Key, errors.New(m)))
				}
			}
		}
	}
	if masked == nil {
		return fields
	}
	return masked
}
