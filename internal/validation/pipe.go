// Package validation binds untrusted request input onto typed structs. A Pipe
// decodes with mapstructure (json tag names, weak typing for implicit
// conversion), filters undeclared keys and validates the result with
// go-playground/validator struct tags.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidTarget is returned when the destination is not a pointer to a struct.
var ErrInvalidTarget = errors.New("validation target must be a non-nil pointer to a struct")

// Options mirrors the knobs of the global validation stage.
type Options struct {
	// Transform binds into the declared types and enables conversions.
	Transform bool
	// Whitelist strips keys that the target struct does not declare.
	Whitelist bool
	// ForbidNonWhitelisted rejects undeclared keys instead of stripping them.
	// It only takes effect together with Whitelist.
	ForbidNonWhitelisted bool
	// ImplicitConversion converts primitive values to the declared field kind
	// (for example "42" to an int field). Requires Transform.
	ImplicitConversion bool
}

// Error carries every problem found while binding a single input.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Pipe validates and transforms request input.
type Pipe struct {
	opts     Options
	validate *validator.Validate
}

// New constructs a Pipe with its own validator instance.
func New(opts Options) (*Pipe, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	return &Pipe{opts: opts, validate: v}, nil
}

// Options returns the options the pipe was built with.
func (p *Pipe) Options() Options {
	return p.opts
}

// DecodeJSON binds a JSON object read from body into dst. An empty body binds
// as an empty object.
func (p *Pipe) DecodeJSON(body io.Reader, dst any) error {
	raw := map[string]any{}
	if body != nil {
		dec := json.NewDecoder(body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return &Error{Messages: []string{"request body must be a JSON object"}}
		}
	}
	return p.bind(raw, dst)
}

// DecodeQuery binds URL query values into dst. Repeated keys bind as lists.
func (p *Pipe) DecodeQuery(values url.Values, dst any) error {
	raw := make(map[string]any, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			raw[key] = vals[0]
		default:
			items := make([]any, len(vals))
			for i, v := range vals {
				items[i] = v
			}
			raw[key] = items
		}
	}
	return p.bind(raw, dst)
}

func (p *Pipe) bind(raw map[string]any, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	convert := p.opts.Transform && p.opts.ImplicitConversion

	var md mapstructure.Metadata
	cfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: convert,
		Metadata:         &md,
		Result:           dst,
		MatchName: func(mapKey, fieldName string) bool {
			return mapKey == fieldName
		},
	}
	if convert {
		cfg.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		)
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	decodeErr := dec.Decode(raw)

	if p.opts.Whitelist && p.opts.ForbidNonWhitelisted && len(md.Unused) > 0 {
		slices.Sort(md.Unused)
		messages := make([]string, len(md.Unused))
		for i, key := range md.Unused {
			messages[i] = fmt.Sprintf("property %s should not exist", key)
		}
		return &Error{Messages: messages}
	}
	if decodeErr != nil {
		return &Error{Messages: decodeMessages(decodeErr)}
	}

	if err := p.validate.Struct(dst); err != nil {
		return &Error{Messages: Messages(err)}
	}
	return nil
}

// decodeMessages flattens a mapstructure error into one message per field.
func decodeMessages(err error) []string {
	var messages []string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "* "))
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		messages = append(messages, line)
	}
	if len(messages) == 0 {
		return []string{err.Error()}
	}
	return messages
}
