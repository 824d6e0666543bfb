// Package validation turns raw request input into values that are safe to
// persist. Every exported function either returns a fully normalized value
// or an error wrapping ErrInvalid; callers never see a half-checked value.
package validation

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// ErrInvalid marks input that was missing, empty or malformed.
var ErrInvalid = errors.New("invalid input")

// maxSanitizePasses bounds how many layers of entity encoding are peeled
// off before the input is given up on.
const maxSanitizePasses = 8

var (
	validate = newValidator()
	policy   = bluemonday.StrictPolicy()
)

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// MessageInput is the body accepted when posting or editing a message.
type MessageInput struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=message private_message"`
}

type nameInput struct {
	Name string `json:"name" validate:"required"`
}

// Sanitize strips any markup from s, leaving plain text without
// surrounding whitespace. Entity-encoded markup is decoded and stripped
// again until the value stops changing, so Sanitize(Sanitize(s)) equals
// Sanitize(s). Input still changing after maxSanitizePasses yields "".
func Sanitize(s string) string {
	current := strings.TrimSpace(s)
	for range maxSanitizePasses {
		next := strings.TrimSpace(html.UnescapeString(policy.Sanitize(current)))
		if next == current {
			return current
		}
		current = next
	}
	return ""
}

// Name normalizes a participant name coming from a body field or the user
// header.
func Name(raw string) (string, error) {
	in, err := normalize(nameInput{Name: strings.TrimSpace(raw)}, func(in *nameInput) {
		in.Name = Sanitize(in.Name)
	})
	if err != nil {
		return "", err
	}
	return in.Name, nil
}

// Message normalizes a message body.
func Message(in MessageInput) (MessageInput, error) {
	in.To = strings.TrimSpace(in.To)
	in.Text = strings.TrimSpace(in.Text)
	in.Type = strings.TrimSpace(in.Type)
	return normalize(in, func(in *MessageInput) {
		in.To = Sanitize(in.To)
		in.Text = Sanitize(in.Text)
		in.Type = Sanitize(in.Type)
	})
}

// normalize checks the trimmed input, sanitizes it and checks it again.
// Input that only becomes invalid through sanitizing is rejected rather
// than silently altered.
func normalize[T any](in T, sanitize func(*T)) (T, error) {
	var zero T

	if err := validate.Struct(in); err != nil {
		return zero, invalid(err, "")
	}

	sanitize(&in)
	if err := validate.Struct(in); err != nil {
		return zero, invalid(err, " after removing markup")
	}
	return in, nil
}

// invalid wraps ErrInvalid with a message naming the offending fields,
// e.g. "invalid input: name is required".
func invalid(err error, suffix string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required"+suffix)
		case "oneof":
			problems = append(problems, fe.Field()+" must be one of "+strings.ReplaceAll(fe.Param(), " ", ", ")+suffix)
		default:
			problems = append(problems, fe.Field()+" is invalid"+suffix)
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}
