package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"formflow/internal/step"

	"github.com/go-playground/validator/v10"
)

// ValidationError marks a recoverable bad answer. The interpreter keeps
// the cursor on the same step so the visitor can try again.
type ValidationError struct {
	StepID string
	Msg    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid answer for step %s: %s", e.StepID, e.Msg)
}

func invalid(stepID, format string, args ...interface{}) error {
	return &ValidationError{StepID: stepID, Msg: fmt.Sprintf(format, args...)}
}

var validate = validator.New()

const dateLayout = "2006-01-02"

// coerce converts raw visitor input into the step's answer shape. File
// steps are handled by the interpreter directly since they need I/O.
func coerce(s step.Step, value interface{}) (interface{}, error) {
	switch s.Type {
	case step.TypeText:
		return coerceText(s, value)
	case step.TypeEmail:
		return coerceEmail(s, value)
	case step.TypePhone:
		return coercePhone(s, value)
	case step.TypeAddress, step.TypeWebsite:
		return coerceString(s, value)
	case step.TypeNumber:
		return coerceNumber(s, value)
	case step.TypeDate:
		return coerceDate(s, value)
	case step.TypeMultipleChoice:
		return coerceChoice(s, value)
	case step.TypePayment:
		return coercePayment(s, value)
	default:
		return nil, invalid(s.ID, "step type %s does not take an answer", s.Type)
	}
}

func asString(s step.Step, value interface{}) (string, error) {
	str, ok := value.(string)
	if !ok {
		return "", invalid(s.ID, "expected a text answer")
	}
	return strings.TrimSpace(str), nil
}

func coerceText(s step.Step, value interface{}) (interface{}, error) {
	str, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	// Length limits are in characters, not bytes
	length := utf8.RuneCountInString(str)
	if s.MinLength != nil && length < *s.MinLength {
		return nil, invalid(s.ID, "answer must be at least %d characters", *s.MinLength)
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		return nil, invalid(s.ID, "answer must be at most %d characters", *s.MaxLength)
	}
	return str, nil
}

func coerceString(s step.Step, value interface{}) (interface{}, error) {
	str, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	if s.Required && str == "" {
		return nil, invalid(s.ID, "an answer is required")
	}
	if s.Type == step.TypeWebsite && str != "" {
		candidate := str
		if !strings.Contains(candidate, "://") {
			candidate = "https://" + candidate
		}
		if err := validate.Var(candidate, "url"); err != nil {
			return nil, invalid(s.ID, "%q is not a valid website address", str)
		}
		return candidate, nil
	}
	return str, nil
}

func coerceEmail(s step.Step, value interface{}) (interface{}, error) {
	str, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	if str == "" {
		if s.Required {
			return nil, invalid(s.ID, "an email address is required")
		}
		return "", nil
	}
	if err := validate.Var(str, "email"); err != nil {
		return nil, invalid(s.ID, "%q is not a valid email address", str)
	}
	return str, nil
}

func coercePhone(s step.Step, value interface{}) (interface{}, error) {
	str, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	if str == "" {
		if s.Required {
			return nil, invalid(s.ID, "a phone number is required")
		}
		return "", nil
	}
	digits := 0
	for _, r := range str {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return nil, invalid(s.ID, "%q is not a valid phone number", str)
		}
	}
	if digits < 5 {
		return nil, invalid(s.ID, "%q is not a valid phone number", str)
	}
	return str, nil
}

func coerceNumber(s step.Step, value interface{}) (interface{}, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, invalid(s.ID, "%q is not a number", v)
		}
		n = parsed
	default:
		return nil, invalid(s.ID, "expected a numeric answer")
	}

	// NaN parses but is never a usable answer
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, invalid(s.ID, "answer is not a finite number")
	}
	if s.Min != nil && n < *s.Min {
		return nil, invalid(s.ID, "answer must be at least %v", *s.Min)
	}
	if s.Max != nil && n > *s.Max {
		return nil, invalid(s.ID, "answer must be at most %v", *s.Max)
	}
	return n, nil
}

func coerceDate(s step.Step, value interface{}) (interface{}, error) {
	str, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	d, err := time.Parse(dateLayout, str)
	if err != nil {
		return nil, invalid(s.ID, "%q is not a date (expected YYYY-MM-DD)", str)
	}
	if s.MinDate != "" {
		if min, err := time.Parse(dateLayout, s.MinDate); err == nil && d.Before(min) {
			return nil, invalid(s.ID, "date must not be before %s", s.MinDate)
		}
	}
	if s.MaxDate != "" {
		if max, err := time.Parse(dateLayout, s.MaxDate); err == nil && d.After(max) {
			return nil, invalid(s.ID, "date must not be after %s", s.MaxDate)
		}
	}
	return d.Format(dateLayout), nil
}

func findOption(s step.Step, title string) (step.Option, bool) {
	for _, o := range s.Options {
		if o.Title == title {
			return o, true
		}
	}
	return step.Option{}, false
}

func coerceChoice(s step.Step, value interface{}) (interface{}, error) {
	if s.Multiple {
		var titles []string
		switch v := value.(type) {
		case []string:
			titles = v
		case []interface{}:
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, invalid(s.ID, "expected option titles")
				}
				titles = append(titles, str)
			}
		case string:
			titles = []string{v}
		default:
			return nil, invalid(s.ID, "expected one or more option titles")
		}
		if len(titles) == 0 {
			return nil, invalid(s.ID, "select at least one option")
		}
		selected := make([]step.Option, 0, len(titles))
		for _, title := range titles {
			opt, ok := findOption(s, title)
			if !ok {
				return nil, invalid(s.ID, "%q is not one of the options", title)
			}
			selected = append(selected, opt)
		}
		return selected, nil
	}

	title, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	opt, ok := findOption(s, title)
	if !ok {
		return nil, invalid(s.ID, "%q is not one of the options", title)
	}
	return opt, nil
}

// PaymentRef is the confirmation reference a completed payment yields.
type PaymentRef struct {
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

func coercePayment(s step.Step, value interface{}) (interface{}, error) {
	ref, err := asString(s, value)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, invalid(s.ID, "payment confirmation reference is required")
	}
	return PaymentRef{
		Reference: ref,
		Amount:    s.Amount,
		Currency:  s.Currency,
	}, nil
}
