package step

import (
	"github.com/oklog/ulid/v2"
)

// Type discriminates step variants
type Type string

const (
	TypeText            Type = "text"
	TypeEmail           Type = "email"
	TypePhone           Type = "phone"
	TypeAddress         Type = "address"
	TypeWebsite         Type = "website"
	TypeNumber          Type = "number"
	TypeDate            Type = "date"
	TypeFile            Type = "file"
	TypeMultipleChoice  Type = "multiple_choice"
	TypePayment         Type = "payment"
	TypeExternalBrowser Type = "external_browser"
	TypeEndScreen       Type = "end_screen"
)

// PaymentKind selects how a payment step derives its amount
type PaymentKind string

const (
	PaymentFixed     PaymentKind = "fixed"
	PaymentSelection PaymentKind = "selection"
)

// Option represents one choice in a multiple_choice step
type Option struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// Step is one unit of a workflow: a prompt plus its input constraints.
// Variant fields beyond ID/Type/Question only apply to the matching Type.
type Step struct {
	ID       string `json:"id"`
	Type     Type   `json:"stepType"`
	Question string `json:"question,omitempty"`

	// text / email / phone / address / website / number
	Placeholder string `json:"placeholder,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
	MinLength   *int   `json:"minLength,omitempty"`
	MaxLength   *int   `json:"maxLength,omitempty"`
	Required    bool   `json:"required,omitempty"`

	// number
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// date (ISO-8601 date strings)
	MinDate string `json:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty"`

	// file
	AcceptedTypes []string `json:"acceptedTypes,omitempty"`
	MaxSize       int64    `json:"maxSize,omitempty"`

	// multiple_choice
	Options  []Option `json:"options,omitempty"`
	Multiple bool     `json:"multiple,omitempty"`

	// payment
	PaymentType  PaymentKind `json:"paymentType,omitempty"`
	Amount       float64     `json:"amount,omitempty"`
	Currency     string      `json:"currency,omitempty"`
	LinkedStepID string      `json:"linkedStepId,omitempty"`
	Description  string      `json:"description,omitempty"`

	// external_browser
	URL        string `json:"url,omitempty"`
	ButtonText string `json:"buttonText,omitempty"`

	// end_screen
	Title         string `json:"title,omitempty"`
	Message       string `json:"message,omitempty"`
	ShowConfetti  bool   `json:"showConfetti,omitempty"`
	AnimationType string `json:"animationType,omitempty"`
}

// NewID generates a step identifier. ULIDs are unique without a
// collision check, unlike timestamp+random concatenation.
func NewID() string {
	return ulid.Make().String()
}

// New returns a fully defaulted step of the given type with a fresh ID.
func New(t Type) Step {
	s := Step{
		ID:   NewID(),
		Type: t,
	}

	switch t {
	case TypeText:
		s.Question = "What would you like to tell us?"
		s.Placeholder = "Type your answer..."
	case TypeEmail:
		s.Question = "What is your email address?"
		s.Placeholder = "name@example.com"
		s.Required = true
	case TypePhone:
		s.Question = "What is your phone number?"
		s.Placeholder = "+1 555 000 0000"
	case TypeAddress:
		s.Question = "What is your address?"
		s.Placeholder = "Street, city, postal code"
	case TypeWebsite:
		s.Question = "What is your website?"
		s.Placeholder = "https://"
	case TypeNumber:
		s.Question = "Enter a number"
	case TypeDate:
		s.Question = "Pick a date"
	case TypeFile:
		s.Question = "Upload a file"
		s.AcceptedTypes = []string{"image/*", "application/pdf"}
		s.MaxSize = 10 * 1024 * 1024
	case TypeMultipleChoice:
		s.Question = "Choose an option"
		s.Options = []Option{{Title: "Option 1"}, {Title: "Option 2"}}
	case TypePayment:
		s.Question = "Complete your payment"
		s.PaymentType = PaymentFixed
		s.Currency = "usd"
	case TypeExternalBrowser:
		s.Question = "Continue on our site"
		s.ButtonText = "Open"
	case TypeEndScreen:
		s.Title = "Thank you!"
		s.Message = "We received your message and will get back to you soon."
		s.ShowConfetti = true
		s.AnimationType = "checkmark"
	}

	return s
}

// IsTerminal reports whether the step ends a workflow.
func (s Step) IsTerminal() bool {
	return s.Type == TypeEndScreen || s.Type == TypeExternalBrowser
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.MinLength != nil {
		v := *s.MinLength
		out.MinLength = &v
	}
	if s.MaxLength != nil {
		v := *s.MaxLength
		out.MaxLength = &v
	}
	if s.Min != nil {
		v := *s.Min
		out.Min = &v
	}
	if s.Max != nil {
		v := *s.Max
		out.Max = &v
	}
	if s.AcceptedTypes != nil {
		out.AcceptedTypes = append([]string(nil), s.AcceptedTypes...)
	}
	if s.Options != nil {
		out.Options = make([]Option, len(s.Options))
		for i, o := range s.Options {
			oc := o
			if o.Price != nil {
				p := *o.Price
				oc.Price = &p
			}
			out.Options[i] = oc
		}
	}
	return out
}

// CloneSteps deep-copies a step list.
func CloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}
