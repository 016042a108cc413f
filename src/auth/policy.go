package auth

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"git.flipper.school/flipper/flipper/src/config"
	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/oops"
	"github.com/go-playground/validator/v10"
)

// Policy checks new accounts against a config.RegistrationPolicy.
type Policy struct {
	cfg      config.RegistrationPolicy
	validate *validator.Validate
	messages map[string]policyMessage
}

type policyMessage struct {
	order int
	text  string
}

type registration struct {
	Name     string `validate:"name_min,name_max"`
	Username string `validate:"username_min,username_max,username_chars"`
	Password string `validate:"password_min,password_max,password_numeral,password_upper,password_lower"`
}

func NewPolicy(cfg config.RegistrationPolicy) (*Policy, error) {
	var compiled [4]*regexp.Regexp
	for i, expr := range []string{cfg.UsernameValid, cfg.PasswordHasNumeral, cfg.PasswordHasUpper, cfg.PasswordHasLower} {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, oops.New(err, "invalid registration policy pattern %q", expr)
		}
		compiled[i] = re
	}
	usernameValid, hasNumeral, hasUpper, hasLower := compiled[0], compiled[1], compiled[2], compiled[3]

	v := validator.New()
	minLen := func(n int) validator.Func {
		return func(fl validator.FieldLevel) bool { return utf8.RuneCountInString(fl.Field().String()) >= n }
	}
	maxLen := func(n int) validator.Func {
		return func(fl validator.FieldLevel) bool { return utf8.RuneCountInString(fl.Field().String()) <= n }
	}
	matches := func(re *regexp.Regexp) validator.Func {
		return func(fl validator.FieldLevel) bool { return re.MatchString(fl.Field().String()) }
	}

	validations := map[string]validator.Func{
		"name_min":         minLen(cfg.NameMinLength),
		"name_max":         maxLen(cfg.NameMaxLength),
		"username_min":     minLen(cfg.UsernameMinLength),
		"username_max":     maxLen(cfg.UsernameMaxLength),
		"username_chars":   matches(usernameValid),
		"password_min":     minLen(cfg.PasswordMinLength),
		"password_max":     maxLen(cfg.PasswordMaxLength),
		"password_numeral": matches(hasNumeral),
		"password_upper":   matches(hasUpper),
		"password_lower":   matches(hasLower),
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, oops.New(err, "failed to register %s", tag)
		}
	}
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(registration)
		if r.Username == r.Password {
			sl.ReportError(r.Password, "Password", "Password", "password_differs", "")
		}
	}, registration{})

	return &Policy{
		cfg:      cfg,
		validate: v,
		messages: messagesFor(cfg),
	}, nil
}

// Field errors come back field by field and struct-level errors last, so the
// order here decides which problem is reported first.
func messagesFor(cfg config.RegistrationPolicy) map[string]policyMessage {
	texts := []struct{ tag, text string }{
		{"name_min", fmt.Sprintf("Name must contain at least %d characters.", cfg.NameMinLength)},
		{"name_max", fmt.Sprintf("Name must contain at most %d characters.", cfg.NameMaxLength)},
		{"username_min", fmt.Sprintf("Username must contain at least %d characters.", cfg.UsernameMinLength)},
		{"username_max", fmt.Sprintf("Username must contain at most %d characters.", cfg.UsernameMaxLength)},
		{"username_chars", "Username contains invalid characters. Please use alphanumeric characters and underscores."},
		{"password_differs", "Password and email must be different."},
		{"password_min", fmt.Sprintf("Password must contain at least %d characters.", cfg.PasswordMinLength)},
		{"password_max", fmt.Sprintf("Password must contain at most %d characters.", cfg.PasswordMaxLength)},
		{"password_numeral", "Password must contain at least one (1) Arabic numeral (0-9)."},
		{"password_upper", "Password must contain at least one (1) uppercase English alphabet character (A-Z)."},
		{"password_lower", "Password must contain at least one (1) lowercase English alphabet character (a-z)."},
	}
	res := make(map[string]policyMessage, len(texts))
	for i, t := range texts {
		res[t.tag] = policyMessage{order: i, text: t.text}
	}
	return res
}

// Check returns a fail.Invalid error describing the first rule the
// credentials break, or nil.
func (p *Policy) Check(name, username, password string) error {
	err := p.validate.Struct(registration{Name: name, Username: username, Password: password})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.New(err, "failed to validate registration")
	}

	best := policyMessage{order: -1}
	for _, fe := range verrs {
		msg, ok := p.messages[fe.Tag()]
		if ok && (best.order < 0 || msg.order < best.order) {
			best = msg
		}
	}
	if best.order < 0 {
		return oops.New(err, "unexpected registration validation error")
	}
	return fail.Invalidf("%s", best.text)
}
