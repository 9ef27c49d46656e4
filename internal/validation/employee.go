// Package validation checks employee input before it reaches a store.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/locvowork/employee_directory/internal/domain"
)

const (
	MsgFirstNameRequired  = "First name is required"
	MsgLastNameRequired   = "Last name is required"
	MsgEmailRequired      = "Email is required"
	MsgEmailInvalid       = "Please enter a valid email"
	MsgPhoneInvalid       = "Please enter a valid 10-digit phone number"
	MsgPositionRequired   = "Position is required"
	MsgDepartmentRequired = "Department is required"
	MsgSalaryInvalid      = "Salary must be a non-negative number"
	MsgHireDateInvalid    = "Hire date must be a valid date"
)

// Custom tags used on domain.EmployeeInput.
const (
	TagNotBlank      = "notblank"
	TagEmployeeEmail = "employee_email"
	TagPhone10       = "phone10"
	TagHireDate      = "hiredate"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// hireDateLayouts are tried in order.
var hireDateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// fieldMessages is the message of a failed rule per input field.
// Email distinguishes a missing address from a malformed one.
var fieldMessages = map[string]string{
	"FirstName":  MsgFirstNameRequired,
	"LastName":   MsgLastNameRequired,
	"Email":      MsgEmailRequired,
	"Phone":      MsgPhoneInvalid,
	"Position":   MsgPositionRequired,
	"Department": MsgDepartmentRequired,
	"Salary":     MsgSalaryInvalid,
	"HireDate":   MsgHireDateInvalid,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	rules := map[string]validator.Func{
		TagNotBlank: func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		TagEmployeeEmail: func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(strings.TrimSpace(fl.Field().String()))
		},
		TagPhone10: func(fl validator.FieldLevel) bool {
			return len(NormalizePhone(fl.Field().String())) == 10
		},
		TagHireDate: func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if strings.TrimSpace(s) == "" {
				return true
			}
			_, err := ParseHireDate(s)
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

// Validate returns one message per violated rule, in field order.
// With partial set only the fields present in the input are checked.
func Validate(in domain.EmployeeInput, partial bool) []string {
	var err error
	if partial {
		fields := presentFields(in)
		if len(fields) == 0 {
			return nil
		}
		err = validate.StructPartial(in, fields...)
	} else {
		err = validate.Struct(in)
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.StructField()]
		if !ok {
			msg = fe.Error()
		}
		if fe.StructField() == "Email" && fe.Tag() == TagEmployeeEmail {
			msg = MsgEmailInvalid
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// Check wraps the messages of Validate into a *domain.ValidationError.
func Check(in domain.EmployeeInput, partial bool) error {
	if msgs := Validate(in, partial); len(msgs) > 0 {
		return &domain.ValidationError{Messages: msgs}
	}
	return nil
}

// presentFields names the fields of in a partial update carries.
func presentFields(in domain.EmployeeInput) []string {
	var fields []string
	add := func(present bool, name string) {
		if present {
			fields = append(fields, name)
		}
	}
	add(in.FirstName != nil, "FirstName")
	add(in.LastName != nil, "LastName")
	add(in.Email != nil, "Email")
	add(in.Phone != nil, "Phone")
	add(in.Position != nil, "Position")
	add(in.Department != nil, "Department")
	add(in.Salary != nil, "Salary")
	add(in.HireDate != nil, "HireDate")
	return fields
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips every non-digit.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// ParseHireDate accepts an RFC 3339 timestamp or a YYYY-MM-DD date.
func ParseHireDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range hireDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
