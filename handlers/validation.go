package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("filled", filled)
	}
}

// jsonFieldName makes validator report fields by their wire name.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	}
	if name == "" {
		return f.Name
	}
	return name
}

// filled rejects blank strings. Unlike required it also applies to
// pointers, which is what optional update fields are.
func filled(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidationError collects messages per request field.
type ValidationError struct {
	Fields map[string][]string

	// custom overrides default messages, keyed "field.rule"
	custom map[string]string
}

// customMessages is implemented by requests that word some rules
// themselves.
type customMessages interface {
	messages() map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// addRule adds the custom message for field.rule when there is one and
// fallback otherwise.
func (e *ValidationError) addRule(field, rule, fallback string) {
	if msg, ok := e.custom[field+"."+rule]; ok {
		fallback = msg
	}
	e.Add(field, fallback)
}

func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Err returns nil when nothing was collected.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// bind decodes the request into req (JSON or form, by content type) and
// runs its binding rules. Decoding and rule failures are collected rather
// than returned so the caller can add its own checks.
func bind(c *gin.Context, req interface{}) *ValidationError {
	verr := newValidationError()
	if m, ok := req.(customMessages); ok {
		verr.custom = m.messages()
	}

	err := c.ShouldBind(req)
	if err == nil {
		return verr
	}

	var (
		typeErr *json.UnmarshalTypeError
		numErr  *strconv.NumError
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		// empty body: treat as no input
		collect(verr, binding.Validator.ValidateStruct(req))
	case errors.As(err, &typeErr):
		// the decoder keeps going after a type error, so the other
		// fields are populated and can still be checked
		verr.Add(typeErr.Field, typeMessage(typeErr.Field, typeErr.Type))
		collect(verr, binding.Validator.ValidateStruct(req))
	case errors.As(err, &numErr) && isForm(c):
		// form mapping stops at the first bad value, so every bad field
		// is reported and the rest are mapped again without them
		if err := rebindForm(verr, req, c.Request.PostForm); err != nil {
			collect(verr, err)
			break
		}
		collect(verr, binding.Validator.ValidateStruct(req))
	case errors.As(err, &tooBig):
		verr.Add("body", fmt.Sprintf("The request may not be greater than %d kilobytes.", tooBig.Limit/1024))
	default:
		collect(verr, err)
	}
	return verr
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == binding.MIMEPOSTForm || ct == binding.MIMEMultipartPOSTForm
}

// rebindForm adds a type message for every form value that does not parse
// into its field, clears those fields and maps the remaining values.
func rebindForm(verr *ValidationError, req interface{}, form url.Values) error {
	v := reflect.ValueOf(req).Elem()
	t := v.Type()

	clean := make(map[string][]string, len(form))
	for k, vals := range form {
		clean[k] = vals
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		vals, ok := form[name]
		if name == "" || name == "-" || !ok {
			continue
		}
		for _, val := range vals {
			if parsesAs(f.Type, val) {
				continue
			}
			verr.Add(name, typeMessage(name, f.Type))
			delete(clean, name)
			v.Field(i).Set(reflect.Zero(f.Type))
			break
		}
	}
	return binding.MapFormWithTag(req, clean, "form")
}

// parsesAs mirrors the scalar conversions of gin's form mapping, where an
// empty value means zero.
func parsesAs(t reflect.Type, val string) bool {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if val == "" {
		return true
	}
	var err error
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		_, err = strconv.ParseInt(val, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		_, err = strconv.ParseUint(val, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		_, err = strconv.ParseFloat(val, t.Bits())
	case reflect.Bool:
		_, err = strconv.ParseBool(val)
	}
	return err == nil
}

// elementIndex rewrites validator's "images[0]" to the "images.0" form
// clients see for array items.
var elementIndex = strings.NewReplacer("[", ".", "]", "")

func collect(verr *ValidationError, err error) {
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			field := elementIndex.Replace(fe.Field())
			if verr.Has(field) {
				continue
			}
			verr.addRule(field, ruleName(fe.Tag()), ruleMessage(fe))
		}
	case errors.As(err, &syntaxErr):
		verr.Add("body", "The request body must be valid JSON.")
	default:
		verr.Add("body", err.Error())
	}
}

// ruleName maps a binding tag to the rule name used for custom messages.
func ruleName(tag string) string {
	if tag == "filled" {
		return "required"
	}
	return tag
}

func ruleMessage(fe validator.FieldError) string {
	label := fieldLabel(elementIndex.Replace(fe.Field()))
	switch fe.Tag() {
	case "required", "filled":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", label, fe.Param())
	case "min", "gte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("The %s must be at least %s characters.", label, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("The %s must have at least %s items.", label, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", label, fe.Param())
	}
	return fmt.Sprintf("The %s is invalid.", label)
}

func typeMessage(field string, t reflect.Type) string {
	label := fieldLabel(field)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("The %s must be an integer.", label)
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("The %s must be a number.", label)
	case reflect.String:
		return fmt.Sprintf("The %s must be a string.", label)
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("The %s must be an array.", label)
	}
	return fmt.Sprintf("The %s is invalid.", label)
}

func fieldLabel(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// priceValue accepts a JSON number, a numeric string or a form value.
// Unparseable input is flagged instead of aborting the decode so the
// remaining fields still get validated.
type priceValue struct {
	decimal.Decimal
	invalid bool
}

func (p *priceValue) UnmarshalJSON(b []byte) error {
	if err := p.Decimal.UnmarshalJSON(b); err != nil {
		p.invalid = true
	}
	return nil
}

func (p *priceValue) UnmarshalParam(param string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(param))
	if err != nil {
		p.invalid = true
		return nil
	}
	p.Decimal = d
	return nil
}

// checkPrice applies the numeric and minimum rules to an optional price.
func checkPrice(verr *ValidationError, p *priceValue) {
	switch {
	case p == nil || verr.Has("price"):
	case p.invalid:
		verr.Add("price", "The price must be a number.")
	case p.Decimal.IsNegative():
		verr.Add("price", "The price must be at least 0.")
	}
}

// checkExists adds the "selected ... is invalid" rule for a foreign key.
func checkExists(verr *ValidationError, field string, id *uint, exists func(uint) (bool, error)) error {
	if id == nil || verr.Has(field) {
		return nil
	}
	ok, err := exists(*id)
	if err != nil {
		return err
	}
	if !ok {
		verr.addRule(field, "exists", fmt.Sprintf("The selected %s is invalid.", fieldLabel(field)))
	}
	return nil
}

// checkUnique adds the "has already been taken" rule.
func checkUnique(verr *ValidationError, field string, value *string, taken func(string) (bool, error)) error {
	if value == nil || verr.Has(field) {
		return nil
	}
	dup, err := taken(*value)
	if err != nil {
		return err
	}
	if dup {
		verr.addRule(field, "unique", fmt.Sprintf("The %s has already been taken.", fieldLabel(field)))
	}
	return nil
}

