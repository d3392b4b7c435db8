package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"freelancer-feedback/internal/domain"
)

// Имена полей во входном JSON.
const (
	FieldEmail          = "email"
	FieldFreelancerName = "freelancerName"
	FieldProfileURL     = "profileUrl"
	FieldCommunication  = "communicationRating"
	FieldQuality        = "qualityRating"
	FieldValue          = "valueRating"
	FieldTimeliness     = "timelinessRating"
	FieldExpertise      = "expertiseRating"
	FieldOverall        = "overallRating"
	FieldComments       = "comments"
	fieldBody           = "body"
)

var fieldOrder = []string{
	FieldEmail, FieldFreelancerName, FieldProfileURL,
	FieldCommunication, FieldQuality, FieldValue, FieldTimeliness, FieldExpertise, FieldOverall,
	FieldComments,
}

var ratingLabels = map[string]string{
	FieldCommunication: "communication",
	FieldQuality:       "quality of work",
	FieldValue:         "value for money",
	FieldTimeliness:    "timeliness",
	FieldExpertise:     "expertise",
	FieldOverall:       "overall",
}

// candidate — непроверенный отзыв после приведения типов.
type candidate struct {
	Email               string   `json:"email" validate:"required,email,email_domain"`
	FreelancerName      string   `json:"freelancerName" validate:"required,min=1"`
	ProfileURL          string   `json:"profileUrl" validate:"required,abs_url"`
	CommunicationRating *float64 `json:"communicationRating" validate:"required,rating"`
	QualityRating       *float64 `json:"qualityRating" validate:"required,rating"`
	ValueRating         *float64 `json:"valueRating" validate:"required,rating"`
	TimelinessRating    *float64 `json:"timelinessRating" validate:"required,rating"`
	ExpertiseRating     *float64 `json:"expertiseRating" validate:"required,rating"`
	OverallRating       *float64 `json:"overallRating" validate:"required,rating"`
}

// Validator проверяет отзыв по единому набору правил. Один и тот же набор
// используется клиентом до отправки и сервером перед сохранением.
type Validator struct {
	validate *validator.Validate
}

// NewValidator создаёт валидатор с правилами отзыва.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]validator.Func{
		"rating":       validateRating,
		"email_domain": validateEmailDomain,
		"abs_url":      validateAbsoluteURL,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("feedback: register rule %q: %v", tag, err))
		}
	}
	return &Validator{validate: v}
}

// ValidateJSON разбирает тело запроса и проверяет его.
func (v *Validator) ValidateJSON(data []byte) (domain.FeedbackInput, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return domain.FeedbackInput{}, bodyError("invalid JSON")
	}
	if dec.More() {
		return domain.FeedbackInput{}, bodyError("unexpected data after JSON object")
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return domain.FeedbackInput{}, bodyError("must be a JSON object")
	}
	return v.Validate(fields)
}

// Validate проверяет произвольный объект. При ошибке возвращает
// *domain.ValidationError со всеми невалидными полями.
func (v *Validator) Validate(fields map[string]any) (domain.FeedbackInput, error) {
	typeErrs := make(map[string]string)
	c := candidate{
		Email:               stringField(fields, FieldEmail, typeErrs),
		FreelancerName:      stringField(fields, FieldFreelancerName, typeErrs),
		ProfileURL:          stringField(fields, FieldProfileURL, typeErrs),
		CommunicationRating: numberField(fields, FieldCommunication, typeErrs),
		QualityRating:       numberField(fields, FieldQuality, typeErrs),
		ValueRating:         numberField(fields, FieldValue, typeErrs),
		TimelinessRating:    numberField(fields, FieldTimeliness, typeErrs),
		ExpertiseRating:     numberField(fields, FieldExpertise, typeErrs),
		OverallRating:       numberField(fields, FieldOverall, typeErrs),
	}
	comments := commentsField(fields, typeErrs)
	if err := v.check(c, typeErrs); err != nil {
		return domain.FeedbackInput{}, err
	}
	return domain.FeedbackInput{
		Email:          c.Email,
		FreelancerName: c.FreelancerName,
		ProfileURL:     c.ProfileURL,
		Ratings: domain.Ratings{
			Communication: int(*c.CommunicationRating),
			Quality:       int(*c.QualityRating),
			Value:         int(*c.ValueRating),
			Timeliness:    int(*c.TimelinessRating),
			Expertise:     int(*c.ExpertiseRating),
			Overall:       int(*c.OverallRating),
		},
		Comments: comments,
	}, nil
}

// ValidateInput проверяет уже типизированный отзыв.
func (v *Validator) ValidateInput(in domain.FeedbackInput) error {
	rating := func(r int) *float64 {
		f := float64(r)
		return &f
	}
	c := candidate{
		Email:               in.Email,
		FreelancerName:      in.FreelancerName,
		ProfileURL:          in.ProfileURL,
		CommunicationRating: rating(in.Ratings.Communication),
		QualityRating:       rating(in.Ratings.Quality),
		ValueRating:         rating(in.Ratings.Value),
		TimelinessRating:    rating(in.Ratings.Timeliness),
		ExpertiseRating:     rating(in.Ratings.Expertise),
		OverallRating:       rating(in.Ratings.Overall),
	}
	return v.check(c, nil)
}

func (v *Validator) check(c candidate, typeErrs map[string]string) error {
	messages := make(map[string]string, len(typeErrs))
	for field, msg := range typeErrs {
		messages[field] = msg
	}
	if err := v.validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			field := fe.Field()
			if _, seen := messages[field]; seen {
				continue
			}
			messages[field] = ruleMessage(field, fe.Tag())
		}
	}
	if len(messages) == 0 {
		return nil
	}
	out := &domain.ValidationError{}
	for _, field := range fieldOrder {
		if msg, ok := messages[field]; ok {
			out.Fields = append(out.Fields, domain.FieldError{Field: field, Message: msg})
		}
	}
	return out
}

func ruleMessage(field, tag string) string {
	switch field {
	case FieldEmail:
		if tag == "required" {
			return "Email is required"
		}
		return "Please enter a valid email address"
	case FieldFreelancerName:
		return "Freelancer name is required"
	case FieldProfileURL:
		if tag == "required" {
			return "Profile URL is required"
		}
		return "Please enter a valid URL"
	}
	label, ok := ratingLabels[field]
	if !ok {
		return "is invalid"
	}
	if tag == "required" {
		if field == FieldOverall {
			return "Please provide an overall rating"
		}
		return "Please rate " + label
	}
	return "Rating must be a whole number from 1 to 5"
}

func bodyError(msg string) error {
	return &domain.ValidationError{Fields: []domain.FieldError{{Field: fieldBody, Message: msg}}}
}

func stringField(fields map[string]any, key string, typeErrs map[string]string) string {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		typeErrs[key] = "must be a string"
		return ""
	}
	return s
}

func numberField(fields map[string]any, key string, typeErrs map[string]string) *float64 {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return nil
	}
	var f float64
	switch n := raw.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			typeErrs[key] = "must be a number"
			return nil
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		typeErrs[key] = "must be a number"
		return nil
	}
	return &f
}

// commentsField: отсутствие, null и пустая строка означают "комментария нет".
func commentsField(fields map[string]any, typeErrs map[string]string) *string {
	raw, ok := fields[FieldComments]
	if !ok || raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		typeErrs[FieldComments] = "must be a string"
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

func validateRating(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Float64 {
		return false
	}
	v := field.Float()
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return false
	}
	return v >= domain.RatingMin && v <= domain.RatingMax
}

func validateEmailDomain(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	at := strings.LastIndex(s, "@")
	if at < 1 {
		return false
	}
	host := s[at+1:]
	dot := strings.LastIndex(host, ".")
	return dot > 0 && dot < len(host)-1
}

func validateAbsoluteURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
