// Package validation проверяет входящие данные до того, как они дойдут до
// аллокатора и хранилища. Ошибки собираются по всем полям сразу.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation - нарушение ограничения на одном поле.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error - ValidationError: упорядоченный список нарушений.
type Error struct {
	Message    string
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Path+": "+v.Message)
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

const (
	msgBody = "Validation failed"
	msgID   = "Invalid ID format"
)

var postIDPattern = regexp.MustCompile(`^[0-9]{1,9}$`)

// CreatePostRequest - тело POST /post. Указатели отличают отсутствующее поле от пустого.
type CreatePostRequest struct {
	Title   *string `json:"title" validate:"required,min=3,max=255"`
	Content *string `json:"content" validate:"required,min=10"`
	Author  *string `json:"author" validate:"required,min=1,max=100"`
}

// CreatePostInput - нормализованный результат проверки тела.
type CreatePostInput struct {
	Title   string
	Content string
	Author  string
}

type postIDParams struct {
	ID string `json:"id" validate:"post_id"`
}

// field -> tag -> message
var messages = map[string]map[string]string{
	"title": {
		"min": "Title must be at least 3 characters long.",
		"max": "Title cannot exceed 255 characters.",
	},
	"content": {
		"min": "Content must be at least 10 characters long.",
	},
	"author": {
		"min": "Author field cannot be empty.",
		"max": "Author name cannot exceed 100 characters.",
	},
	"id": {
		"post_id": "Invalid Post ID format. Must be a numeric string of 1 to 9 digits.",
	},
}

// Validator держит две неизменяемые схемы: тело создания поста и id в пути.
type Validator struct {
	v *validator.Validate
}

// New настраивает движок валидации.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("post_id", func(fl validator.FieldLevel) bool {
		return postIDPattern.MatchString(fl.Field().String())
	}, true); err != nil {
		panic(fmt.Sprintf("register post_id validation: %v", err))
	}
	return &Validator{v: v}
}

// CreatePost декодирует и проверяет JSON-тело. Возвращает *Error при любом нарушении.
func (v *Validator) CreatePost(body []byte) (CreatePostInput, error) {
	// json.Unmarshal, в отличие от Decoder.Decode, отвергает данные после объекта.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return CreatePostInput{}, &Error{
			Message:    msgBody,
			Violations: []Violation{{Path: "", Message: "Malformed JSON body"}},
		}
	}

	var req CreatePostRequest
	var violations []Violation
	typeErrs := map[string]bool{}
	fields := []struct {
		name string
		dst  **string
	}{
		{"title", &req.Title},
		{"content", &req.Content},
		{"author", &req.Author},
	}
	for _, f := range fields {
		val, ok := raw[f.name]
		if !ok {
			continue
		}
		var str string
		if err := json.Unmarshal(val, &str); err != nil || bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			typeErrs[f.name] = true
			violations = append(violations, Violation{Path: f.name, Message: "Expected string"})
			continue
		}
		*f.dst = &str
	}

	for _, fv := range v.structViolations(&req) {
		if typeErrs[fv.Path] {
			continue
		}
		violations = append(violations, fv)
	}
	if len(violations) > 0 {
		return CreatePostInput{}, &Error{Message: msgBody, Violations: orderByField(violations, "title", "content", "author")}
	}

	return CreatePostInput{Title: *req.Title, Content: *req.Content, Author: *req.Author}, nil
}

// PostID проверяет параметр пути: от 1 до 9 ASCII-цифр.
func (v *Validator) PostID(raw string) (string, error) {
	if violations := v.structViolations(&postIDParams{ID: raw}); len(violations) > 0 {
		return "", &Error{Message: msgID, Violations: violations}
	}
	return raw, nil
}

func (v *Validator) structViolations(s any) []Violation {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Path: "", Message: err.Error()}}
	}
	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, Violation{Path: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return "Required"
	}
	if m, ok := messages[fe.Field()][fe.Tag()]; ok {
		return m
	}
	return fmt.Sprintf("Failed on %s", fe.Tag())
}

// orderByField держит порядок нарушений по порядку полей схемы.
func orderByField(vs []Violation, fields ...string) []Violation {
	out := make([]Violation, 0, len(vs))
	for _, f := range fields {
		for _, v := range vs {
			if v.Path == f {
				out = append(out, v)
			}
		}
	}
	for _, v := range vs {
		known := false
		for _, f := range fields {
			if v.Path == f {
				known = true
				break
			}
		}
		if !known {
			out = append(out, v)
		}
	}
	return out
}
