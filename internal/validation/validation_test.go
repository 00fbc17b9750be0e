package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(t *testing.T, title, content, author string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{"title": title, "content": content, "author": author})
	require.NoError(t, err)
	return b
}

func violations(t *testing.T, err error) []Violation {
	t.Helper()
	var verr *Error
	require.ErrorAs(t, err, &verr)
	return verr.Violations
}

func TestCreatePost_Valid(t *testing.T) {
	v := New()
	in, err := v.CreatePost(body(t, "Hello World", "This is content", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, CreatePostInput{Title: "Hello World", Content: "This is content", Author: "Alice"}, in)
}

func TestCreatePost_TitleBoundaries(t *testing.T) {
	v := New()
	content := strings.Repeat("c", 10)

	vs := violations(t, errOnly(v.CreatePost(body(t, "ab", content, "Alice"))))
	require.Len(t, vs, 1)
	assert.Equal(t, "title", vs[0].Path)
	assert.Equal(t, "Title must be at least 3 characters long.", vs[0].Message)

	_, err := v.CreatePost(body(t, "abc", content, "Alice"))
	assert.NoError(t, err)

	_, err = v.CreatePost(body(t, strings.Repeat("t", 255), content, "Alice"))
	assert.NoError(t, err)

	vs = violations(t, errOnly(v.CreatePost(body(t, strings.Repeat("t", 256), content, "Alice"))))
	require.Len(t, vs, 1)
	assert.Equal(t, "Title cannot exceed 255 characters.", vs[0].Message)
}

func TestCreatePost_ContentBoundaries(t *testing.T) {
	v := New()

	vs := violations(t, errOnly(v.CreatePost(body(t, "Title", strings.Repeat("c", 9), "Alice"))))
	require.Len(t, vs, 1)
	assert.Equal(t, "content", vs[0].Path)

	_, err := v.CreatePost(body(t, "Title", strings.Repeat("c", 10), "Alice"))
	assert.NoError(t, err)
}

func TestCreatePost_AuthorBoundaries(t *testing.T) {
	v := New()
	content := strings.Repeat("c", 10)

	vs := violations(t, errOnly(v.CreatePost(body(t, "Title", content, ""))))
	require.Len(t, vs, 1)
	assert.Equal(t, Violation{Path: "author", Message: "Author field cannot be empty."}, vs[0])

	_, err := v.CreatePost(body(t, "Title", content, strings.Repeat("a", 100)))
	assert.NoError(t, err)

	vs = violations(t, errOnly(v.CreatePost(body(t, "Title", content, strings.Repeat("a", 101)))))
	require.Len(t, vs, 1)
	assert.Equal(t, "Author name cannot exceed 100 characters.", vs[0].Message)
}

func TestCreatePost_CountsCodePoints(t *testing.T) {
	v := New()
	// три символа, девять байт
	_, err := v.CreatePost(body(t, "日本語", "Десять сим", "Ё"))
	assert.NoError(t, err)
}

func TestCreatePost_CollectsAllViolationsInOrder(t *testing.T) {
	v := New()
	vs := violations(t, errOnly(v.CreatePost(body(t, "x", "short", ""))))
	require.Len(t, vs, 3)
	assert.Equal(t, "title", vs[0].Path)
	assert.Equal(t, "content", vs[1].Path)
	assert.Equal(t, "author", vs[2].Path)
}

func TestCreatePost_MissingFields(t *testing.T) {
	v := New()
	vs := violations(t, errOnly(v.CreatePost([]byte(`{"title":"Hello"}`))))
	require.Len(t, vs, 2)
	assert.Equal(t, Violation{Path: "content", Message: "Required"}, vs[0])
	assert.Equal(t, Violation{Path: "author", Message: "Required"}, vs[1])
}

func TestCreatePost_WrongType(t *testing.T) {
	v := New()
	vs := violations(t, errOnly(v.CreatePost([]byte(`{"title":123,"content":"This is content","author":""}`))))
	require.Len(t, vs, 2)
	assert.Equal(t, Violation{Path: "title", Message: "Expected string"}, vs[0])
	assert.Equal(t, "author", vs[1].Path)
}

func TestCreatePost_AllFieldsWrongType(t *testing.T) {
	v := New()
	vs := violations(t, errOnly(v.CreatePost([]byte(`{"title":1,"content":2,"author":3}`))))
	assert.Equal(t, []Violation{
		{Path: "title", Message: "Expected string"},
		{Path: "content", Message: "Expected string"},
		{Path: "author", Message: "Expected string"},
	}, vs)
}

func TestCreatePost_NullAndMixedTypes(t *testing.T) {
	v := New()
	vs := violations(t, errOnly(v.CreatePost([]byte(`{"title":null,"content":["x"],"author":"Alice"}`))))
	assert.Equal(t, []Violation{
		{Path: "title", Message: "Expected string"},
		{Path: "content", Message: "Expected string"},
	}, vs)
}

func TestCreatePost_MalformedBody(t *testing.T) {
	v := New()
	for _, raw := range []string{
		``, `{`, `[]`, `"text"`,
		`{"title":"Hello","content":"This is content","author":"A"} trailing`,
		`{"title":"Hello","content":"This is content","author":"A"}{}`,
	} {
		err := errOnly(v.CreatePost([]byte(raw)))
		var verr *Error
		require.ErrorAs(t, err, &verr, raw)
		assert.Equal(t, "Validation failed", verr.Message)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, "Malformed JSON body", verr.Violations[0].Message)
	}
}

func TestPostID(t *testing.T) {
	v := New()

	for _, ok := range []string{"1", "42", "000000001", "999999999"} {
		got, err := v.PostID(ok)
		assert.NoError(t, err, ok)
		assert.Equal(t, ok, got)
	}

	for _, bad := range []string{"", "12a", "1234567890", "-1", "+1", "1.0", " 1", "1 ", "١٢"} {
		_, err := v.PostID(bad)
		vs := violations(t, err)
		require.Len(t, vs, 1, bad)
		assert.Equal(t, "id", vs[0].Path)
	}

	var verr *Error
	_, err := v.PostID("12a")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid ID format", verr.Message)
}

func errOnly(_ CreatePostInput, err error) error { return err }
