package matcher

import (
	"errors"
	"testing"

	"github.com/loykin/apicontract/pkg/gpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(t *testing.T, m Matcher, v any) bool {
	t.Helper()
	ok, err := m.Matches(v)
	require.NoError(t, err, m.Describe())
	return ok
}

func TestEqualTo_NumericCoercion(t *testing.T) {
	assert.True(t, match(t, EqualTo(1), float64(1)))
	assert.True(t, match(t, Is(int64(200)), 200))
	assert.False(t, match(t, EqualTo(1), "1"))
	assert.True(t, match(t, EqualTo([]string{"a", "b"}), []any{"a", "b"}))
	assert.True(t, match(t, EqualTo(map[string]int{"x": 1}), map[string]any{"x": float64(1)}))
	assert.True(t, match(t, Not(EqualTo("x")), "y"))
	assert.True(t, match(t, Nil(), nil))
	assert.True(t, match(t, NotNil(), ""))
}

func TestStringMatchers(t *testing.T) {
	assert.True(t, match(t, EndsWith("Islands"), "Cook Islands"))
	assert.True(t, match(t, StartsWith("Cook"), "Cook Islands"))
	assert.True(t, match(t, ContainsString("k I"), "Cook Islands"))
	assert.True(t, match(t, EqualToIgnoringCase("APPLICATION/JSON"), "application/json"))
	assert.True(t, match(t, MatchesRegex(`^HTTP/1\.1 2\d\d`), "HTTP/1.1 200 OK"))

	_, err := EndsWith("x").Matches(42)
	var tm *gpath.TypeMismatchError
	assert.True(t, errors.As(err, &tm))
}

func TestCollectionMatchers(t *testing.T) {
	names := []any{"Cayman Islands", "Cook Islands", "Falkland Islands"}
	assert.True(t, match(t, HasItems("Cook Islands", "Cayman Islands"), names))
	assert.False(t, match(t, HasItems("Cook Islands", "Jersey"), names))
	assert.True(t, match(t, HasItem(EndsWith("Falkland Islands")), names))
	assert.True(t, match(t, ContainsInAnyOrder("Falkland Islands", "Cayman Islands", "Cook Islands"), names))
	assert.False(t, match(t, ContainsInAnyOrder("Cook Islands"), names))
	assert.True(t, match(t, HasSize(3), names))
	assert.True(t, match(t, Empty(), []any{}))
	assert.True(t, match(t, NotEmpty(), "x"))
	assert.True(t, match(t, HasKey("id"), map[string]any{"id": 1}))

	_, err := HasItems("x").Matches("not a list")
	assert.Error(t, err)
}

func TestOrdering(t *testing.T) {
	assert.True(t, match(t, LessThan(1000), int64(12)))
	assert.True(t, match(t, LessThanOrEqualTo(5), 5.0))
	assert.True(t, match(t, GreaterThan(0), 1))
	assert.True(t, match(t, GreaterThanOrEqualTo("a"), "b"))

	_, err := LessThan(10).Matches("abc")
	assert.Error(t, err)
}

func TestCombinators(t *testing.T) {
	assert.True(t, match(t, OneOf(200, 201, 204), float64(204)))
	assert.False(t, match(t, OneOf(200, 201), 404))
	assert.True(t, match(t, AllOf(StartsWith("a"), EndsWith("z")), "abcz"))
	assert.True(t, match(t, AnyOf(EqualTo(1), EqualTo(2)), 2))

	ok, err := AnyOf(EndsWith("x"), EqualTo(5)).Matches(5)
	require.NoError(t, err)
	assert.True(t, ok)

	long := Func("longer than 3", func(a any) bool { s, _ := a.(string); return len(s) > 3 })
	assert.Equal(t, "longer than 3", long.Describe())
	assert.True(t, match(t, long, "abcd"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, `equal to "OK"`, EqualTo("OK").Describe())
	assert.Equal(t, "less than 1000", LessThan(1000).Describe())
	assert.Equal(t, `not a string ending with "x"`, Not(EndsWith("x")).Describe())
	assert.Equal(t, `a collection containing ["a", "b"]`, HasItems("a", "b").Describe())
}
