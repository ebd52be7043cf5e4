package shared_test

import (
	"strings"
	"testing"

	"innkeeper/shared"
	"innkeeper/shared/dto"
)

func TestConvertStringToBool(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *bool
	}{
		{
			name:     "empty string returns nil",
			input:    "",
			expected: nil,
		},
		{
			name:     "valid true string",
			input:    "true",
			expected: boolPtr(true),
		},
		{
			name:     "valid false string",
			input:    "false",
			expected: boolPtr(false),
		},
		{
			name:     "valid 1 string",
			input:    "1",
			expected: boolPtr(true),
		},
		{
			name:     "invalid string returns nil",
			input:    "maybe",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shared.ConvertStringToBool(tt.input)

			if (got == nil) != (tt.expected == nil) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}

			if got != nil && *got != *tt.expected {
				t.Errorf("expected %v, got %v", *tt.expected, *got)
			}
		})
	}
}

func TestBuildCacheKey(t *testing.T) {
	if got := shared.BuildCacheKey("room:get", "abc"); got != "room:get:abc" {
		t.Errorf("unexpected cache key: %s", got)
	}

	if got := shared.BuildCacheKey("limiter", "1.2.3.4", "curl"); got != "limiter:1.2.3.4:curl" {
		t.Errorf("unexpected cache key: %s", got)
	}
}

func TestBuildCacheKeyWithQuery(t *testing.T) {
	params := dto.QueryParams{Page: 1, Limit: 10, SortBy: "created_at", SortDir: "ASC"}
	filter := shared.FilterByField("Deluxe", "name", "rooms")

	key := shared.BuildCacheKeyWithQuery("room:gets", params, filter)

	if !strings.HasPrefix(key, "room:gets:1:10:created_at:ASC:") {
		t.Errorf("unexpected cache key prefix: %s", key)
	}

	other := shared.BuildCacheKeyWithQuery("room:gets", params, shared.FilterByField("Suite", "name", "rooms"))
	if key == other {
		t.Error("expected different filters to produce different cache keys")
	}
}

func TestFilterByID(t *testing.T) {
	group := shared.FilterByID("some-id", "id", "rooms")

	where, args := group.GetWhereClause()

	if where != "(rooms.id = :id)" {
		t.Errorf("unexpected where clause: %s", where)
	}

	if args["id"] != "some-id" {
		t.Errorf("unexpected args: %v", args)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
