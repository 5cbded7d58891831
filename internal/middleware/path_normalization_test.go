package middleware

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		// Static routes - no normalization
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "feed endpoint",
			path:     "/v1/feed",
			expected: "/v1/feed",
		},
		{
			name:     "recommendations endpoint",
			path:     "/v1/recommendations",
			expected: "/v1/recommendations",
		},
		{
			name:     "feedback endpoint",
			path:     "/v1/feedback",
			expected: "/v1/feedback",
		},
		{
			name:     "health endpoint",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "ready endpoint",
			path:     "/ready",
			expected: "/ready",
		},
		{
			name:     "metrics endpoint",
			path:     "/metrics",
			expected: "/metrics",
		},

		// User patterns
		{
			name:     "user by id",
			path:     "/v1/users/user-123",
			expected: "/v1/users/{id}",
		},
		{
			name:     "user by uuid",
			path:     "/v1/users/550e8400-e29b-41d4-a716-446655440000",
			expected: "/v1/users/{id}",
		},
		{
			name:     "similar users",
			path:     "/v1/users/user-456/similar",
			expected: "/v1/users/{id}/similar",
		},

		// Community patterns
		{
			name:     "community by id",
			path:     "/v1/communities/gardening-club",
			expected: "/v1/communities/{id}",
		},

		// Edge cases
		{
			name:     "trailing slash on users collection",
			path:     "/v1/users/",
			expected: "/v1/users/",
		},
		{
			name:     "unknown route",
			path:     "/unknown/path",
			expected: "/unknown/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestNormalizePath_CardinalityControl(t *testing.T) {
	// Test that different IDs normalize to the same pattern
	paths := []string{
		"/v1/users/1",
		"/v1/users/2",
		"/v1/users/999",
		"/v1/users/550e8400-e29b-41d4-a716-446655440000",
		"/v1/users/abc-def-ghi",
	}

	expected := "/v1/users/{id}"
	seen := make(map[string]bool)

	for _, path := range paths {
		result := normalizePath(path)
		if result != expected {
			t.Errorf("normalizePath(%q) = %q, want %q", path, result, expected)
		}
		seen[result] = true
	}

	// Should all normalize to the same pattern (low cardinality)
	if len(seen) != 1 {
		t.Errorf("Expected all paths to normalize to single pattern, got %d patterns: %v", len(seen), seen)
	}
}
