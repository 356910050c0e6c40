package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCount(t *testing.T) {
	testCases := []struct {
		text     string
		expected int
	}{
		{"1,234", 1234},
		{"[56]", 56},
		{"(7)", 7},
		{"조회 890", 890},
		{"", 0},
		{"없음", 0},
		{"  42  ", 42},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ParseCount(tc.text), "input %q", tc.text)
	}
}

func TestAbsoluteURL(t *testing.T) {
	testCases := []struct {
		name     string
		pageURL  string
		href     string
		expected string
	}{
		{
			name:     "absolute href passes through",
			pageURL:  "https://board.example.com/list",
			href:     "https://other.example.com/post/1",
			expected: "https://other.example.com/post/1",
		},
		{
			name:     "root relative",
			pageURL:  "https://board.example.com/zboard/list.php?id=hot",
			href:     "/zboard/view.php?id=hot&no=1",
			expected: "https://board.example.com/zboard/view.php?id=hot&no=1",
		},
		{
			name:     "directory relative",
			pageURL:  "https://board.example.com/bbs/list.php",
			href:     "view.php?no=1",
			expected: "https://board.example.com/bbs/view.php?no=1",
		},
		{
			name:     "dot slash relative",
			pageURL:  "https://board.example.com/bbs/list.php",
			href:     "./view.php?no=1",
			expected: "https://board.example.com/bbs/view.php?no=1",
		},
		{
			name:     "protocol relative",
			pageURL:  "https://board.example.com/list",
			href:     "//cdn.example.com/img/a.jpg",
			expected: "https://cdn.example.com/img/a.jpg",
		},
		{
			name:     "empty href",
			pageURL:  "https://board.example.com/list",
			href:     "",
			expected: "",
		},
		{
			name:     "whitespace only",
			pageURL:  "https://board.example.com/list",
			href:     "   ",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AbsoluteURL(tc.pageURL, tc.href))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpaces("  a \t b\n\nc  "))
	assert.Equal(t, "", CollapseSpaces("   "))
	assert.Equal(t, "제목 입니다", CollapseSpaces("제목   입니다"))
}
