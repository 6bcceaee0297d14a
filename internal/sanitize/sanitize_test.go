package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already clean", input: "mysite", expected: "mysite"},
		{name: "uppercase conversion", input: "MySite", expected: "mysite"},
		{name: "dots replaced", input: "index.html", expected: "index-html"},
		{name: "spaces replaced", input: "My Site", expected: "my-site"},
		{name: "dash and underscore kept", input: "a-b_c", expected: "a-b_c"},
		{name: "runs are not collapsed", input: "a!!b", expected: "a--b"},
		{name: "unicode replaced per rune", input: "café", expected: "caf-"},
		{name: "kelvin sign replaced", input: "\u212Aelvin", expected: "-elvin"},
		{name: "dotted capital I replaced", input: "İstanbul", expected: "-stanbul"},
		{name: "digits kept", input: "Site2024", expected: "site2024"},
		{name: "empty stays empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProjectName(tt.input))
		})
	}
}

func TestProjectName_Idempotent(t *testing.T) {
	inputs := []string{"MySite", "My Site!", "a/b\\c", "ÄÖÜ", "--__--", "x.y.z", "\u212Aelvin", "İstanbul", ""}
	for _, in := range inputs {
		once := ProjectName(in)
		assert.Equal(t, once, ProjectName(once), "input %q", in)
	}
}

func TestFirstSegment(t *testing.T) {
	assert.Equal(t, "MySite", FirstSegment("MySite/index.html"))
	assert.Equal(t, "MySite", FirstSegment("/MySite/css/a.css"))
	assert.Equal(t, "index.html", FirstSegment("index.html"))
	assert.Equal(t, "win", FirstSegment(`win\dir\file.txt`))
	assert.Equal(t, "", FirstSegment("///"))
}

func TestResolve(t *testing.T) {
	t.Run("folder upload", func(t *testing.T) {
		name, err := Resolve("MySite/index.html")
		require.NoError(t, err)
		assert.Equal(t, "mysite", name)
	})

	t.Run("leading slash from drag and drop", func(t *testing.T) {
		name, err := Resolve("/My Site/index.html")
		require.NoError(t, err)
		assert.Equal(t, "my-site", name)
	})

	t.Run("empty first segment is rejected", func(t *testing.T) {
		_, err := Resolve("/")
		assert.ErrorIs(t, err, ErrEmptyProjectName)

		_, err = Resolve("")
		assert.ErrorIs(t, err, ErrEmptyProjectName)
	})
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Demo.zip", "demo"},
		{"demo.ZIP", "demo"},
		{"My Site.zip", "my-site"},
		{"site.tar.zip", "site-tar"},
		{".zip", "-zip"},
	}
	for _, tt := range tests {
		got, err := ArchiveName(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}

	_, err := ArchiveName("")
	assert.ErrorIs(t, err, ErrEmptyProjectName)
}

func TestInProjectPath(t *testing.T) {
	assert.Equal(t, "index.html", InProjectPath("MySite/index.html"))
	assert.Equal(t, "css/a.css", InProjectPath("MySite/css/a.css"))
	assert.Equal(t, "css/a.css", InProjectPath("/MySite/css/a.css"))
	assert.Equal(t, "index.html", InProjectPath("index.html"))
	assert.Equal(t, "Read Me.TXT", InProjectPath("x/Read Me.TXT"))
}
