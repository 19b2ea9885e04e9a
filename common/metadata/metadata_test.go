package metadata

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromValuesKeepsNames(t *testing.T) {
	md := FromValues(url.Values{"Service": {"https://app"}, "q": {"a", "b"}})

	assert.Equal(t, []string{"https://app"}, md.Get("Service"))
	assert.Nil(t, md.Get("service"))
	assert.Equal(t, []string{"Service", "q"}, md.Names())
}

func TestCopyIsDeep(t *testing.T) {
	md := Metadata{"q": {"a"}}
	cp := md.Copy()
	cp["q"][0] = "changed"
	cp.Append("q", "b")

	assert.Equal(t, []string{"a"}, md["q"])
	assert.Equal(t, []string{"changed", "b"}, cp["q"])
}

func TestSetAppendMergeDelete(t *testing.T) {
	md := Metadata{}
	md.Set("q")
	assert.Empty(t, md)

	md.Set("q", "a")
	md.Append("q", "b")
	md.Append("q")
	md.Merge(Metadata{"q": {"c"}, "r": {"d"}})
	assert.Equal(t, []string{"a", "b", "c"}, md.Get("q"))
	assert.Equal(t, "d", md.First("r"))
	assert.Equal(t, "", md.First("missing"))

	md.Delete("r")
	assert.Equal(t, []string{"q"}, md.Names())
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{name: "nil", values: nil, want: "[]"},
		{name: "single", values: []string{"a"}, want: "[a]"},
		{name: "multiple", values: []string{"a", "b"}, want: "[a, b]"},
		{name: "empty value", values: []string{""}, want: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderValues(tt.values))
			assert.Equal(t, tt.want, Metadata{"k": tt.values}.Render("k"))
		})
	}
}
