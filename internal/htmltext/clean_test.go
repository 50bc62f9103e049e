package htmltext

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name: "drops non-content tags",
			input: `<html><head><title>Job</title><style>p{}</style><script>var x = 1;</script></head>
<body><header>Site</header><nav><a href="/">Home</a></nav>
<main><h1> Senior Engineer </h1><p>Build   systems</p></main>
<footer>(c) 2024</footer></body></html>`,
			expect: "Job\nSenior Engineer\nBuild   systems",
		},
		{
			name:   "splits inline nodes",
			input:  `<p>Salary: <b>$100k</b> per year</p>`,
			expect: "Salary:\n$100k\nper year",
		},
		{
			name:   "skips comments and blank nodes",
			input:  "<div>\n  <!-- hidden -->\n  <span>  </span><span>Remote</span></div>",
			expect: "Remote",
		},
		{
			name:   "nested removed tag",
			input:  `<div><p>Keep</p><header><p>Drop</p></header></div>`,
			expect: "Keep",
		},
		{
			name:   "empty document",
			input:  "",
			expect: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Clean(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestCleanLeavesNoMarkup(t *testing.T) {
	got, err := Clean(`<div class="x"><ul><li>Go</li><li>SQL</li></ul></div>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("expected no markup, got %q", got)
	}
	if got != "Go\nSQL" {
		t.Fatalf("unexpected text: %q", got)
	}
}
