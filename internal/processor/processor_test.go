package processor

import (
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	htmlContent := `
		<html>
		<head><title>X LIVE 2026</title></head>
		<body>
			<h1>X LIVE 2026</h1>


			<p>開催日: 2026年7月18日</p>

			<p>会場: ぴあアリーナMM</p>
		</body>
		</html>
	`

	md, err := Convert(htmlContent)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(md, "X LIVE 2026") {
		t.Error("markdown should contain the heading text")
	}
	if !strings.Contains(md, "2026年7月18日") {
		t.Error("markdown should contain the body text")
	}
	if strings.Contains(md, "\n\n\n") {
		t.Error("blank line runs should be collapsed")
	}
}

func TestConvert_Empty(t *testing.T) {
	md, err := Convert("")
	if err != nil {
		t.Fatalf("Convert(\"\") error = %v", err)
	}
	if md != "" {
		t.Errorf("Convert(\"\") = %q, want empty", md)
	}
}

func TestConvert_Stable(t *testing.T) {
	htmlContent := `<html><body><p>Lottery opens 2025-12-06</p></body></html>`

	a, err := Convert(htmlContent)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Convert(htmlContent)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("conversion should be deterministic for hashing")
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", `<html><head><title>Event Page</title></head><body></body></html>`, "Event Page"},
		{"whitespace", `<html><head><title>  Event Page  </title></head></html>`, "Event Page"},
		{"missing", `<html><head></head><body><h1>No title tag</h1></body></html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.html); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 100)

	if got := Truncate(long, 200); got != long {
		t.Error("short content should pass through unchanged")
	}

	got := Truncate(long, 50)
	if !strings.HasPrefix(got, strings.Repeat("a", 50)) {
		t.Error("truncated content should keep the prefix")
	}
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Error("truncated content should be marked")
	}
}
