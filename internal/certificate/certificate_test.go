package certificate

import (
	"testing"

	"eventide/internal/model"
)

func TestRenderEscapesName(t *testing.T) {
	tpl := &model.CertificateTemplate{TemplateHTML: "<h1>{{studentName}}</h1><p>{{studentName}}</p>"}
	got := string(Render(tpl, `<script>alert("x")</script>`))
	want := "<h1>&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</h1><p>&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</p>"
	if got != want {
		t.Fatalf("got %s", got)
	}
}

func TestRenderCustomPlaceholder(t *testing.T) {
	tpl := &model.CertificateTemplate{TemplateHTML: "Awarded to [[NAME]]", Placeholder: "[[NAME]]"}
	if got := string(Render(tpl, "Ada")); got != "Awarded to Ada" {
		t.Fatalf("got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		placeholder string
		wantErr     bool
	}{
		{"default placeholder", "<p>{{studentName}}</p>", "", false},
		{"custom placeholder", "<p>%NAME%</p>", "%NAME%", false},
		{"missing placeholder", "<p>hello</p>", "", true},
		{"empty", "   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.html, tt.placeholder); (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
