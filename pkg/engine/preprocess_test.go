package engine

import "testing"

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "kebab-case identifier",
			input:  `(< com-y 0.4)`,
			expect: `(< com_y 0.4)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- base 0.1)`,
			expect: `(- base 0.1)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(> com_y -1)`,
			expect: `(> com_y -1)`,
		},
		{
			name:   "hyphen in string preserved",
			input:  `"com-y"`,
			expect: `"com-y"`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; wide base only`,
			expect: `// wide base only`,
		},
		{
			name:   "single semicolon comment",
			input:  "; note\n(> base 0.5)",
			expect: "// note\n(> base 0.5)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}
