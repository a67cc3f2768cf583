package langid

import "testing"

func TestNoopDetect(t *testing.T) {
	lang, conf := Noop{}.Detect("the cat sat on the mat")
	if lang != "" || conf != 0 {
		t.Errorf("Noop.Detect() = (%q, %v), want (\"\", 0)", lang, conf)
	}
}

func TestHeuristicDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "english",
			text: "the engine was not ready and the stream had been stopped",
			want: English,
		},
		{
			name: "italian",
			text: "il sistema non risponde perché la rete non funziona",
			want: Italian,
		},
		{
			name: "spanish",
			text: "el servidor no responde porque hay muchos errores y no sabemos nada",
			want: Spanish,
		},
		{
			name: "french",
			text: "le serveur ne répond pas et nous ne savons pas pourquoi",
			want: French,
		},
		{
			name: "german",
			text: "der dienst ist nicht mehr aktiv und wir wissen nicht warum",
			want: German,
		},
	}

	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, conf := h.Detect(tt.text)
			if lang != tt.want {
				t.Errorf("Detect(%q) language = %q, want %q", tt.text, lang, tt.want)
			}
			if conf <= 0 || conf > 1 {
				t.Errorf("Detect(%q) confidence = %v, want in (0, 1]", tt.text, conf)
			}
		})
	}
}

func TestHeuristicDetectUnavailable(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: "   \t  "},
		{name: "no letters", text: "1234 !!! 5678"},
		{name: "no stop words", text: "zzz qqq xyzzy plugh"},
	}

	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, conf := h.Detect(tt.text)
			if lang != "" || conf != 0 {
				t.Errorf("Detect(%q) = (%q, %v), want (\"\", 0)", tt.text, lang, conf)
			}
		})
	}
}

func TestHeuristicDetectTie(t *testing.T) {
	// One English hit, one Italian hit: deterministic front runner,
	// zero confidence.
	lang, conf := NewHeuristic().Detect("il the")
	if lang == "" {
		t.Fatal("Detect() language empty on tie, want the first-ranked language")
	}
	if conf != 0 {
		t.Errorf("Detect() confidence = %v on tie, want 0", conf)
	}
}

func TestHeuristicConfidenceGrowsWithEvidence(t *testing.T) {
	h := NewHeuristic()
	_, short := h.Detect("the cat")
	_, long := h.Detect("the cat was not where they had left it and this was a problem for the")
	if long <= short {
		t.Errorf("confidence did not grow with evidence: short %v, long %v", short, long)
	}
}
