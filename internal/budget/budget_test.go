package budget

import "testing"

func TestEstimateTokensFromChars(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
	}
	for _, c := range cases {
		if got := EstimateTokensFromChars(c.in); got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEstimatePromptTokens(t *testing.T) {
	// system(6)->2, user(12)->3
	if got := EstimatePromptTokens("system", "user message"); got != 5 {
		t.Fatalf("EstimatePromptTokens() = %d, want 5", got)
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != 8192 {
		t.Fatal("empty model should default to 8192")
	}
	if ModelContextTokens("LLAMA-3.1") != 128_000 {
		t.Fatal("case-insensitive match for llama-3.1 should be 128k")
	}
	if ModelContextTokens("mystery-512k") != 512_000 {
		t.Fatal("numeric suffix 512k should map to 512k tokens")
	}
}

func TestRemainingAndFits(t *testing.T) {
	model := "gpt-4o"
	max := ModelContextTokens(model)
	head := HeadroomTokens(model)
	if got := Remaining(model, 500, max-head-1000); got != 500 {
		t.Fatalf("Remaining = %d, want 500", got)
	}
	if !Fits(model, ReservedOutputTokens, 1000) {
		t.Fatal("small prompt should fit")
	}
	if Remaining(model, 1, max) != 0 || Fits(model, 1, max) {
		t.Fatal("overflow must clamp to zero and not fit")
	}
	if HeadroomTokens("") != 512 {
		t.Fatal("default model headroom should floor to 512")
	}
}
