package payperlead

import "testing"

func TestEvaluate(t *testing.T) {
	t.Parallel()

	t.Run("visible orders need nothing", func(t *testing.T) {
		for _, prior := range []int{0, 3, 4, 100} {
			if got := Evaluate(false, prior); got != DecisionAlreadyVisible {
				t.Fatalf("Evaluate(false, %d) = %v, want %v", prior, got, DecisionAlreadyVisible)
			}
		}
	})

	t.Run("free tier covers the first four orders", func(t *testing.T) {
		cases := []struct {
			prior int
			want  Decision
		}{
			{prior: 0, want: DecisionFreeTier},
			{prior: 1, want: DecisionFreeTier},
			{prior: 2, want: DecisionFreeTier},
			{prior: 3, want: DecisionFreeTier},
			{prior: 4, want: DecisionPaymentRequired},
			{prior: 100, want: DecisionPaymentRequired},
		}

		for _, tc := range cases {
			if got := Evaluate(true, tc.prior); got != tc.want {
				t.Fatalf("Evaluate(true, %d) = %v, want %v", tc.prior, got, tc.want)
			}
		}
	})
}
