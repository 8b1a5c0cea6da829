package plans

import "testing"

func TestResolve_KeywordFallback(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		productID   string
		productName string
		want        string
	}{
		{"empty defaults to basico", "", "", Basico},
		{"unknown name defaults to basico", "", "Some Other Product", Basico},
		{"basico by name", "", "Cupido Basico", Basico},
		{"audio by name", "", "CUPIDO AUDIO especial", ComAudio},
		{"com audio by name", "", "cupido com audio", ComAudio},
		{"multi by name", "", "Cupido Multi - 5 mensagens", MultiMensagem},
		{"multiplas by name", "", "cupido multiplas", MultiMensagem},
		{"premium by name", "", "Cupido Premium Historia", PremiumHistoria},
		{"historia by name", "", "  cupido historia  ", PremiumHistoria},
		{"unknown id falls through to name", "no-such-id", "cupido audio", ComAudio},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tc.productID, tc.productName); got != tc.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.productID, tc.productName, got, tc.want)
			}
		})
	}
}

func TestConfig_AllPlans(t *testing.T) {
	t.Parallel()

	for _, plan := range []string{Basico, ComAudio, MultiMensagem, PremiumHistoria} {
		cfg := Config(plan)
		if cfg.PlanType != plan {
			t.Fatalf("Config(%q).PlanType = %q", plan, cfg.PlanType)
		}
		if cfg.MaxMessages < 1 {
			t.Fatalf("Config(%q).MaxMessages = %d, want >= 1", plan, cfg.MaxMessages)
		}
		if cfg.Label == "" {
			t.Fatalf("Config(%q) has empty label", plan)
		}
	}

	if got := Config(MultiMensagem).MaxMessages; got != 5 {
		t.Fatalf("multi_mensagem MaxMessages = %d, want 5", got)
	}
	if !Config(PremiumHistoria).HasPresentation {
		t.Fatalf("premium_historia should allow presentations")
	}
	if Config(Basico).HasAudio {
		t.Fatalf("basico should not allow audio")
	}
	if limit := Config(ComAudio).AudioCharLimit; limit <= 0 {
		t.Fatalf("com_audio should enforce an audio character limit, got %d", limit)
	}
}

func TestConfig_UnknownPlanPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown plan type")
		}
	}()
	Config("no_such_plan")
}
