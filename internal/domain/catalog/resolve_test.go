package catalog

import "testing"

func TestResolveOptionsPriority(t *testing.T) {
	d := testScale()
	d.Groups = []ResponseGroup{{Name: "freq", Options: []ResponseOption{
		{Value: "never", Label: "Never", Score: 0},
		{Value: "often", Label: "Often", Score: 2},
	}}}
	d.Items[1].GroupName = "freq"
	d.Items[2].Options = []ResponseOption{
		{Value: "no", Label: "No", Score: 0},
		{Value: "yes", Label: "Yes", Score: 1},
	}

	t.Run("global vocabulary", func(t *testing.T) {
		opts, err := ResolveOptions(d, &d.Items[0])
		if err != nil {
			t.Fatal(err)
		}
		if len(opts) != 4 || opts[0].Value != "0" {
			t.Fatalf("expected global options, got %v", opts)
		}
	})

	t.Run("group overrides global", func(t *testing.T) {
		opts, err := ResolveOptions(d, &d.Items[1])
		if err != nil {
			t.Fatal(err)
		}
		if len(opts) != 2 || opts[0].Value != "never" {
			t.Fatalf("expected group options, got %v", opts)
		}
	})

	t.Run("own options override everything", func(t *testing.T) {
		opts, err := ResolveOptions(d, &d.Items[2])
		if err != nil {
			t.Fatal(err)
		}
		if len(opts) != 2 || opts[0].Value != "no" {
			t.Fatalf("expected item options, got %v", opts)
		}
	})
}

func TestResolveOptionsOrdering(t *testing.T) {
	d := testScale()
	d.Options = []ResponseOption{
		{Value: "b", Label: "B", OrderIndex: 2},
		{Value: "a", Label: "A", OrderIndex: 1},
		{Value: "c", Label: "C", OrderIndex: 3},
	}
	opts, err := ResolveOptions(d, &d.Items[0])
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if opts[i].Value != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, opts[i].Value)
		}
	}
}

func TestOptionByValue(t *testing.T) {
	d := testScale()
	opt, err := OptionByValue(d, &d.Items[0], "2")
	if err != nil {
		t.Fatal(err)
	}
	if opt.Score != 2 {
		t.Fatalf("expected score 2, got %d", opt.Score)
	}

	if _, err := OptionByValue(d, &d.Items[0], "9"); err == nil {
		t.Fatal("expected unknown value to fail")
	}
}

func TestResolveOptionsNoSource(t *testing.T) {
	d := testScale()
	d.Options = nil
	if _, err := ResolveOptions(d, &d.Items[0]); err == nil {
		t.Fatal("expected missing vocabulary to fail")
	}
}
