package truncate

import (
	"testing"
)

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestApply(t *testing.T) {
	tests := []struct {
		name          string
		count         int
		limit         int
		wantLen       int
		wantTruncated bool
	}{
		{"under limit", 5, 10, 5, false},
		{"exactly at limit", 10, 10, 10, false},
		{"over limit", 15, 10, 10, true},
		{"one over limit", 11, 10, 10, true},
		{"zero limit uses default", 250, 0, DefaultLimit, true},
		{"negative limit uses default", 250, -1, DefaultLimit, true},
		{"zero limit under default", 50, 0, 50, false},
		{"empty input", 0, 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(makeItems(tt.count), tt.limit)

			if len(got.Items) != tt.wantLen {
				t.Errorf("len(Items) = %d, want %d", len(got.Items), tt.wantLen)
			}
			if got.TotalCount != tt.count {
				t.Errorf("TotalCount = %d, want %d", got.TotalCount, tt.count)
			}
			if got.Truncated != tt.wantTruncated {
				t.Errorf("Truncated = %v, want %v", got.Truncated, tt.wantTruncated)
			}
		})
	}
}

func TestApply_KeepsPrefixOrder(t *testing.T) {
	items := []string{"e", "a", "d", "b", "c"}

	got := Apply(items, 3)

	want := []string{"e", "a", "d"}
	for i, v := range want {
		if got.Items[i] != v {
			t.Errorf("Items[%d] = %q, want %q (order must be preserved)", i, got.Items[i], v)
		}
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	items := makeItems(20)

	Apply(items, 5)

	for i, v := range items {
		if v != i {
			t.Fatalf("input mutated at index %d", i)
		}
	}
	if len(items) != 20 {
		t.Fatalf("input length changed to %d", len(items))
	}
}

func TestApply_LintScenario(t *testing.T) {
	// 250 findings with the default limit keep 200 and report the full count
	got := Apply(makeItems(250), 0)

	if len(got.Items) != 200 {
		t.Errorf("len(Items) = %d, want 200", len(got.Items))
	}
	if got.TotalCount != 250 {
		t.Errorf("TotalCount = %d, want 250", got.TotalCount)
	}
	if !got.Truncated {
		t.Error("Truncated should be true")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-7, DefaultLimit},
		{1, 1},
		{500, 500},
	}

	for _, tt := range tests {
		if got := Normalize(tt.limit); got != tt.want {
			t.Errorf("Normalize(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}
