package allocate

import (
	"math"
	"testing"
)

func total(amounts map[string]float64) float64 {
	var sum float64
	for _, v := range amounts {
		sum += v
	}
	return sum
}

func TestAllocateProportional(t *testing.T) {
	amounts, err := Allocate(map[string]float64{"a": 0.6, "b": 0.3, "c": 0.1}, Config{
		Budget:             1000,
		MaxSharePerProject: 1,
	})
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	if math.Abs(amounts["a"]-600) > 1e-9 || math.Abs(amounts["b"]-300) > 1e-9 || math.Abs(amounts["c"]-100) > 1e-9 {
		t.Errorf("amounts = %v, want 600/300/100", amounts)
	}
}

func TestAllocateCapsAndRedistributes(t *testing.T) {
	// One dominant project hits the 60% cap and its excess flows to the rest.
	amounts, err := Allocate(map[string]float64{"whale": 0.9, "minnow": 0.1}, Config{
		Budget:             1000000,
		MaxSharePerProject: 0.6,
	})
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	if math.Abs(amounts["whale"]-600000) > 1e-6 {
		t.Errorf("whale = %v, want capped at 600000", amounts["whale"])
	}
	if math.Abs(amounts["minnow"]-400000) > 1e-6 {
		t.Errorf("minnow = %v, want 400000", amounts["minnow"])
	}
	if math.Abs(total(amounts)-1000000) > 1e-3 {
		t.Errorf("total = %v, budget not conserved", total(amounts))
	}
}

func TestAllocateDropsBelowMinimum(t *testing.T) {
	// The small project's proportional share falls under the floor; it is
	// dropped, never topped up, and its share returns to the survivors.
	amounts, err := Allocate(map[string]float64{"a": 0.55, "b": 0.30, "c": 0.15}, Config{
		Budget:              1000,
		MinAmountPerProject: 200,
		MaxSharePerProject:  1,
	})
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	if _, ok := amounts["c"]; ok && amounts["c"] > 0 {
		t.Errorf("c = %v, want dropped below the 200 floor", amounts["c"])
	}
	// a and b split the budget 55:30.
	if math.Abs(amounts["a"]-1000*0.55/0.85) > 1e-9 {
		t.Errorf("a = %v, want %v", amounts["a"], 1000*0.55/0.85)
	}
	if math.Abs(total(amounts)-1000) > 1e-6 {
		t.Errorf("total = %v, budget not conserved", total(amounts))
	}
}

func TestAllocateConservesBudgetUnderBothConstraints(t *testing.T) {
	scores := map[string]float64{
		"p1": 0.40, "p2": 0.25, "p3": 0.15, "p4": 0.10,
		"p5": 0.05, "p6": 0.03, "p7": 0.02,
	}
	amounts, err := Allocate(scores, Config{
		Budget:              1000000,
		MinAmountPerProject: 30000,
		MaxSharePerProject:  0.25,
	})
	if err != nil {
		t.Fatalf("Allocate() error: %v", err)
	}

	if math.Abs(total(amounts)-1000000) > 1 {
		t.Errorf("total = %v, budget not conserved", total(amounts))
	}
	capAmount := 0.25 * 1000000.0
	for id, v := range amounts {
		if v > capAmount+1e-6 {
			t.Errorf("%s = %v exceeds cap %v", id, v, capAmount)
		}
		if v < 30000-1e-6 {
			t.Errorf("%s = %v below minimum", id, v)
		}
	}
}

func TestAllocateInfeasibleWhenCapTooTight(t *testing.T) {
	// Two projects at a 10% cap can absorb at most 20% of the budget.
	_, err := Allocate(map[string]float64{"a": 0.5, "b": 0.5}, Config{
		Budget:             1000,
		MaxSharePerProject: 0.1,
	})
	if _, ok := err.(*InfeasibleError); !ok {
		t.Fatalf("Allocate() = %v, want InfeasibleError", err)
	}
}

func TestAllocateInfeasibleWithNoPositiveScores(t *testing.T) {
	_, err := Allocate(map[string]float64{"a": 0}, Config{
		Budget:             1000,
		MaxSharePerProject: 1,
	})
	if _, ok := err.(*InfeasibleError); !ok {
		t.Fatalf("Allocate() = %v, want InfeasibleError", err)
	}
}

func TestAllocateRejectsInvalidInputs(t *testing.T) {
	if _, err := Allocate(map[string]float64{"a": 1}, Config{Budget: 0, MaxSharePerProject: 1}); err == nil {
		t.Error("expected error for zero budget")
	}
	if _, err := Allocate(map[string]float64{"a": 1}, Config{Budget: 100, MaxSharePerProject: 1.5}); err == nil {
		t.Error("expected error for max share > 1")
	}
	if _, err := Allocate(map[string]float64{"a": math.NaN()}, Config{Budget: 100, MaxSharePerProject: 1}); err == nil {
		t.Error("expected error for NaN score")
	}
	if _, err := Allocate(map[string]float64{"a": -1}, Config{Budget: 100, MaxSharePerProject: 1}); err == nil {
		t.Error("expected error for negative score")
	}
}
