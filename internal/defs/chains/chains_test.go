package chains

import "testing"

const haulDoc = `{
  "task_chains": [
    {
      "def_name": "Chain_Haul",
      "label": "Haul to storage",
      "steps": [
        {"order": 2, "action": "Deposit", "target": "destination"},
        {"order": 0, "action": "Pickup", "target": "source"},
        {"order": 1, "action": "HaulTo", "target": "destination"}
      ]
    }
  ]
}`

func TestLoadBytes_SortsStepsByOrder(t *testing.T) {
	c := NewCatalog(nil)
	n, err := c.LoadBytes([]byte(haulDoc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 1 {
		t.Fatalf("loaded=%d want 1", n)
	}
	def, ok := c.Get("Chain_Haul")
	if !ok {
		t.Fatalf("chain not found")
	}
	want := []string{"Pickup", "HaulTo", "Deposit"}
	for i, w := range want {
		if def.Steps[i].ActionDefName != w {
			t.Fatalf("step[%d]=%q want %q", i, def.Steps[i].ActionDefName, w)
		}
		if def.Steps[i].Order != uint8(i) {
			t.Fatalf("step[%d].order=%d want %d", i, def.Steps[i].Order, i)
		}
	}
}

func TestStepAndNextStep(t *testing.T) {
	c := NewCatalog(nil)
	if _, err := c.LoadBytes([]byte(haulDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	def, _ := c.Get("Chain_Haul")

	s, ok := def.Step(1)
	if !ok || s.ActionDefName != "HaulTo" {
		t.Fatalf("Step(1)=%+v ok=%v", s, ok)
	}
	next, ok := def.NextStep(1)
	if !ok || next.ActionDefName != "Deposit" {
		t.Fatalf("NextStep(1)=%+v ok=%v", next, ok)
	}
	if _, ok := def.NextStep(2); ok {
		t.Fatalf("NextStep past the last step must be none")
	}
}

// Advancement is exact-match on order+1. A chain authored with gaps stops at
// the gap even though later steps exist.
func TestNextStep_GapStops(t *testing.T) {
	c := NewCatalog(nil)
	doc := `{"task_chains":[{"def_name":"Chain_Gappy","steps":[
		{"order":0,"action":"Pickup"},
		{"order":5,"action":"HaulTo"},
		{"order":10,"action":"Deposit"}]}]}`
	if _, err := c.LoadBytes([]byte(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	def, _ := c.Get("Chain_Gappy")
	if _, ok := def.NextStep(0); ok {
		t.Fatalf("NextStep(0) must be none despite steps at order 5 and 10")
	}
	if s, ok := def.Step(5); !ok || s.ActionDefName != "HaulTo" {
		t.Fatalf("Step(5)=%+v ok=%v", s, ok)
	}
}

func TestLoadBytes_DropsStepWithoutAction(t *testing.T) {
	c := NewCatalog(nil)
	doc := `{"task_chains":[{"def_name":"Chain_Partial","steps":[
		{"order":0,"action":"Pickup"},
		{"order":1,"target":"destination"}]}]}`
	if _, err := c.LoadBytes([]byte(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	def, ok := c.Get("Chain_Partial")
	if !ok {
		t.Fatalf("chain rejected entirely; only the bad step should drop")
	}
	if len(def.Steps) != 1 || def.Steps[0].ActionDefName != "Pickup" {
		t.Fatalf("steps=%+v", def.Steps)
	}
}

func TestLoadBytes_RejectsChainWithNoValidSteps(t *testing.T) {
	c := NewCatalog(nil)
	doc := `{"task_chains":[{"def_name":"Chain_Empty","steps":[{"order":0,"target":"source"}]}]}`
	n, err := c.LoadBytes([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 0 || c.Has("Chain_Empty") {
		t.Fatalf("chain with zero valid steps must not be stored")
	}
}

func TestLoadBytes_LabelDefaultsToDefName(t *testing.T) {
	c := NewCatalog(nil)
	doc := `{"task_chains":[{"def_name":"Chain_Sow","steps":[{"order":0,"action":"Sow"}]}]}`
	if _, err := c.LoadBytes([]byte(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	def, _ := c.Get("Chain_Sow")
	if def.Label != "Chain_Sow" {
		t.Fatalf("label=%q want def_name fallback", def.Label)
	}
}

func TestLoadBytes_DuplicateChainFirstWins(t *testing.T) {
	c := NewCatalog(nil)
	if _, err := c.LoadBytes([]byte(haulDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	dup := `{"task_chains":[{"def_name":"Chain_Haul","steps":[{"order":0,"action":"Eat"}]}]}`
	n, err := c.LoadBytes([]byte(dup))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n != 0 || c.Count() != 1 {
		t.Fatalf("duplicate chain stored: n=%d count=%d", n, c.Count())
	}
	def, _ := c.Get("Chain_Haul")
	if len(def.Steps) != 3 {
		t.Fatalf("first registration should win, steps=%d", len(def.Steps))
	}
}

func TestLoadBytes_DuplicateStepOrderDropped(t *testing.T) {
	c := NewCatalog(nil)
	doc := `{"task_chains":[{"def_name":"Chain_Dup","steps":[
		{"order":0,"action":"Pickup"},
		{"order":0,"action":"Deposit"}]}]}`
	if _, err := c.LoadBytes([]byte(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	def, _ := c.Get("Chain_Dup")
	if len(def.Steps) != 1 || def.Steps[0].ActionDefName != "Pickup" {
		t.Fatalf("steps=%+v", def.Steps)
	}
}
