package work

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const haulingDoc = `{
  "work_categories": [
    {
      "def_name": "Hauling",
      "tier": 3.0,
      "can_disable": true,
      "work_types": [
        {"def_name": "Work_Haul", "trigger_capability": "Storage", "task_chain": "Chain_Haul",
         "filter": {"loose_item": true}}
      ]
    }
  ]
}`

const farmingDoc = `{
  "work_categories": [
    {
      "def_name": "Farming",
      "tier": 2.0,
      "work_types": [
        {"def_name": "Work_Sow", "trigger_capability": "Sowable"},
        {"def_name": "Work_Harvest", "trigger_capability": "Harvestable"}
      ]
    }
  ]
}`

func TestLoadBytes_Basics(t *testing.T) {
	c := NewCatalog(nil)
	n, err := c.LoadBytes([]byte(haulingDoc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 1 {
		t.Fatalf("loaded=%d want 1", n)
	}
	cat, ok := c.Category("Hauling")
	if !ok || cat.Tier != 3.0 || !cat.CanDisable {
		t.Fatalf("category=%+v ok=%v", cat, ok)
	}
	wt, ok := c.WorkType("Work_Haul")
	if !ok {
		t.Fatalf("work type not found")
	}
	if wt.Category != "Hauling" {
		t.Fatalf("back-reference=%q want Hauling", wt.Category)
	}
	if wt.Filter.LooseItem == nil || !*wt.Filter.LooseItem {
		t.Fatalf("filter loose_item=%v", wt.Filter.LooseItem)
	}
	if wt.Filter.Indoor != nil {
		t.Fatalf("absent filter field must stay nil, got %v", *wt.Filter.Indoor)
	}
}

func TestLoadBytes_CategoryMergeAcrossDocuments(t *testing.T) {
	c := NewCatalog(nil)
	if _, err := c.LoadBytes([]byte(haulingDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	extra := `{"work_categories":[{"def_name":"Hauling","tier":9.0,"work_types":[
		{"def_name":"Work_HaulUrgent","trigger_capability":"Storage"}]}]}`
	if _, err := c.LoadBytes([]byte(extra)); err != nil {
		t.Fatalf("load extra: %v", err)
	}
	if c.CategoryCount() != 1 {
		t.Fatalf("categories=%d want 1 (merged)", c.CategoryCount())
	}
	cat, _ := c.Category("Hauling")
	if cat.Tier != 3.0 {
		t.Fatalf("tier=%v; first definition must win", cat.Tier)
	}
	if got := len(cat.WorkTypeDefNames); got != 2 {
		t.Fatalf("work types in category=%d want 2", got)
	}
	if got := len(c.ForCapability("Storage")); got != 2 {
		t.Fatalf("ForCapability(Storage)=%d want 2", got)
	}
}

func TestLoadBytes_CapabilityIndexLoadOrderIndependent(t *testing.T) {
	capNames := func(c *Catalog, capability string) []string {
		var out []string
		for _, wt := range c.ForCapability(capability) {
			out = append(out, wt.DefName)
		}
		return out
	}

	a := NewCatalog(nil)
	for _, doc := range []string{haulingDoc, farmingDoc} {
		if _, err := a.LoadBytes([]byte(doc)); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	b := NewCatalog(nil)
	for _, doc := range []string{farmingDoc, haulingDoc} {
		if _, err := b.LoadBytes([]byte(doc)); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	for _, capability := range []string{"Storage", "Sowable", "Harvestable"} {
		if !reflect.DeepEqual(capNames(a, capability), capNames(b, capability)) {
			t.Fatalf("capability index differs by load order for %q: %v vs %v",
				capability, capNames(a, capability), capNames(b, capability))
		}
	}
}

func TestLoadBytes_DuplicateWorkTypeRejected(t *testing.T) {
	c := NewCatalog(nil)
	if _, err := c.LoadBytes([]byte(haulingDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	dup := `{"work_categories":[{"def_name":"Farming","tier":2.0,"work_types":[
		{"def_name":"Work_Haul","trigger_capability":"Sowable"}]}]}`
	n, err := c.LoadBytes([]byte(dup))
	if err != nil {
		t.Fatalf("load dup: %v", err)
	}
	if n != 0 || c.WorkTypeCount() != 1 {
		t.Fatalf("duplicate work type stored: n=%d count=%d", n, c.WorkTypeCount())
	}
	wt, _ := c.WorkType("Work_Haul")
	if wt.Category != "Hauling" {
		t.Fatalf("first registration should win, category=%q", wt.Category)
	}
}

func TestLoadDir_NamingConvention(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "mods")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	write := func(path, body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	write(filepath.Join(dir, "worktypes.json"), haulingDoc)
	write(filepath.Join(sub, "farm.worktypes.json"), farmingDoc)
	// Wrong names must be ignored.
	write(filepath.Join(dir, "actions.json"), `{"action_types":[]}`)
	write(filepath.Join(dir, "worktypes.yaml"), "not json")

	c := NewCatalog(nil)
	n, err := c.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if n != 3 {
		t.Fatalf("loaded=%d want 3", n)
	}
	if c.CategoryCount() != 2 || c.WorkTypeCount() != 3 {
		t.Fatalf("categories=%d worktypes=%d", c.CategoryCount(), c.WorkTypeCount())
	}
}

func TestCategoriesByTier(t *testing.T) {
	c := NewCatalog(nil)
	// Load in reverse tier order on purpose.
	if _, err := c.LoadBytes([]byte(haulingDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.LoadBytes([]byte(farmingDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	cats := c.CategoriesByTier()
	if len(cats) != 2 || cats[0].DefName != "Farming" || cats[1].DefName != "Hauling" {
		got := make([]string, len(cats))
		for i, cd := range cats {
			got[i] = cd.DefName
		}
		t.Fatalf("order=%v want [Farming Hauling]", got)
	}
}

func TestInCategoryAndCounts(t *testing.T) {
	c := NewCatalog(nil)
	if _, err := c.LoadBytes([]byte(farmingDoc)); err != nil {
		t.Fatalf("load: %v", err)
	}
	wts := c.InCategory("Farming")
	if len(wts) != 2 || wts[0].DefName != "Work_Sow" || wts[1].DefName != "Work_Harvest" {
		t.Fatalf("InCategory=%+v", wts)
	}
	if c.InCategory("Nope") != nil {
		t.Fatalf("unknown category must yield nil")
	}
}
