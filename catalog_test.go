package paygate

import (
	"math/big"
	"testing"
)

func TestStaticCatalog(t *testing.T) {
	weather := &ResourceDescriptor{ID: "weather", Price: big.NewInt(1000)}
	translate := &ResourceDescriptor{ID: "translate", Price: big.NewInt(2500)}

	c := NewStaticCatalog(weather, translate)

	got, ok := c.Get("weather")
	if !ok || got.ID != "weather" {
		t.Fatalf("Get(weather) = %v, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a descriptor")
	}

	list := c.List()
	if len(list) != 2 || list[0].ID != "weather" || list[1].ID != "translate" {
		t.Errorf("List() order = %v, want insertion order", list)
	}
}

func TestStaticCatalogAddReplaces(t *testing.T) {
	c := NewStaticCatalog(&ResourceDescriptor{ID: "weather", Price: big.NewInt(1000)})
	c.Add(&ResourceDescriptor{ID: "weather", Price: big.NewInt(2000)})

	got, ok := c.Get("weather")
	if !ok {
		t.Fatal("Get(weather) missing after replace")
	}
	if got.Price.String() != "2000" {
		t.Errorf("Price = %s, want 2000", got.Price)
	}
	if len(c.List()) != 1 {
		t.Errorf("List() length = %d, want 1", len(c.List()))
	}
}
