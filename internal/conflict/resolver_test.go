package conflict

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
)

type fakeCatalog struct {
	items   []entity.CatalogItem
	failFor string
}

func (f *fakeCatalog) add(name string) uuid.UUID {
	id := uuid.New()
	f.items = append(f.items, entity.CatalogItem{ID: id, RestaurantID: "r1", Item: entity.MenuItem{Name: name}})
	return id
}

func (f *fakeCatalog) FindByName(_ context.Context, scope entity.CatalogScope, name string) ([]entity.CatalogItem, error) {
	if f.failFor != "" && strings.EqualFold(name, f.failFor) {
		return nil, errors.New("catalog unavailable")
	}
	var out []entity.CatalogItem
	for _, it := range f.items {
		if it.RestaurantID == scope.RestaurantID && entity.NameKey(it.Item.Name) == entity.NameKey(name) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCatalog) SearchByWords(_ context.Context, scope entity.CatalogScope, words []string) ([]entity.CatalogItem, error) {
	var out []entity.CatalogItem
	for _, it := range f.items {
		if it.RestaurantID != scope.RestaurantID {
			continue
		}
		for _, w := range words {
			if strings.Contains(strings.ToLower(it.Item.Name), w) {
				out = append(out, it)
				break
			}
		}
	}
	return out, nil
}

func parsed(name string) entity.ParsedItem {
	return entity.ParsedItem{ID: uuid.NewString(), Name: entity.Field[string]{Value: name, IsValid: true}}
}

func TestResolveSameExistingItemForVariants(t *testing.T) {
	cat := &fakeCatalog{}
	margherita := cat.add("Margherita Pizza")
	cat.add("Pepperoni Pizza")

	items := []entity.ParsedItem{parsed("MARGHERITA PIZZA"), parsed("Margherita Pizzas")}
	out, sum, err := NewResolver(cat, nil).Resolve(context.Background(), Request{Items: items, RestaurantID: "r1"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, it := range out {
		if it.Conflict.Status != constants.ConflictUpdate || it.Conflict.MatchedID == nil || *it.Conflict.MatchedID != margherita {
			t.Fatalf("%s: conflict = %+v", it.Name.Value, it.Conflict)
		}
		if it.ImportDecision != constants.DecisionUpdate {
			t.Fatalf("%s: decision = %q", it.Name.Value, it.ImportDecision)
		}
	}
	if out[0].Conflict.Similarity != 1 || out[1].Conflict.Similarity >= 1 {
		t.Fatalf("similarities %v %v", out[0].Conflict.Similarity, out[1].Conflict.Similarity)
	}
	if diff := cmp.Diff(entity.ConflictSummary{Total: 2, UpdateCandidates: 2}, sum); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestResolveOutcomes(t *testing.T) {
	cat := &fakeCatalog{failFor: "Mystery Dish"}
	cat.add("Beef Burger")
	cat.add("Beef Burgers")
	soup1 := cat.add("Soup of the Day")
	soup2 := cat.add("soup of the day")

	ignored := parsed("Beef Burger")
	ignored.UserAction = constants.ActionIgnore
	failing := parsed("Mystery Dish")
	failing.ImportDecision = constants.DecisionSkip

	items := []entity.ParsedItem{parsed("Tiramisu"), parsed("Beef Burgr"), parsed("Soup of the Day"), ignored, failing}
	out, sum, err := NewResolver(cat, nil).Resolve(context.Background(), Request{Items: items, RestaurantID: "r1"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	wantStatus := []constants.ConflictStatus{
		constants.ConflictNone,
		constants.ConflictMultiple,
		constants.ConflictMultiple,
		constants.ConflictSkipped,
		constants.ConflictError,
	}
	wantDecision := []constants.ImportDecision{
		constants.DecisionNew,
		constants.DecisionNew,
		constants.DecisionNew,
		constants.DecisionSkip,
		constants.DecisionSkip,
	}
	for i, it := range out {
		if it.Conflict.Status != wantStatus[i] || it.ImportDecision != wantDecision[i] {
			t.Errorf("%d %s: status=%q decision=%q", i, it.Name.Value, it.Conflict.Status, it.ImportDecision)
		}
	}
	if len(out[1].Conflict.CandidateIDs) != 2 {
		t.Fatalf("burger candidates = %v", out[1].Conflict.CandidateIDs)
	}
	if diff := cmp.Diff([]uuid.UUID{soup1, soup2}, out[2].Conflict.CandidateIDs); diff != "" {
		t.Fatalf("soup candidates (-want +got):\n%s", diff)
	}
	if out[4].Conflict.Message != "catalog unavailable" {
		t.Fatalf("error message = %q", out[4].Conflict.Message)
	}
	want := entity.ConflictSummary{Total: 5, NewItems: 1, Ambiguous: 2, Skipped: 1, Errors: 1}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestResolveScopesByRestaurant(t *testing.T) {
	cat := &fakeCatalog{}
	cat.add("Margherita Pizza")
	out, _, err := NewResolver(cat, nil).Resolve(context.Background(), Request{Items: []entity.ParsedItem{parsed("Margherita Pizza")}, RestaurantID: "r2"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out[0].Conflict.Status != constants.ConflictNone {
		t.Fatalf("status = %q", out[0].Conflict.Status)
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewResolver(&fakeCatalog{}, nil).Resolve(ctx, Request{Items: []entity.ParsedItem{parsed("Soup")}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"Margherita Pizza", "margherita pizza", 1},
		{"Beef Burgr", "Beef Burger", 1 - 1.0/11},
		{"abc", "xyz", 0},
		{"Crème Brûlée", "Creme Brulee", 1 - 2.0/12},
	}
	for _, tc := range cases {
		if got := Similarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSignificantWords(t *testing.T) {
	got := SignificantWords("The Soup of the Day, soup & Bread")
	if diff := cmp.Diff([]string{"soup", "day", "bread"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
