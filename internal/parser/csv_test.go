package parser

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/menu-importer/constants"
)

func TestCSVParserDropsNamelessRows(t *testing.T) {
	path := writeFile(t, "menu.csv", []byte("Name,Price,Category\n"+
		"Caesar Salad,12.99,Appetizers\n"+
		",99,X\n"+
		"Grilled Salmon,24.99,Main Courses\n"))

	res, err := NewCSVParser(nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"Caesar Salad", "Grilled Salmon"}, names(res)); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"row 3: missing item name, row skipped"}, res.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
	if res.Dropped != 1 {
		t.Fatalf("Dropped = %d", res.Dropped)
	}
	if res.Records[1].Item.Category != constants.CategoryMainCourses || *res.Records[1].Item.Price != 24.99 {
		t.Fatalf("second record = %+v", res.Records[1].Item)
	}
}

func TestCSVParserWellFormedHasNoWarnings(t *testing.T) {
	path := writeFile(t, "menu.csv", []byte("item,cost\nA,1\nB,2\n\nC,3\nD,4\n"))
	res, err := NewCSVParser(nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 4 || len(res.Warnings) != 0 {
		t.Fatalf("records=%d warnings=%v", len(res.Records), res.Warnings)
	}
}

func TestCSVParserSemicolonBOMAndDecimalComma(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Produkt;Preis €;Kategorie\n\"Crème brûlée\";\"7,50\";Desserts\n")...)
	// "Produkt" is unmapped; add a recognizable header in a second file below
	path := writeFile(t, "menu.csv", data)
	if _, err := NewCSVParser(nil).Parse(context.Background(), path); err == nil {
		t.Fatal("expected an error for a header without a name column")
	}

	data = append([]byte{0xEF, 0xBB, 0xBF}, []byte("Dish;Price;Category\n\"Crème brûlée\";\"7,50\";Desserts\n")...)
	path = writeFile(t, "menu.csv", data)
	res, err := NewCSVParser(nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Metadata["delimiter"] != ";" {
		t.Fatalf("delimiter = %v", res.Metadata["delimiter"])
	}
	item := res.Records[0].Item
	if item.Name != "Crème brûlée" || item.Price == nil || *item.Price != 7.5 {
		t.Fatalf("item = %+v", item)
	}
}

func TestCSVParserEncodingFixes(t *testing.T) {
	path := writeFile(t, "menu.csv", []byte("Name,Description\nCafÃ© au lait,Chefâ€™s choice\n"))
	res, err := NewCSVParser(nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	item := res.Records[0].Item
	if item.Name != "Café au lait" || item.Description != "Chef’s choice" {
		t.Fatalf("item = %+v", item)
	}
	if res.Metadata["encodingFixes"] != 2 {
		t.Fatalf("encodingFixes = %v", res.Metadata["encodingFixes"])
	}

	// Windows-1252 bytes: 0xE9 is é
	path = writeFile(t, "menu.csv", []byte("Name,Price\nP\xe2t\xe9,9\n"))
	res, err = NewCSVParser(nil).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Records[0].Item.Name != "Pâté" || res.Metadata["encoding"] != "windows-1252" {
		t.Fatalf("name=%q meta=%v", res.Records[0].Item.Name, res.Metadata)
	}
}

func TestFixMojibakeOnlyRepairsPairs(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		fixes int
	}{
		{in: "Âge Tendre Burger", want: "Âge Tendre Burger"},
		{in: "Served at 20Â°C", want: "Served at 20°C", fixes: 1},
		{in: "Â£5 supplement", want: "£5 supplement", fixes: 1},
		{in: "Half\u00c2\u00a0portion", want: "Half portion", fixes: 1},
	}
	for _, tt := range tests {
		got, n := FixMojibake(tt.in)
		if got != tt.want || n != tt.fixes {
			t.Errorf("FixMojibake(%q) = %q, %d; want %q, %d", tt.in, got, n, tt.want, tt.fixes)
		}
	}
}

func TestStripStrayQuotes(t *testing.T) {
	tests := map[string]string{
		`"Caesar Salad"`:     "Caesar Salad",
		`'Tiramisu'`:         "Tiramisu",
		`Chef's Special`:     "Chef's Special",
		`"Burger`:            "Burger",
		`The ""Big"" Burger`: `The "Big" Burger`,
	}
	for in, want := range tests {
		if got := StripStrayQuotes(in); got != want {
			t.Errorf("StripStrayQuotes(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := map[string]rune{
		"a,b,c\n1,2,3":        ',',
		"a;b;c":               ';',
		"a\tb\tc":             '\t',
		"a|b|c":               '|',
		`"x,y";b;c`:           ';',
		"\n\nname,price\n1,2": ',',
	}
	for in, want := range tests {
		if got := sniffDelimiter(in); got != want {
			t.Errorf("sniffDelimiter(%q) = %q, want %q", in, got, want)
		}
	}
}
