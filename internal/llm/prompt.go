package llm

import (
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
)

// MaxPromptTextChars bounds the document text sent to the model.
const MaxPromptTextChars = 24000

// BuildSystemPrompt composes the system message for a strategy. Wine documents get the
// wine-list rules in addition to the general ones.
func BuildSystemPrompt(req MenuRequest) string {
	parts := []string{
		"You are a restaurant menu parser. Extract every menu item from the document.",
		"Call the function " + MenuFunctionName + " exactly once with all items.",
		"Use the section heading an item appears under as its category when it fits one of: " +
			strings.Join(constants.AsStringSlice(), ", ") + ".",
		"Prices are numbers without currency symbols. Omit a price you cannot read.",
		"kind is one of food, beverage, wine.",
		"List ingredients and allergens only when the menu states them; do not guess.",
		"Allergens must come from: " + allergenList() + ".",
		"Never output null. If a field is not present, omit it.",
	}
	if req.IsWine {
		parts = append(parts, wineRules...)
	}
	switch req.Strategy {
	case StrategyFirm:
		parts = append(parts,
			"IMPORTANT: your previous answer was not a function call. You MUST respond by calling "+
				MenuFunctionName+". Do not reply with prose or markdown.")
	case StrategyStrict:
		parts = append(parts,
			"CRITICAL: respond ONLY with a call to "+MenuFunctionName+". Any text outside the function "+
				"call is discarded. If you cannot call the function, reply with a single JSON object "+
				`of the form {"menuName": "...", "items": [...]} and nothing else.`)
	}
	if s := strings.TrimSpace(req.Instructions); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

var wineRules = []string{
	"This is a wine list. Set kind to wine for every wine.",
	"wineStyle is one of still, sparkling, champagne, dessert, fortified, other; use still for ordinary red, white and rosé wines.",
	"Put the estate or house in producer and the appellation in region; keep the wine name as printed.",
	"Only list grapes the document names; do not infer varieties from the appellation.",
	"vintage is a four digit year; omit it for non-vintage (NV) wines.",
	"Each price printed for a pour size (Glass, Carafe, Bottle, 750ml) becomes one servingOptions entry; price is the lowest of them.",
}

// BuildUserPrompt packages the file name and the document text.
func BuildUserPrompt(req MenuRequest) string {
	var b strings.Builder
	if name := strings.TrimSpace(req.FileName); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	text := strings.TrimSpace(req.Text)
	b.WriteString("\nMenu text:\n")
	if len(text) > MaxPromptTextChars {
		b.WriteString(text[:MaxPromptTextChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

func allergenList() string {
	out := make([]string, 0, len(constants.Allergens))
	for _, a := range constants.Allergens {
		out = append(out, string(a))
	}
	return strings.Join(out, ", ")
}
