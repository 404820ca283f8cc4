package render

import (
	"html/template"
	"strings"

	"github.com/aymerick/douceur/css"
)

func decl(property, value string) *css.Declaration {
	return &css.Declaration{Property: property, Value: value}
}

func important(property, value string) *css.Declaration {
	return &css.Declaration{Property: property, Value: value, Important: true}
}

func rule(selectors string, decls ...*css.Declaration) *css.Rule {
	r := css.NewRule(css.QualifiedRule)
	r.Prelude = selectors
	for _, sel := range strings.Split(selectors, ",") {
		r.Selectors = append(r.Selectors, strings.TrimSpace(sel))
	}
	r.Declarations = decls
	return r
}

func sheet(rules ...*css.Rule) template.CSS {
	s := &css.Stylesheet{Rules: rules}
	return template.CSS(s.String())
}

func newsStylesheet(p Palette) template.CSS {
	return sheet(
		rule("body",
			decl("font-family", "sans-serif"),
			decl("background-color", p.Background),
			decl("margin", "0"),
			decl("padding", "12px"),
			decl("color", p.Text),
		),
		rule("h1.page-title",
			decl("color", p.Accent),
			decl("font-size", "22px"),
			decl("margin", "10px 0 20px"),
			decl("font-weight", "bold"),
			decl("text-align", "center"),
		),
		rule(".news-card",
			decl("background-color", p.Card),
			decl("border-radius", "12px"),
			decl("padding", "16px"),
			decl("margin-bottom", "16px"),
			decl("box-shadow", "0 2px 5px rgba(0,0,0,0.1)"),
			decl("border-left", "5px solid "+p.Accent),
		),
		rule(".news-date",
			decl("color", p.Accent),
			decl("font-weight", "bold"),
			decl("font-size", "14px"),
			decl("margin-bottom", "10px"),
			decl("text-transform", "uppercase"),
		),
		rule(".news-content",
			decl("font-size", "15px"),
			decl("line-height", "1.5"),
		),
		rule(".news-content div", decl("margin-bottom", "8px")),
		rule("a",
			decl("color", ColorLink),
			decl("text-decoration", "none"),
			decl("border-bottom", "1px dotted "+ColorLink),
		),
		rule(".placeholder", decl("text-align", "center")),
	)
}

func tariffsStylesheet(p Palette) template.CSS {
	return sheet(
		rule("body",
			decl("font-family", "sans-serif"),
			decl("font-size", "14px"),
			decl("margin", "0"),
			decl("padding", "12px"),
			decl("background-color", p.Background),
			decl("color", p.Text),
		),
		rule(".price",
			important("width", "100%"),
			decl("border-collapse", "collapse"),
			decl("margin-bottom", "20px"),
			decl("font-size", "12px"),
			decl("background-color", p.Card),
		),
		rule(".price td, .price th",
			decl("border", "1px solid "+p.Border),
			decl("padding", "8px"),
			decl("vertical-align", "middle"),
		),
		rule(".price th",
			decl("background-color", p.AccentBackground),
			decl("color", p.headerColor()),
			decl("font-weight", "bold"),
			decl("text-align", "center"),
		),
		rule(".price tr:first-child td",
			decl("background-color", p.AccentBackground),
			decl("font-weight", "bold"),
			decl("text-align", "center"),
			decl("color", "white"),
		),
		rule(".price tr:nth-child(even)", decl("background-color", p.RowEven)),
		rule(".hint",
			decl("background-color", p.Card),
			decl("padding", "8px"),
			decl("border-left", "3px solid #ccc"),
			decl("margin-bottom", "10px"),
			decl("font-size", "12px"),
			decl("color", p.Text),
		),
		rule(".information",
			decl("background-color", p.Card),
			decl("padding", "12px"),
			decl("border-radius", "4px"),
			decl("margin-bottom", "20px"),
			decl("font-size", "13px"),
			decl("border", "1px solid "+p.Border),
		),
		rule("h1",
			decl("color", p.Accent),
			decl("font-size", "18px"),
			decl("margin", "30px 0 15px"),
			decl("text-align", "center"),
			decl("font-weight", "bold"),
			decl("text-transform", "uppercase"),
		),
		rule("h4",
			decl("color", p.Accent),
			decl("font-size", "16px"),
			decl("margin", "20px 0 10px"),
			decl("display", "inline-block"),
		),
		rule("h2.main-title",
			decl("background-color", p.Accent),
			decl("color", "white"),
			decl("padding", "10px"),
			decl("text-align", "center"),
			decl("margin-top", "0"),
			decl("border-radius", "4px"),
		),
		rule(".section-gap", decl("height", "40px")),
	)
}

func statisticsStylesheet(p Palette) template.CSS {
	return sheet(
		rule("body",
			decl("font-family", "sans-serif"),
			decl("font-size", "12px"),
			decl("padding", "8px"),
			decl("margin", "0"),
			decl("background-color", p.Background),
			decl("color", p.Text),
		),
		rule("h3",
			decl("color", p.Accent),
			decl("text-align", "center"),
			decl("margin-bottom", "15px"),
			decl("font-size", "16px"),
		),
		rule("table",
			important("width", "100%"),
			decl("border-collapse", "collapse"),
			decl("font-size", "10px"),
			decl("background-color", p.Card),
			decl("box-shadow", "0 1px 3px rgba(0,0,0,0.1)"),
		),
		rule("th, td",
			decl("border", "1px solid "+p.Border),
			decl("padding", "6px 3px"),
			decl("text-align", "center"),
			decl("vertical-align", "middle"),
		),
		rule("th",
			decl("background-color", p.AccentBackground),
			decl("color", p.headerColor()),
			decl("font-weight", "bold"),
		),
		rule("tr:nth-child(even)", decl("background-color", p.RowEven)),
		// Totals row.
		rule("tr:last-child",
			decl("font-weight", "bold"),
			decl("background-color", p.AccentBackground),
			decl("color", "white"),
		),
		rule("a",
			decl("color", p.Text),
			decl("text-decoration", "none"),
			decl("pointer-events", "none"),
		),
		rule(".placeholder",
			decl("text-align", "center"),
			decl("margin-top", "50px"),
			decl("color", "#777"),
		),
	)
}

func accountsStylesheet(p Palette) template.CSS {
	return sheet(
		rule("body",
			decl("font-family", "sans-serif"),
			decl("font-size", "15px"),
			decl("margin", "0"),
			decl("padding", "12px"),
			decl("background-color", p.Background),
			decl("color", p.Text),
		),
		rule(".account-card",
			decl("background-color", p.Card),
			decl("border-radius", "12px"),
			decl("padding", "16px"),
			decl("margin-bottom", "16px"),
			decl("border-left", "5px solid "+p.Accent),
			decl("line-height", "1.6"),
		),
		rule(".balance-debt", decl("color", ColorDebt)),
		rule(".balance-low", decl("color", ColorLow)),
		rule(".balance-ok", decl("color", ColorOK)),
		rule(".placeholder", decl("text-align", "center")),
	)
}

func redirectStylesheet(p Palette) template.CSS {
	return sheet(
		rule("body",
			decl("font-family", "sans-serif"),
			decl("background-color", p.Background),
			decl("color", p.Text),
		),
		rule("h3",
			decl("text-align", "center"),
			decl("margin-top", "50px"),
		),
	)
}
