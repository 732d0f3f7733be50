package catalog

import "github.com/shopspring/decimal"

func defaultCountries() []Country {
	return []Country{
		{Code: "IL", Name: "Israel", Currency: "ILS", Symbol: "₪", Region: "Asia"},
		{Code: "US", Name: "United States", Currency: "USD", Symbol: "$", Region: "North America"},
		{Code: "DE", Name: "Germany", Currency: "EUR", Symbol: "€", Region: "Europe"},
		{Code: "UK", Name: "United Kingdom", Currency: "GBP", Symbol: "£", Region: "Europe"},
		{Code: "TH", Name: "Thailand", Currency: "THB", Symbol: "฿", Region: "Asia"},
		{Code: "JP", Name: "Japan", Currency: "JPY", Symbol: "¥", Region: "Asia"},
	}
}

// shelf builds a price map from whole local-currency amounts.
func shelf(il, us, de, uk, th, jp int64) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"IL": decimal.NewFromInt(il),
		"US": decimal.NewFromInt(us),
		"DE": decimal.NewFromInt(de),
		"UK": decimal.NewFromInt(uk),
		"TH": decimal.NewFromInt(th),
		"JP": decimal.NewFromInt(jp),
	}
}

func placeholder(bg, fg, text string) string {
	return "https://placehold.co/400x400/" + bg + "/" + fg + "/png?text=" + text
}

func defaultProducts() []Product {
	return []Product{
		{ID: "p1", Name: "Labubu The Monster", Category: "Toys", Image: placeholder("FF6B6B", "FFFFFF", "Labubu+Toy"), Prices: shelf(150, 40, 35, 30, 1200, 4500)},
		{ID: "p2", Name: "iPhone 15 128GB", Category: "Electronics", Image: placeholder("4ECDC4", "FFFFFF", "iPhone+15"), Prices: shelf(3999, 799, 949, 799, 32900, 124800)},
		{ID: "p3", Name: "MAC Lipstick", Category: "Cosmetics", Image: placeholder("FFD93D", "333333", "MAC+Lipstick"), Prices: shelf(115, 23, 24, 22, 900, 3500)},
		{ID: "p4", Name: "Levi's 501 Jeans", Category: "Clothing", Image: placeholder("1A535C", "FFFFFF", "Levis+Jeans"), Prices: shelf(450, 60, 90, 80, 2500, 11000)},
		{ID: "p5", Name: "Sony WH-1000XM5", Category: "Electronics", Image: placeholder("333333", "FFFFFF", "Sony+Headphones"), Prices: shelf(1600, 348, 329, 299, 11000, 48000)},
		{ID: "p6", Name: "Matcha Tea Set", Category: "Food", Image: placeholder("95D5B2", "1B4332", "Matcha+Set"), Prices: shelf(250, 40, 45, 35, 1500, 3000)},
		{ID: "p7", Name: "Nintendo Switch OLED", Category: "Electronics", Image: placeholder("E60012", "FFFFFF", "Nintendo+Switch"), Prices: shelf(1750, 349, 349, 309, 12900, 37980)},
		{ID: "p8", Name: "Dyson Airwrap", Category: "Beauty", Image: placeholder("FF0099", "FFFFFF", "Dyson+Airwrap"), Prices: shelf(2800, 599, 549, 479, 21900, 63000)},
		{ID: "p9", Name: "Nike Air Force 1", Category: "Clothing", Image: placeholder("111111", "FFFFFF", "Nike+AF1"), Prices: shelf(550, 110, 119, 109, 3800, 12000)},
		{ID: "p10", Name: "iPad Air 5", Category: "Electronics", Image: placeholder("999999", "FFFFFF", "iPad+Air"), Prices: shelf(3100, 599, 699, 669, 23900, 92800)},
	}
}

func defaultDeals() map[string][]string {
	return map[string][]string{
		"US": {"Electronics", "Clothing (Brands)", "Vitamins", "Beauty", "Toys"},
		"TH": {"Clothing (Local)", "Food", "Toys", "Spa Products", "Electronics"},
		"JP": {"Electronics", "Anime Figures", "Cosmetics", "Watches", "Food", "Clothing"},
		"DE": {"Cosmetics (Pharmacy)", "Kitchenware", "Chocolate", "Beer", "Clothing", "Beauty"},
		"UK": {"Tea", "Fashion", "Books", "Beauty"},
		"IL": {"Dead Sea Products", "Bamba", "Food"},
	}
}
