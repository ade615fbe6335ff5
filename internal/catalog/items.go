package catalog

var furniture = []Item{
	{
		ID:          "nordic-chair",
		Name:        "Nordic Lounge Chair",
		Description: "A beautifully sculpted Scandinavian-inspired lounge chair with organic curves and solid wood legs.",
		Category:    "Chairs",
		Price:       899,
		ModelPrompt: "A Nordic Scandinavian lounge chair with organic curved backrest, solid oak wood legs, minimalist design, light fabric upholstery",
		Tags:        []string{"modern", "scandinavian", "wood", "lounge"},
	},
	{
		ID:          "glass-coffee-table",
		Name:        "Crystalline Coffee Table",
		Description: "Elegant tempered glass coffee table with a geometric brushed-gold metal frame.",
		Category:    "Tables",
		Price:       1249,
		ModelPrompt: "An elegant tempered glass coffee table with geometric brushed gold metal frame, contemporary design",
		Tags:        []string{"modern", "glass", "gold", "luxury"},
	},
	{
		ID:          "velvet-sofa",
		Name:        "Velvet Cloud Sofa",
		Description: "Deep-seated velvet sofa with plush cushioning and tapered brass legs.",
		Category:    "Sofas",
		Price:       2499,
		ModelPrompt: "A luxurious deep-seated velvet sofa with plush cushioning, tapered brass legs, emerald green velvet",
		Tags:        []string{"luxury", "velvet", "green", "modern"},
	},
	{
		ID:          "modular-shelf",
		Name:        "Hex Modular Shelving",
		Description: "Honeycomb-inspired modular wall shelving system in matte black steel.",
		Category:    "Storage",
		Price:       679,
		ModelPrompt: "Hexagonal honeycomb modular wall shelving system, matte black steel, geometric design",
		Tags:        []string{"modular", "geometric", "black", "wall-mount"},
	},
	{
		ID:          "pendant-light",
		Name:        "Aurora Pendant Light",
		Description: "Blown glass pendant lamp with gradient amber-to-clear finish.",
		Category:    "Lighting",
		Price:       459,
		ModelPrompt: "A blown glass pendant lamp with gradient amber to clear finish, sculptural organic shape",
		Tags:        []string{"glass", "amber", "pendant", "artisan"},
	},
	{
		ID:          "dining-table",
		Name:        "Live Edge Dining Table",
		Description: "Solid walnut dining table with natural live edge and matte black steel legs.",
		Category:    "Tables",
		Price:       3299,
		ModelPrompt: "A solid walnut live edge dining table with natural wood grain, matte black steel legs",
		Tags:        []string{"walnut", "rustic", "live-edge", "dining"},
	},
	{
		ID:          "accent-chair",
		Name:        "Bouclé Accent Chair",
		Description: "Cozy boucle fabric accent chair with curved wraparound back and walnut dowel legs.",
		Category:    "Chairs",
		Price:       749,
		ModelPrompt: "A cozy boucle fabric accent chair with curved wraparound backrest, walnut dowel legs",
		Tags:        []string{"boucle", "cream", "mid-century", "accent"},
	},
	{
		ID:          "floor-lamp",
		Name:        "Arc Floor Lamp",
		Description: "Sweeping arc floor lamp with brushed nickel finish and linen drum shade.",
		Category:    "Lighting",
		Price:       389,
		ModelPrompt: "A sweeping arc floor lamp with brushed nickel metal finish, linen drum shade",
		Tags:        []string{"nickel", "arc", "modern", "floor"},
	},
	{
		ID:          "sectional-sofa",
		Name:        "Modular Sectional",
		Description: "Configurable modular sectional in performance linen.",
		Category:    "Sofas",
		Price:       3899,
		ModelPrompt: "A large modular sectional sofa in light gray performance linen, L-shaped configuration",
		Tags:        []string{"modular", "linen", "gray", "sectional"},
	},
	{
		ID:          "ceramic-vase",
		Name:        "Sculptural Ceramic Vase",
		Description: "Hand-crafted ceramic vase with an asymmetric organic form and matte sage finish.",
		Category:    "Decor",
		Price:       189,
		ModelPrompt: "A hand-crafted sculptural ceramic vase with asymmetric organic form, matte sage green",
		Tags:        []string{"ceramic", "sage", "organic", "handmade"},
	},
	{
		ID:          "console-table",
		Name:        "Marble Console Table",
		Description: "Slim console table with white Carrara marble top and brass hairpin legs.",
		Category:    "Tables",
		Price:       1599,
		ModelPrompt: "A slim console table with white Carrara marble top, brass hairpin legs",
		Tags:        []string{"marble", "brass", "luxury", "console"},
	},
	{
		ID:          "bookcase",
		Name:        "Industrial Bookcase",
		Description: "Five-shelf industrial bookcase with reclaimed pine shelves and black iron frame.",
		Category:    "Storage",
		Price:       949,
		ModelPrompt: "A five-shelf industrial bookcase with reclaimed pine wood shelves, black iron metal frame",
		Tags:        []string{"industrial", "pine", "reclaimed", "rustic"},
	},
}
