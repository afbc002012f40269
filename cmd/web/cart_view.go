package main

import (
	"eazshop.com/eazshop-web/internal/commerce"
	"eazshop.com/eazshop-web/internal/format"
)

// cartLine is one rendered cart row.
type cartLine struct {
	ID         string
	Ref        string
	VariantRef string
	Name       string
	ImageURL   string
	Quantity   int
	UnitPrice  string
	LineTotal  string
}

// Free delivery above GH₵200, matching the published shipping policy.
const freeDeliveryThreshold = 200.0

// cartView is the cart page/fragment view model.
type cartView struct {
	Lines    []cartLine
	Count    int
	Subtotal string
	Empty    bool

	FreeDelivery   bool
	ToFreeDelivery string
}

func buildCartView(items []commerce.CartItem, lang string) cartView {
	var (
		v        cartView
		subtotal float64
	)
	for _, it := range items {
		name := it.Product.Name
		if name == "" {
			name = it.Product.Ref()
		}
		lineTotal := it.Product.Price * float64(it.Quantity)
		v.Lines = append(v.Lines, cartLine{
			ID:         it.ID,
			Ref:        it.Product.Ref(),
			VariantRef: it.VariantRefID(),
			Name:       name,
			ImageURL:   it.Product.ImageURL,
			Quantity:   it.Quantity,
			UnitPrice:  format.FmtPrice(it.Product.Price, lang),
			LineTotal:  format.FmtPrice(lineTotal, lang),
		})
		v.Count += it.Quantity
		subtotal += lineTotal
	}
	v.Subtotal = format.FmtPrice(subtotal, lang)
	v.Empty = len(v.Lines) == 0
	if !v.Empty {
		if subtotal >= freeDeliveryThreshold {
			v.FreeDelivery = true
		} else {
			v.ToFreeDelivery = format.FmtPrice(freeDeliveryThreshold-subtotal, lang)
		}
	}
	return v
}
