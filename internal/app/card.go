package app

import (
	"fmt"

	"github.com/mrz1836/testament/internal/willclient"
)

// PlaceholderImage is shown for wills whose metadata carries no image.
const PlaceholderImage = "https://placehold.co/400x400/2563eb/ffffff?text=NFT"

// Card is the display model of one will.
type Card struct {
	TokenID      uint64 `json:"token_id"`
	Title        string `json:"title"`
	Image        string `json:"image"`
	Beneficiary  string `json:"beneficiary"`
	AssetAddress string `json:"asset_address"`
	AmountOrID   string `json:"amount_or_id"`
	Status       string `json:"status"`
	Active       bool   `json:"active"`
}

// NewCard builds the display model of w.
func NewCard(w willclient.Will) Card {
	image := w.Image
	if image == "" {
		image = PlaceholderImage
	}
	status := "Inactive"
	if w.Active {
		status = "Active"
	}
	return Card{
		TokenID:      w.TokenID,
		Title:        fmt.Sprintf("Will #%d", w.TokenID),
		Image:        image,
		Beneficiary:  w.Beneficiary.Hex(),
		AssetAddress: w.AssetAddress.Hex(),
		AmountOrID:   w.AmountOrID,
		Status:       status,
		Active:       w.Active,
	}
}

// Cards returns the display models of the loaded wills.
func (p *Page) Cards() []Card {
	wills := p.Wills()
	cards := make([]Card, 0, len(wills))
	for _, w := range wills {
		cards = append(cards, NewCard(w))
	}
	return cards
}
