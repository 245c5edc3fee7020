package controllers

import (
	"net/http"

	"github.com/angelmondragon/stayregistry-backend/api/responses"
	"github.com/angelmondragon/stayregistry-backend/internal/marketplace"
)

type registryInfoResponse struct {
	CollectionName   string `json:"collection_name"`
	CollectionSymbol string `json:"collection_symbol"`
	BookingIdentity  string `json:"booking_identity"`
}

// RegistryInfo describes the provisioned registries. Clients need the booking
// identity to approve it as a spender of their credits.
func RegistryInfo(m *marketplace.Marketplace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := m.Assets.Collection()
		responses.WriteSuccess(w, registryInfoResponse{
			CollectionName:   collection.Name,
			CollectionSymbol: collection.Symbol,
			BookingIdentity:  m.Bookings.Identity().String(),
		})
	}
}
