package digiseller

import (
	"encoding/json"
	"time"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

// authToken is the /apilogin response.
type authToken struct {
	Retval    int       `json:"retval"`
	Desc      string    `json:"desc"`
	Token     string    `json:"token"`
	ValidThru time.Time `json:"valid_thru"`
}

// productData is the product description response.
type productData struct {
	Retval  int     `json:"retval"`
	Product product `json:"product"`
}

type product struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Price      float64     `json:"price"`
	PricesUnit *pricesUnit `json:"prices_unit,omitempty"`
}

type pricesUnit struct {
	UnitCnt  int    `json:"unit_cnt"`
	UnitName string `json:"unit_name"`
}

// updateResponse is the bulk price update response.
type updateResponse struct {
	Retval     int    `json:"retval"`
	RetvalDesc string `json:"retval_desc"`
	TaskID     string `json:"taskId"`
}

// SellerItem is one entry of the paginated seller goods listing.
type SellerItem struct {
	ID         int64   `json:"id_goods"`
	Name       string  `json:"name_goods"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	InStock    int     `json:"in_stock"`
	SalesCount int     `json:"cnt_sell"`
	Returns    int     `json:"cnt_return"`
	NumOptions int     `json:"num_options"`
}

// sellerItemsResponse is one page of the seller goods listing.
type sellerItemsResponse struct {
	Retval     int          `json:"retval"`
	RetvalDesc string       `json:"retval_desc"`
	TotalPages int          `json:"pages"`
	Page       int          `json:"page"`
	Items      []SellerItem `json:"rows"`
}

// updatePayload is the bulk update wire format.
type updatePayload struct {
	ProductID int64            `json:"product_id"`
	Price     *float64         `json:"price,omitempty"`
	Variants  []variantPayload `json:"variants,omitempty"`
}

type variantPayload struct {
	VariantID int64   `json:"variant_id"`
	Rate      float64 `json:"rate"`
	Type      string  `json:"type"`
}

func toPayload(updates []model.PriceUpdate) []updatePayload {
	out := make([]updatePayload, 0, len(updates))
	for _, u := range updates {
		p := updatePayload{ProductID: u.ProductID, Price: u.Price}
		for _, v := range u.Variants {
			p.Variants = append(p.Variants, variantPayload{
				VariantID: v.VariantID,
				Rate:      v.Magnitude,
				Type:      v.Direction.String(),
			})
		}
		out = append(out, p)
	}
	return out
}

// marshalUpdates keeps the wire encoding in one place for tests.
func marshalUpdates(updates []model.PriceUpdate) ([]byte, error) {
	return json.Marshal(toPayload(updates))
}
